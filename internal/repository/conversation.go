package repository

import (
	"context"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConversationRepository interface {
	// FindByPair looks up the canonical (low, high) pair. ErrNotFound on miss.
	FindByPair(ctx context.Context, userLow, userHigh string) (*domain.Conversation, error)
	// Insert persists a new conversation. ErrDuplicate when the pair already exists.
	Insert(ctx context.Context, c *domain.Conversation) error
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	// ListByUser returns conversations the user participates in, updated_at desc.
	ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type MongoConversationRepository struct {
	coll *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	coll := db.Collection("conversations")
	// the unique pair index is the source of truth for first-contact races
	_, _ = coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "user_low", Value: 1}, {Key: "user_high", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_pair_idx"),
	})
	return &MongoConversationRepository{coll: coll}
}

func (r *MongoConversationRepository) FindByPair(ctx context.Context, userLow, userHigh string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"user_low": userLow, "user_high": userHigh}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoConversationRepository) Insert(ctx context.Context, c *domain.Conversation) error {
	_, err := r.coll.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoConversationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"user_low": userID},
		bson.M{"user_high": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []domain.Conversation{}
	for cur.Next(ctx) {
		var c domain.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, cur.Err()
}
