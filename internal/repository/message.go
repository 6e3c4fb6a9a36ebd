package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepository interface {
	// CreateWithStatus persists the message and the receiver's initial status
	// row as one atomic unit and bumps the conversation's updated_at.
	CreateWithStatus(ctx context.Context, m *domain.Message, st *domain.MessageStatus) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByConversation returns messages created_at desc, offset (page-1)*limit.
	// Soft-deleted messages are excluded. Unknown conversation yields empty.
	ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error)
	// SoftDelete sets deleted_at; the row and its status rows survive.
	SoftDelete(ctx context.Context, id string, at time.Time) error

	FindStatus(ctx context.Context, messageID, userID string) (*domain.MessageStatus, error)
	// MarkDelivered upgrades sent -> delivered. Returns false when the row was
	// not in sent state (already delivered or read).
	MarkDelivered(ctx context.Context, messageID, userID string) (bool, error)
	// MarkRead upgrades any non-read state to read. Returns false when another
	// caller won the conditional update.
	MarkRead(ctx context.Context, messageID, userID string) (bool, error)
}

type MongoMessageRepository struct {
	db       *mongo.Database
	messages *mongo.Collection
	statuses *mongo.Collection
	convs    *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	r := &MongoMessageRepository{
		db:       db,
		messages: db.Collection("messages"),
		statuses: db.Collection("message_status"),
		convs:    db.Collection("conversations"),
	}
	_, _ = r.messages.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("conv_created_idx"),
	})
	_, _ = r.statuses.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("message_user_idx"),
	})
	return r
}

func (r *MongoMessageRepository) CreateWithStatus(ctx context.Context, m *domain.Message, st *domain.MessageStatus) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.messages.InsertOne(sc, m); err != nil {
			return nil, err
		}
		if _, err := r.statuses.InsertOne(sc, st); err != nil {
			return nil, err
		}
		_, err := r.convs.UpdateOne(sc,
			bson.M{"_id": m.ConversationID},
			bson.M{"$set": bson.M{"updated_at": m.CreatedAt}},
		)
		return nil, err
	})
	return err
}

func (r *MongoMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	err := r.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MongoMessageRepository) ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"deleted_at":      bson.M{"$exists": false},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

func (r *MongoMessageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.messages.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"deleted_at": at, "updated_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMessageRepository) FindStatus(ctx context.Context, messageID, userID string) (*domain.MessageStatus, error) {
	var st domain.MessageStatus
	err := r.statuses.FindOne(ctx, bson.M{"message_id": messageID, "user_id": userID}).Decode(&st)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *MongoMessageRepository) MarkDelivered(ctx context.Context, messageID, userID string) (bool, error) {
	res, err := r.statuses.UpdateOne(ctx,
		bson.M{"message_id": messageID, "user_id": userID, "status": domain.StatusSent},
		bson.M{"$set": bson.M{"status": domain.StatusDelivered, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoMessageRepository) MarkRead(ctx context.Context, messageID, userID string) (bool, error) {
	res, err := r.statuses.UpdateOne(ctx,
		bson.M{"message_id": messageID, "user_id": userID, "status": bson.M{"$ne": domain.StatusRead}},
		bson.M{"$set": bson.M{"status": domain.StatusRead, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
