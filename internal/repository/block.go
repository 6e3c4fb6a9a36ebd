package repository

import (
	"context"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BlockRepository interface {
	Exists(ctx context.Context, blockerID, blockedID string) (bool, error)
	// Insert persists a block. ErrDuplicate when the tuple already exists.
	Insert(ctx context.Context, b *domain.UserBlock) error
	// Delete removes a block; removing a non-existent block is not an error.
	Delete(ctx context.Context, blockerID, blockedID string) error
	ListByBlocker(ctx context.Context, blockerID string) ([]domain.UserBlock, error)
}

type MongoBlockRepository struct {
	coll *mongo.Collection
}

func NewMongoBlockRepository(db *mongo.Database) *MongoBlockRepository {
	coll := db.Collection("user_blocks")
	_, _ = coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "blocker_id", Value: 1}, {Key: "blocked_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("blocker_blocked_idx"),
	})
	return &MongoBlockRepository{coll: coll}
}

func (r *MongoBlockRepository) Exists(ctx context.Context, blockerID, blockedID string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"blocker_id": blockerID, "blocked_id": blockedID}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *MongoBlockRepository) Insert(ctx context.Context, b *domain.UserBlock) error {
	_, err := r.coll.InsertOne(ctx, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoBlockRepository) Delete(ctx context.Context, blockerID, blockedID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"blocker_id": blockerID, "blocked_id": blockedID})
	return err
}

func (r *MongoBlockRepository) ListByBlocker(ctx context.Context, blockerID string) ([]domain.UserBlock, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"blocker_id": blockerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []domain.UserBlock{}
	for cur.Next(ctx) {
		var b domain.UserBlock
		if err := cur.Decode(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, cur.Err()
}
