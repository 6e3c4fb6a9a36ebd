package domain

import "time"

// UserBlock is directional: blocker blocks blocked.
type UserBlock struct {
	ID        string    `bson:"_id" json:"id"`
	BlockerID string    `bson:"blocker_id" json:"blocker_id"`
	BlockedID string    `bson:"blocked_id" json:"blocked_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
