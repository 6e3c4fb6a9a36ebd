package domain

import "time"

// Conversation is the single canonical record for an unordered user pair.
// UserLow < UserHigh always; the pair is sorted, not sender/receiver roles.
type Conversation struct {
	ID        string    `bson:"_id" json:"id"`
	UserLow   string    `bson:"user_low" json:"user_low"`
	UserHigh  string    `bson:"user_high" json:"user_high"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
