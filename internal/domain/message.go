package domain

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeFile  MessageType = "file"
)

type MediaItem struct {
	MediaID string `bson:"media_id" json:"media_id"`
	URL     string `bson:"url" json:"url"`
	Type    string `bson:"type" json:"type"`
}

// Message is immutable after creation except for soft deletion.
type Message struct {
	ID             string      `bson:"_id" json:"id"`
	ConversationID string      `bson:"conversation_id" json:"conversation_id"`
	SenderID       string      `bson:"sender_id" json:"sender_id"`
	ReceiverID     string      `bson:"receiver_id" json:"receiver_id"`
	Content        string      `bson:"content" json:"content"`
	Type           MessageType `bson:"type" json:"type"`
	MediaItems     []MediaItem `bson:"media_items,omitempty" json:"media_items,omitempty"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time  `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

type StatusValue string

const (
	StatusSent      StatusValue = "sent"
	StatusDelivered StatusValue = "delivered"
	StatusRead      StatusValue = "read"
)

// MessageStatus tracks delivery state per (message, recipient) pair.
// Unique on (message_id, user_id); status never regresses.
type MessageStatus struct {
	ID        string      `bson:"_id" json:"id"`
	MessageID string      `bson:"message_id" json:"message_id"`
	UserID    string      `bson:"user_id" json:"user_id"`
	Status    StatusValue `bson:"status" json:"status"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at" json:"updated_at"`
}
