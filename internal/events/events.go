package events

const (
	TopicMessageSent = "message.sent"
	TopicMessageRead = "message.read"
)

type MessageSentEvent struct {
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	ConversationID string `json:"conversation_id"`
}

type MessageReadEvent struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
}
