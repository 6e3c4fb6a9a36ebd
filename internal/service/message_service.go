package service

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/events"
	"github.com/fathima-sithara/dm-service/internal/presence"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/fathima-sithara/dm-service/pkg/apperrors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Pusher routes an event to a user's live connection, reporting whether
// the user had one. Backed by the gateway hub; replaceable by a pub/sub
// fan-out without touching callers.
type Pusher interface {
	Push(userID, event string, payload any) bool
}

// noopPusher keeps the push path optional for callers without a gateway.
type noopPusher struct{}

func (noopPusher) Push(string, string, any) bool { return false }

type MessageService struct {
	messages      repository.MessageRepository
	conversations *ConversationService
	blocks        *BlockService
	presence      presence.Store
	publisher     events.Publisher
	pusher        Pusher
	log           *zap.SugaredLogger
}

func NewMessageService(
	messages repository.MessageRepository,
	conversations *ConversationService,
	blocks *BlockService,
	presenceStore presence.Store,
	publisher events.Publisher,
	log *zap.SugaredLogger,
) *MessageService {
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		blocks:        blocks,
		presence:      presenceStore,
		publisher:     publisher,
		pusher:        noopPusher{},
		log:           log,
	}
}

// SetPusher wires the realtime gateway in after construction; the hub
// depends on this service for inbound sends, so the cycle is broken here.
func (s *MessageService) SetPusher(p Pusher) {
	if p != nil {
		s.pusher = p
	}
}

type SendInput struct {
	SenderID   string
	ReceiverID string
	Content    string
	Type       domain.MessageType
	MediaItems []domain.MediaItem
}

// Send runs the full orchestration: block check, conversation resolve,
// atomic message+status write, presence-aware delivery upgrade, event
// emission and live push. The write is the only step allowed to fail the
// send; everything after it is best-effort.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	if in.SenderID == "" || in.ReceiverID == "" {
		return nil, apperrors.InvalidArg("sender and receiver are required")
	}
	if in.Content == "" && len(in.MediaItems) == 0 {
		return nil, apperrors.InvalidArg("message content is empty")
	}
	if in.Type == "" {
		in.Type = domain.MessageTypeText
	}
	switch in.Type {
	case domain.MessageTypeText, domain.MessageTypeImage, domain.MessageTypeVideo, domain.MessageTypeFile:
	default:
		return nil, apperrors.InvalidArg("unknown message type")
	}

	if err := s.blocks.AssertNotBlocked(ctx, in.SenderID, in.ReceiverID); err != nil {
		return nil, err
	}

	conv, err := s.conversations.Resolve(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		Content:        in.Content,
		Type:           in.Type,
		MediaItems:     in.MediaItems,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	st := &domain.MessageStatus{
		ID:        uuid.NewString(),
		MessageID: msg.ID,
		UserID:    in.ReceiverID,
		Status:    domain.StatusSent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.messages.CreateWithStatus(ctx, msg, st); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "message persist failed", err)
	}

	s.upgradeIfOnline(ctx, msg)

	if err := s.publisher.Publish(ctx, events.TopicMessageSent, events.MessageSentEvent{
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		ConversationID: msg.ConversationID,
	}); err != nil {
		s.log.Warnw("publish message.sent failed", "message_id", msg.ID, "err", err)
	}

	s.pusher.Push(msg.ReceiverID, events.TopicMessageSent, msg)

	return msg, nil
}

// upgradeIfOnline moves the receiver's status sent -> delivered when the
// receiver holds a live connection, and notifies the sender. Best-effort.
func (s *MessageService) upgradeIfOnline(ctx context.Context, msg *domain.Message) {
	online, err := s.presence.IsOnline(ctx, msg.ReceiverID)
	if err != nil {
		s.log.Warnw("presence lookup failed", "user_id", msg.ReceiverID, "err", err)
		return
	}
	if !online {
		return
	}
	ok, err := s.messages.MarkDelivered(ctx, msg.ID, msg.ReceiverID)
	if err != nil {
		s.log.Warnw("delivered upgrade failed", "message_id", msg.ID, "err", err)
		return
	}
	if ok {
		s.pusher.Push(msg.SenderID, "message.delivered", map[string]string{
			"message_id": msg.ID,
		})
	}
}

// MarkAsRead transitions the (message, user) status row to read. Returns
// false without error when the row is already read or a concurrent caller
// won the conditional update; exactly one winner emits the event.
func (s *MessageService) MarkAsRead(ctx context.Context, messageID, userID string) (bool, error) {
	st, err := s.messages.FindStatus(ctx, messageID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperrors.NotFound("message status not found")
		}
		return false, apperrors.Wrap(apperrors.CodeInternal, "status lookup failed", err)
	}
	if st.Status == domain.StatusRead {
		return false, nil
	}

	ok, err := s.messages.MarkRead(ctx, messageID, userID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeInternal, "status update failed", err)
	}
	if !ok {
		return false, nil
	}

	if err := s.publisher.Publish(ctx, events.TopicMessageRead, events.MessageReadEvent{
		MessageID: messageID,
		UserID:    userID,
	}); err != nil {
		s.log.Warnw("publish message.read failed", "message_id", messageID, "err", err)
	}

	// read receipt back to the original sender, best-effort
	if m, err := s.messages.FindByID(ctx, messageID); err == nil {
		s.pusher.Push(m.SenderID, events.TopicMessageRead, events.MessageReadEvent{
			MessageID: messageID,
			UserID:    userID,
		})
	}

	return true, nil
}

// GetMessages is a side-effect-free query: created_at desc, paged. An
// unknown conversation id yields an empty slice, not an error.
func (s *MessageService) GetMessages(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error) {
	if conversationID == "" {
		return nil, apperrors.InvalidArg("conversation id is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	out, err := s.messages.ListByConversation(ctx, conversationID, page, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "message list failed", err)
	}
	return out, nil
}

// Delete soft-deletes a message. Only the sender may delete; status rows
// survive so read/delivery state stays queryable.
func (s *MessageService) Delete(ctx context.Context, messageID, userID string) error {
	m, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("message not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "message lookup failed", err)
	}
	if m.SenderID != userID {
		return apperrors.Forbidden("only the sender can delete a message")
	}
	if m.DeletedAt != nil {
		return nil
	}
	if err := s.messages.SoftDelete(ctx, messageID, time.Now().UTC()); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "message delete failed", err)
	}
	return nil
}
