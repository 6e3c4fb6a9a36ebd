package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/events"
	"github.com/fathima-sithara/dm-service/internal/mocks"
	"github.com/fathima-sithara/dm-service/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	msgs      *mocks.MessageRepo
	convs     *mocks.ConversationRepo
	blocks    *mocks.BlockRepo
	presence  *mocks.Presence
	publisher *mocks.Publisher
	pusher    *mocks.Pusher
	svc       *MessageService
	blockSvc  *BlockService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	convs := mocks.NewConversationRepo()
	f := &fixture{
		msgs:      mocks.NewMessageRepo(convs),
		convs:     convs,
		blocks:    mocks.NewBlockRepo(),
		presence:  mocks.NewPresence(),
		publisher: mocks.NewPublisher(),
		pusher:    mocks.NewPusher(),
	}
	convSvc := NewConversationService(f.convs)
	f.blockSvc = NewBlockService(f.blocks)
	f.svc = NewMessageService(f.msgs, convSvc, f.blockSvc, f.presence, f.publisher, zap.NewNop().Sugar())
	f.svc.SetPusher(f.pusher)
	return f
}

func (f *fixture) send(t *testing.T, sender, receiver, content string) *domain.Message {
	t.Helper()
	msg, err := f.svc.Send(context.Background(), SendInput{
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
	})
	require.NoError(t, err)
	return msg
}

func TestSendOfflineReceiver(t *testing.T) {
	f := newFixture(t)

	msg := f.send(t, "u1", "u2", "hi")

	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, "u2", msg.ReceiverID)
	assert.Equal(t, domain.MessageTypeText, msg.Type)
	assert.NotEmpty(t, msg.ID)
	assert.NotEmpty(t, msg.ConversationID)

	st, err := f.msgs.FindStatus(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, st.Status)

	evs := f.publisher.EventsFor(events.TopicMessageSent)
	require.Len(t, evs, 1)
	sent := evs[0].Payload.(events.MessageSentEvent)
	assert.Equal(t, msg.ID, sent.MessageID)
	assert.Equal(t, "u1", sent.SenderID)
	assert.Equal(t, "u2", sent.ReceiverID)
	assert.Equal(t, msg.ConversationID, sent.ConversationID)
}

func TestSendOnlineReceiverDelivered(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.presence.SetOnline(context.Background(), "u2"))
	f.pusher.Connect("u2")
	f.pusher.Connect("u1")

	msg := f.send(t, "u1", "u2", "hi")

	st, err := f.msgs.FindStatus(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, st.Status)

	// receiver gets the message push, sender gets the delivered notice
	receiverPushes := f.pusher.PushesFor("u2")
	require.Len(t, receiverPushes, 1)
	assert.Equal(t, events.TopicMessageSent, receiverPushes[0].Event)
	pushed := receiverPushes[0].Payload.(*domain.Message)
	assert.Equal(t, msg.ID, pushed.ID)

	senderPushes := f.pusher.PushesFor("u1")
	require.Len(t, senderPushes, 1)
	assert.Equal(t, "message.delivered", senderPushes[0].Event)
}

func TestSendBlockedReceiver(t *testing.T) {
	f := newFixture(t)
	// receiver u2 blocks sender u1
	require.NoError(t, f.blockSvc.Block(context.Background(), "u2", "u1"))

	_, err := f.svc.Send(context.Background(), SendInput{
		SenderID:   "u1",
		ReceiverID: "u2",
		Content:    "hi",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))

	// no rows, no events
	assert.Equal(t, 0, f.msgs.MessageCount())
	assert.Equal(t, 0, f.msgs.StatusCount())
	assert.Equal(t, 0, f.convs.Count())
	assert.Empty(t, f.publisher.Events())
}

func TestSendBlockIsDirectional(t *testing.T) {
	f := newFixture(t)
	// sender u1 blocked u2; u1's own outgoing message still goes through
	require.NoError(t, f.blockSvc.Block(context.Background(), "u1", "u2"))

	msg := f.send(t, "u1", "u2", "hi")
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, 1, f.msgs.MessageCount())
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendInput{SenderID: "u1", Content: "hi"})
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))

	_, err = f.svc.Send(ctx, SendInput{SenderID: "u1", ReceiverID: "u2"})
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))

	_, err = f.svc.Send(ctx, SendInput{SenderID: "u1", ReceiverID: "u2", Content: "hi", Type: "sticker"})
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestSendPublishFailureDoesNotFailSend(t *testing.T) {
	f := newFixture(t)
	f.publisher.Err = errors.New("broker down")

	msg := f.send(t, "u1", "u2", "hi")
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, 1, f.msgs.MessageCount())
}

func TestSendPresenceFailureDoesNotFailSend(t *testing.T) {
	f := newFixture(t)
	f.presence.Err = errors.New("redis down")

	msg := f.send(t, "u1", "u2", "hi")

	st, err := f.msgs.FindStatus(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, st.Status)
}

func TestSendReusesConversationAcrossDirections(t *testing.T) {
	f := newFixture(t)

	m1 := f.send(t, "u1", "u2", "hi")
	m2 := f.send(t, "u2", "u1", "hello back")

	assert.Equal(t, m1.ConversationID, m2.ConversationID)
	assert.Equal(t, 1, f.convs.Count())
}

func TestMarkAsRead(t *testing.T) {
	f := newFixture(t)
	f.pusher.Connect("u1")
	msg := f.send(t, "u1", "u2", "hi")

	ok, err := f.svc.MarkAsRead(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	st, err := f.msgs.FindStatus(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, st.Status)

	evs := f.publisher.EventsFor(events.TopicMessageRead)
	require.Len(t, evs, 1)
	read := evs[0].Payload.(events.MessageReadEvent)
	assert.Equal(t, msg.ID, read.MessageID)
	assert.Equal(t, "u2", read.UserID)

	// read receipt lands on the sender's connection
	senderPushes := f.pusher.PushesFor("u1")
	require.Len(t, senderPushes, 1)
	assert.Equal(t, events.TopicMessageRead, senderPushes[0].Event)
}

func TestMarkAsReadIdempotent(t *testing.T) {
	f := newFixture(t)
	msg := f.send(t, "u1", "u2", "hi")

	ok, err := f.svc.MarkAsRead(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		ok, err = f.svc.MarkAsRead(context.Background(), msg.ID, "u2")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	// status never regresses and the event fires exactly once
	st, err := f.msgs.FindStatus(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, st.Status)
	assert.Len(t, f.publisher.EventsFor(events.TopicMessageRead), 1)
}

func TestMarkAsReadUnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.MarkAsRead(context.Background(), "no-such-message", "u2")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestMarkAsReadFromDelivered(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.presence.SetOnline(context.Background(), "u2"))
	msg := f.send(t, "u1", "u2", "hi")

	st, err := f.msgs.FindStatus(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, st.Status)

	ok, err := f.svc.MarkAsRead(context.Background(), msg.ID, "u2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetMessagesPaging(t *testing.T) {
	f := newFixture(t)

	var convID string
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		msg := f.send(t, "u1", "u2", "m")
		ids = append(ids, msg.ID)
		convID = msg.ConversationID
		time.Sleep(2 * time.Millisecond) // distinct created_at
	}

	page1, err := f.svc.GetMessages(context.Background(), convID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[4], page1[0].ID)
	assert.Equal(t, ids[3], page1[1].ID)

	page2, err := f.svc.GetMessages(context.Background(), convID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, ids[2], page2[0].ID)
	assert.Equal(t, ids[1], page2[1].ID)

	page3, err := f.svc.GetMessages(context.Background(), convID, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, ids[0], page3[0].ID)
}

func TestGetMessagesUnknownConversation(t *testing.T) {
	f := newFixture(t)

	msgs, err := f.svc.GetMessages(context.Background(), "unknown", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDeleteMessage(t *testing.T) {
	f := newFixture(t)
	msg := f.send(t, "u1", "u2", "hi")

	t.Run("only sender can delete", func(t *testing.T) {
		err := f.svc.Delete(context.Background(), msg.ID, "u2")
		assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))
	})

	t.Run("soft delete keeps status rows", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(context.Background(), msg.ID, "u1"))

		msgs, err := f.svc.GetMessages(context.Background(), msg.ConversationID, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		// delivery state stays queryable after deletion
		st, err := f.msgs.FindStatus(context.Background(), msg.ID, "u2")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSent, st.Status)
	})

	t.Run("delete twice is a no-op", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(context.Background(), msg.ID, "u1"))
	})

	t.Run("unknown message", func(t *testing.T) {
		err := f.svc.Delete(context.Background(), "nope", "u1")
		assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	})
}

func TestSendBumpsConversationOrdering(t *testing.T) {
	f := newFixture(t)
	convSvc := NewConversationService(f.convs)

	f.send(t, "u1", "u2", "first")
	time.Sleep(2 * time.Millisecond)
	f.send(t, "u1", "u3", "second")
	time.Sleep(2 * time.Millisecond)
	f.send(t, "u2", "u1", "third")

	convs, err := convSvc.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	// the u1/u2 conversation saw the latest activity
	low, high := "u1", "u2"
	assert.Equal(t, low, convs[0].UserLow)
	assert.Equal(t, high, convs[0].UserHigh)
}
