package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fathima-sithara/dm-service/internal/auth"
	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/presence"
	"github.com/fathima-sithara/dm-service/internal/service"
	"github.com/fathima-sithara/dm-service/pkg/apperrors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sendTimeout = 5 * time.Second

// Server drives each connection through its lifecycle: authenticate the
// handshake, register in the hub, mark presence, serve inbound events,
// then tear everything down on disconnect.
type Server struct {
	hub       *Hub
	validator *auth.Validator
	messages  *service.MessageService
	presence  presence.Store
	log       *zap.SugaredLogger

	pingInterval  time.Duration
	writeDeadline time.Duration
	maxMsgSize    int64
}

func NewServer(
	hub *Hub,
	validator *auth.Validator,
	messages *service.MessageService,
	presenceStore presence.Store,
	log *zap.SugaredLogger,
	pingInterval, writeDeadline time.Duration,
	maxMsgSize int64,
) *Server {
	return &Server{
		hub:           hub,
		validator:     validator,
		messages:      messages,
		presence:      presenceStore,
		log:           log,
		pingInterval:  pingInterval,
		writeDeadline: writeDeadline,
		maxMsgSize:    maxMsgSize,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

type sendMessageData struct {
	ReceiverID string             `json:"receiver_id"`
	Content    string             `json:"content"`
	Type       domain.MessageType `json:"type,omitempty"`
	MediaItems []domain.MediaItem `json:"media_items,omitempty"`
}

// HandleWS is mounted behind the fiber websocket middleware.
// Expects the bearer credential in the handshake query: /ws?token=<jwt>.
func (s *Server) HandleWS() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.Close()
			return
		}
		userID, err := s.validator.Validate(token)
		if err != nil {
			// auth failure: close immediately, no state recorded
			_ = conn.Close()
			return
		}

		client := NewClient(userID, uuid.NewString(), conn)
		s.hub.Register(client)

		ctx := context.Background()
		if err := s.presence.SetOnline(ctx, userID); err != nil {
			s.log.Warnw("presence set online failed", "user_id", userID, "err", err)
		}
		if err := s.presence.SetSocket(ctx, userID, client.SocketID); err != nil {
			s.log.Warnw("socket mapping failed", "user_id", userID, "err", err)
		}
		s.log.Infow("connection active", "user_id", userID, "socket_id", client.SocketID)

		go s.writePump(client)
		s.readLoop(client)

		s.hub.Unregister(client)
		s.clearPresence(ctx, client)
		s.log.Infow("connection closed", "user_id", userID, "socket_id", client.SocketID)
	}
}

// clearPresence tears down shared presence state for a closed connection,
// unless the socket mapping already points at a newer connection for the
// same user (the counterpart of the hub's unregister guard).
func (s *Server) clearPresence(ctx context.Context, c *Client) {
	cur, err := s.presence.GetSocket(ctx, c.UserID)
	if err != nil {
		s.log.Warnw("socket lookup failed", "user_id", c.UserID, "err", err)
	} else if cur != "" && cur != c.SocketID {
		return
	}
	if err := s.presence.SetOffline(ctx, c.UserID); err != nil {
		s.log.Warnw("presence set offline failed", "user_id", c.UserID, "err", err)
	}
	if err := s.presence.ClearSocket(ctx, c.UserID); err != nil {
		s.log.Warnw("socket clear failed", "user_id", c.UserID, "err", err)
	}
}

func (s *Server) readLoop(c *Client) {
	c.conn.SetReadLimit(s.maxMsgSize)
	for {
		mt, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		switch env.Event {
		case "send.message":
			s.handleSend(c, env.Data)
		default:
			// unknown events are ignored
		}
	}
}

// handleSend runs the full send orchestration attributed to the
// authenticated connection's user, never a client-supplied sender id,
// and always acks the created message back to the sending connection.
func (s *Server) handleSend(c *Client, data json.RawMessage) {
	var in sendMessageData
	if err := json.Unmarshal(data, &in); err != nil {
		s.pushError(c, apperrors.InvalidArg("malformed send.message payload"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg, err := s.messages.Send(ctx, service.SendInput{
		SenderID:   c.UserID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		Type:       in.Type,
		MediaItems: in.MediaItems,
	})
	if err != nil {
		s.pushError(c, err)
		return
	}
	// recipient push happens inside Send; ack the sender here
	s.push(c, "message.ack", msg)
}

func (s *Server) push(c *Client, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func (s *Server) pushError(c *Client, err error) {
	s.push(c, "error", map[string]string{
		"code":    string(apperrors.CodeOf(err)),
		"message": err.Error(),
	})
}

func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.closed:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.log.Warnw("write failed", "user_id", c.UserID, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
