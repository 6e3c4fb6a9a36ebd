package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/dm-service/internal/auth"
	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/middleware"
	"github.com/fathima-sithara/dm-service/internal/mocks"
	"github.com/fathima-sithara/dm-service/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type env struct {
	app      *fiber.App
	users    *mocks.UserRepo
	blockSvc *service.BlockService
	msgSvc   *service.MessageService
}

func newEnv(t *testing.T, limiter ...*middleware.RateLimiter) *env {
	t.Helper()
	convRepo := mocks.NewConversationRepo()
	conversations := service.NewConversationService(convRepo)
	blocks := service.NewBlockService(mocks.NewBlockRepo())
	messages := service.NewMessageService(
		mocks.NewMessageRepo(convRepo),
		conversations,
		blocks,
		mocks.NewPresence(),
		mocks.NewPublisher(),
		zap.NewNop().Sugar(),
	)
	users := mocks.NewUserRepo()

	validator, err := auth.NewValidatorHS256(testSecret)
	require.NoError(t, err)

	d := Deps{
		Validator:     validator,
		Messages:      messages,
		Conversations: conversations,
		Blocks:        blocks,
		Users:         users,
	}
	if len(limiter) > 0 {
		d.Limiter = limiter[0]
	}
	app := NewServer(d)
	return &env{app: app, users: users, blockSvc: blocks, msgSvc: messages}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, path, userID string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/v1/conversations", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp2, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp2.StatusCode)
}

func TestSendMessageEndpoint(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/v1/messages", "u1", map[string]string{
		"receiver_id": "u2",
		"content":     "hi",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]any)
	assert.Equal(t, "u1", data["sender_id"])
	assert.Equal(t, "u2", data["receiver_id"])
	assert.NotEmpty(t, data["id"])
}

func TestSendMessageBlocked(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.blockSvc.Block(context.Background(), "u2", "u1"))

	resp, _ := e.do(t, http.MethodPost, "/v1/messages", "u1", map[string]string{
		"receiver_id": "u2",
		"content":     "hi",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestMarkReadEndpoint(t *testing.T) {
	e := newEnv(t)
	msg, err := e.msgSvc.Send(context.Background(), service.SendInput{
		SenderID: "u1", ReceiverID: "u2", Content: "hi",
	})
	require.NoError(t, err)

	resp, body := e.do(t, http.MethodPost, "/v1/messages/"+msg.ID+"/read", "u2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	// idempotent re-read is success-shaped false, not an error
	resp, body = e.do(t, http.MethodPost, "/v1/messages/"+msg.ID+"/read", "u2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestMarkReadUnknownMessage(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/v1/messages/nope/read", "u2", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListMessagesPaging(t *testing.T) {
	e := newEnv(t)
	var convID string
	for i := 0; i < 3; i++ {
		msg, err := e.msgSvc.Send(context.Background(), service.SendInput{
			SenderID: "u1", ReceiverID: "u2", Content: fmt.Sprintf("m%d", i),
		})
		require.NoError(t, err)
		convID = msg.ConversationID
		time.Sleep(2 * time.Millisecond)
	}

	resp, body := e.do(t, http.MethodGet, "/v1/conversations/"+convID+"/messages?page=1&limit=2", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, "m2", first["content"])
}

func TestListConversationsEndpoint(t *testing.T) {
	e := newEnv(t)
	_, err := e.msgSvc.Send(context.Background(), service.SendInput{
		SenderID: "u1", ReceiverID: "u2", Content: "hi",
	})
	require.NoError(t, err)

	resp, body := e.do(t, http.MethodGet, "/v1/conversations", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].([]any)
	assert.Len(t, data, 1)
}

func TestBlockEndpoints(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/v1/blocks/u2", "u1", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = e.do(t, http.MethodGet, "/v1/blocks", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 1)

	resp, body = e.do(t, http.MethodDelete, "/v1/blocks/u2", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = e.do(t, http.MethodGet, "/v1/blocks", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) Expire(context.Context, string, time.Duration) error { return nil }

func TestRateLimitedRoutes(t *testing.T) {
	limiter := middleware.NewRateLimiterCounter(
		&memCounter{counts: make(map[string]int64)}, "rl", 2, time.Minute)
	e := newEnv(t, limiter)

	for i := 0; i < 2; i++ {
		resp, _ := e.do(t, http.MethodGet, "/v1/conversations", "u1", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, body := e.do(t, http.MethodGet, "/v1/conversations", "u1", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate limit exceeded", body["error"])

	// buckets are per user
	resp, _ = e.do(t, http.MethodGet, "/v1/conversations", "u2", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetUserEndpoint(t *testing.T) {
	e := newEnv(t)
	e.users.Add(domain.User{ID: "u2", Username: "bob", CreatedAt: time.Now().UTC()})

	resp, body := e.do(t, http.MethodGet, "/v1/users/u2", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "bob", data["username"])

	resp, _ = e.do(t, http.MethodGet, "/v1/users/ghost", "u1", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
