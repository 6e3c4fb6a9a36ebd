package api

import (
	"github.com/fathima-sithara/dm-service/internal/auth"
	"github.com/fathima-sithara/dm-service/pkg/apperrors"
	"github.com/fathima-sithara/dm-service/internal/middleware"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/fathima-sithara/dm-service/internal/service"
	"github.com/fathima-sithara/dm-service/internal/ws"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
)

type Deps struct {
	Validator     *auth.Validator
	Messages      *service.MessageService
	Conversations *service.ConversationService
	Blocks        *service.BlockService
	Users         repository.UserRepository
	Limiter       *middleware.RateLimiter // optional
	WS            *ws.Server              // optional
}

func NewServer(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(fiberlogger.New())

	if d.WS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(d.WS.HandleWS()))
	}

	h := NewHandlers(d.Messages, d.Conversations, d.Blocks, d.Users)

	api := app.Group("/v1")

	api.Use(func(c *fiber.Ctx) error {
		token, err := auth.ParseBearer(c.Get("Authorization"))
		if err != nil {
			return apperrors.Unauthorized(err.Error())
		}
		sub, err := d.Validator.Validate(token)
		if err != nil {
			return apperrors.Unauthorized(err.Error())
		}
		c.Locals("user_id", sub)
		return c.Next()
	})

	if d.Limiter != nil {
		api.Use(d.Limiter.MiddlewareByKey(func(c *fiber.Ctx) string {
			if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
				return uid
			}
			return c.IP()
		}))
	}

	api.Post("/messages", h.sendMessage)
	api.Post("/messages/:id/read", h.markRead)
	api.Delete("/messages/:id", h.deleteMessage)
	api.Get("/conversations", h.listConversations)
	api.Get("/conversations/:id", h.getConversation)
	api.Get("/conversations/:id/messages", h.listMessages)
	api.Post("/blocks/:user_id", h.blockUser)
	api.Delete("/blocks/:user_id", h.unblockUser)
	api.Get("/blocks", h.listBlocks)
	api.Get("/users/:id", h.getUser)

	return app
}
