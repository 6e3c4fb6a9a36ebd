package api

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/fathima-sithara/dm-service/internal/service"
	"github.com/fathima-sithara/dm-service/pkg/apperrors"
	"github.com/gofiber/fiber/v2"
)

const requestTimeout = 5 * time.Second

type Handlers struct {
	messages      *service.MessageService
	conversations *service.ConversationService
	blocks        *service.BlockService
	users         repository.UserRepository
}

func NewHandlers(
	messages *service.MessageService,
	conversations *service.ConversationService,
	blocks *service.BlockService,
	users repository.UserRepository,
) *Handlers {
	return &Handlers{
		messages:      messages,
		conversations: conversations,
		blocks:        blocks,
		users:         users,
	}
}

func statusFromError(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case apperrors.CodeNotFound:
		return fiber.StatusNotFound
	case apperrors.CodePermissionDenied:
		return fiber.StatusForbidden
	case apperrors.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case apperrors.CodeAlreadyExists:
		return fiber.StatusConflict
	case apperrors.CodeExhausted:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler is the app-wide fiber error handler: every error returned
// by a handler or middleware lands here and is mapped through the
// AppError code taxonomy.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return c.Status(statusFromError(err)).JSON(fiber.Map{"error": err.Error()})
}

func (h *Handlers) sendMessage(c *fiber.Ctx) error {
	var req struct {
		ReceiverID string             `json:"receiver_id"`
		Content    string             `json:"content"`
		Type       domain.MessageType `json:"type"`
		MediaItems []domain.MediaItem `json:"media_items"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperrors.InvalidArg("invalid body")
	}
	user := c.Locals("user_id").(string)
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()
	msg, err := h.messages.Send(ctx, service.SendInput{
		SenderID:   user,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Type:       req.Type,
		MediaItems: req.MediaItems,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok", "data": msg})
}

func (h *Handlers) markRead(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	success, err := h.messages.MarkAsRead(c.Context(), c.Params("id"), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": success})
}

func (h *Handlers) deleteMessage(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	if err := h.messages.Delete(c.Context(), c.Params("id"), user); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handlers) listMessages(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	msgs, err := h.messages.GetMessages(c.Context(), c.Params("id"), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "data": msgs})
}

func (h *Handlers) listConversations(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	convs, err := h.conversations.ListForUser(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "data": convs})
}

func (h *Handlers) getConversation(c *fiber.Ctx) error {
	conv, err := h.conversations.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "data": conv})
}

func (h *Handlers) blockUser(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	if err := h.blocks.Block(c.Context(), user, c.Params("user_id")); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

func (h *Handlers) unblockUser(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	if err := h.blocks.Unblock(c.Context(), user, c.Params("user_id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handlers) listBlocks(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	blocks, err := h.blocks.ListBlocked(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "data": blocks})
}

func (h *Handlers) getUser(c *fiber.Ctx) error {
	u, err := h.users.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("user not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "user lookup failed", err)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": u})
}
