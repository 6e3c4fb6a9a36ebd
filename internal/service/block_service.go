package service

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/fathima-sithara/dm-service/pkg/apperrors"
	"github.com/google/uuid"
)

type BlockService struct {
	repo repository.BlockRepository
}

func NewBlockService(repo repository.BlockRepository) *BlockService {
	return &BlockService{repo: repo}
}

// IsBlocked checks the directional tuple "receiver has blocked sender".
// A sender blocking the receiver does not stop the sender's own message.
func (s *BlockService) IsBlocked(ctx context.Context, senderID, receiverID string) (bool, error) {
	return s.repo.Exists(ctx, receiverID, senderID)
}

func (s *BlockService) AssertNotBlocked(ctx context.Context, senderID, receiverID string) error {
	blocked, err := s.IsBlocked(ctx, senderID, receiverID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "block lookup failed", err)
	}
	if blocked {
		return apperrors.Forbidden("you cannot message this user")
	}
	return nil
}

// Block is idempotent; self-block is a silent no-op.
func (s *BlockService) Block(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return nil
	}
	b := &domain.UserBlock{
		ID:        uuid.NewString(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: time.Now().UTC(),
	}
	err := s.repo.Insert(ctx, b)
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return apperrors.Wrap(apperrors.CodeInternal, "block create failed", err)
	}
	return nil
}

// Unblock is idempotent: unblocking a non-existent block is a no-op.
func (s *BlockService) Unblock(ctx context.Context, blockerID, blockedID string) error {
	if err := s.repo.Delete(ctx, blockerID, blockedID); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "block delete failed", err)
	}
	return nil
}

func (s *BlockService) ListBlocked(ctx context.Context, blockerID string) ([]domain.UserBlock, error) {
	out, err := s.repo.ListByBlocker(ctx, blockerID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "block list failed", err)
	}
	return out, nil
}
