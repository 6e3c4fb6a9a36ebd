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

type ConversationService struct {
	repo repository.ConversationRepository
}

func NewConversationService(repo repository.ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo}
}

// normalizePair sorts the two user ids so the same unordered pair always
// maps to the same (low, high) key.
func normalizePair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Resolve returns the single conversation for the unordered pair, creating
// it on first contact. Concurrent first-contact sends converge on one row:
// the unique pair index rejects the loser, which then re-reads.
func (s *ConversationService) Resolve(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, apperrors.InvalidArg("both user ids are required")
	}
	low, high := normalizePair(userA, userB)

	c, err := s.repo.FindByPair(ctx, low, high)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "conversation lookup failed", err)
	}

	now := time.Now().UTC()
	c = &domain.Conversation{
		ID:        uuid.NewString(),
		UserLow:   low,
		UserHigh:  high,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.repo.Insert(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		// someone else created it, re-read
		c, err = s.repo.FindByPair(ctx, low, high)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, "conversation re-read failed", err)
		}
		return c, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "conversation create failed", err)
	}
	return c, nil
}

func (s *ConversationService) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("conversation not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "conversation lookup failed", err)
	}
	return c, nil
}

func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "conversation list failed", err)
	}
	return out, nil
}
