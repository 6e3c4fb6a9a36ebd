package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/repository"
)

type pairKey struct{ a, b string }

// ConversationRepo is an in-memory repository.ConversationRepository with
// the same uniqueness semantics as the Mongo index.
type ConversationRepo struct {
	mu    sync.Mutex
	pairs map[pairKey]*domain.Conversation
	byID  map[string]*domain.Conversation
}

func NewConversationRepo() *ConversationRepo {
	return &ConversationRepo{
		pairs: make(map[pairKey]*domain.Conversation),
		byID:  make(map[string]*domain.Conversation),
	}
}

func (r *ConversationRepo) FindByPair(_ context.Context, low, high string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.pairs[pairKey{low, high}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ConversationRepo) Insert(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{c.UserLow, c.UserHigh}
	if _, ok := r.pairs[key]; ok {
		return repository.ErrDuplicate
	}
	cp := *c
	r.pairs[key] = &cp
	r.byID[c.ID] = &cp
	return nil
}

func (r *ConversationRepo) FindByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ConversationRepo) ListByUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Conversation{}
	for _, c := range r.byID {
		if c.UserLow == userID || c.UserHigh == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *ConversationRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *ConversationRepo) touch(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byID[id]; ok {
		c.UpdatedAt = at
	}
}

// MessageRepo is an in-memory repository.MessageRepository.
type MessageRepo struct {
	mu         sync.Mutex
	msgs       map[string]*domain.Message
	statuses   map[pairKey]*domain.MessageStatus
	convs      *ConversationRepo // optional, for updated_at bumps
	FailCreate error
}

func NewMessageRepo(convs *ConversationRepo) *MessageRepo {
	return &MessageRepo{
		msgs:     make(map[string]*domain.Message),
		statuses: make(map[pairKey]*domain.MessageStatus),
		convs:    convs,
	}
}

func (r *MessageRepo) CreateWithStatus(_ context.Context, m *domain.Message, st *domain.MessageStatus) error {
	if r.FailCreate != nil {
		return r.FailCreate
	}
	r.mu.Lock()
	mc := *m
	sc := *st
	r.msgs[m.ID] = &mc
	r.statuses[pairKey{st.MessageID, st.UserID}] = &sc
	r.mu.Unlock()
	if r.convs != nil {
		r.convs.touch(m.ConversationID, m.CreatedAt)
	}
	return nil
}

func (r *MessageRepo) FindByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MessageRepo) ListByConversation(_ context.Context, conversationID string, page, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []domain.Message{}
	for _, m := range r.msgs {
		if m.ConversationID == conversationID && m.DeletedAt == nil {
			all = append(all, *m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := (page - 1) * limit
	if start >= len(all) {
		return []domain.Message{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *MessageRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.DeletedAt = &at
	m.UpdatedAt = at
	return nil
}

func (r *MessageRepo) FindStatus(_ context.Context, messageID, userID string) (*domain.MessageStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[pairKey{messageID, userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *MessageRepo) MarkDelivered(_ context.Context, messageID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[pairKey{messageID, userID}]
	if !ok || st.Status != domain.StatusSent {
		return false, nil
	}
	st.Status = domain.StatusDelivered
	st.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MessageRepo) MarkRead(_ context.Context, messageID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[pairKey{messageID, userID}]
	if !ok || st.Status == domain.StatusRead {
		return false, nil
	}
	st.Status = domain.StatusRead
	st.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MessageRepo) MessageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *MessageRepo) StatusCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}

// BlockRepo is an in-memory repository.BlockRepository.
type BlockRepo struct {
	mu     sync.Mutex
	blocks map[pairKey]*domain.UserBlock
}

func NewBlockRepo() *BlockRepo {
	return &BlockRepo{blocks: make(map[pairKey]*domain.UserBlock)}
}

func (r *BlockRepo) Exists(_ context.Context, blockerID, blockedID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.blocks[pairKey{blockerID, blockedID}]
	return ok, nil
}

func (r *BlockRepo) Insert(_ context.Context, b *domain.UserBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{b.BlockerID, b.BlockedID}
	if _, ok := r.blocks[key]; ok {
		return repository.ErrDuplicate
	}
	cp := *b
	r.blocks[key] = &cp
	return nil
}

func (r *BlockRepo) Delete(_ context.Context, blockerID, blockedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocks, pairKey{blockerID, blockedID})
	return nil
}

func (r *BlockRepo) ListByBlocker(_ context.Context, blockerID string) ([]domain.UserBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.UserBlock{}
	for _, b := range r.blocks {
		if b.BlockerID == blockerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *BlockRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blocks)
}

// UserRepo is an in-memory repository.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*domain.User)}
}

func (r *UserRepo) Add(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = &u
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
