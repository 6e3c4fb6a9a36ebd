package mocks

import (
	"context"
	"sync"
)

// Presence is an in-memory presence.Store.
type Presence struct {
	mu      sync.Mutex
	online  map[string]bool
	sockets map[string]string
	Err     error
}

func NewPresence() *Presence {
	return &Presence{
		online:  make(map[string]bool),
		sockets: make(map[string]string),
	}
}

func (p *Presence) SetOnline(_ context.Context, userID string) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = true
	return nil
}

func (p *Presence) SetOffline(_ context.Context, userID string) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	return nil
}

func (p *Presence) IsOnline(_ context.Context, userID string) (bool, error) {
	if p.Err != nil {
		return false, p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID], nil
}

func (p *Presence) SetSocket(_ context.Context, userID, socketID string) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sockets[userID] = socketID
	return nil
}

func (p *Presence) GetSocket(_ context.Context, userID string) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sockets[userID], nil
}

func (p *Presence) ClearSocket(_ context.Context, userID string) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sockets, userID)
	return nil
}
