package mocks

import "sync"

type PushedEvent struct {
	UserID  string
	Event   string
	Payload any
}

// Pusher records gateway pushes. Only users marked Connect receive true.
type Pusher struct {
	mu        sync.Mutex
	pushed    []PushedEvent
	connected map[string]bool
}

func NewPusher() *Pusher {
	return &Pusher{connected: make(map[string]bool)}
}

func (p *Pusher) Connect(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected[userID] = true
}

func (p *Pusher) Push(userID, event string, payload any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected[userID] {
		return false
	}
	p.pushed = append(p.pushed, PushedEvent{UserID: userID, Event: event, Payload: payload})
	return true
}

func (p *Pusher) Pushes() []PushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PushedEvent, len(p.pushed))
	copy(out, p.pushed)
	return out
}

func (p *Pusher) PushesFor(userID string) []PushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []PushedEvent{}
	for _, ev := range p.pushed {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out
}
