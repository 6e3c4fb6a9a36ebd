package mocks

import (
	"context"
	"sync"
)

type PublishedEvent struct {
	Topic   string
	Payload any
}

// Publisher records published events; set Err to simulate a broker outage.
type Publisher struct {
	mu        sync.Mutex
	published []PublishedEvent
	Err       error
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(_ context.Context, topic string, payload any) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, PublishedEvent{Topic: topic, Payload: payload})
	return nil
}

func (p *Publisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.published))
	copy(out, p.published)
	return out
}

func (p *Publisher) EventsFor(topic string) []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []PublishedEvent{}
	for _, ev := range p.published {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}
