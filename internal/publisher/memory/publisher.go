// Package memory keeps published archive requests in process for tests and
// single-node deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the message and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, PublishedMessage{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// Messages returns a copy of the recorded publishes.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// ArchiveRequests returns the archive requests published so far, in order.
func (p *Publisher) ArchiveRequests() []autoarchive.ArchiveRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []autoarchive.ArchiveRequest
	for _, msg := range p.messages {
		if req, ok := msg.Payload.(autoarchive.ArchiveRequest); ok {
			out = append(out, req)
		}
	}
	return out
}
