package memory

import (
	"context"
	"sync"

	"github.com/code-payments/code-launchpad/pkg/launchpad/event"
)

// Publisher records published messages in memory.
type Publisher struct {
	mu       sync.Mutex
	messages []event.Message
	err      error
}

func New() *Publisher {
	return &Publisher{}
}

// SetError makes every subsequent Publish fail with err.
func (p *Publisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.err = err
}

func (p *Publisher) Publish(_ context.Context, msg event.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *Publisher) Close() error {
	return nil
}

// Messages returns every message published so far.
func (p *Publisher) Messages() []event.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]event.Message(nil), p.messages...)
}
