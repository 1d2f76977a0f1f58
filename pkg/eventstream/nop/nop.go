// Package nop provides a no-op eventstream publisher for tests and
// disabled mode.
package nop

import (
	"context"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishFact validates input and otherwise does nothing.
func (p *Publisher) PublishFact(_ context.Context, event *eventstream.FactChangedEvent) error {
	if event == nil {
		return eventstream.ErrNilFactEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
