// Package eventstream defines transport-neutral fact lifecycle events and
// the Publisher interface backends implement. The engine publishes an event
// after a fact is created, updated, or deleted; publish failures are logged
// by the caller and never abort the enclosing operation.
package eventstream

import (
	"context"
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeFactCreated is emitted after extraction inserts a fact.
	EventTypeFactCreated = "engram.fact.created"

	// EventTypeFactUpdated is emitted after consolidation rewrites a fact.
	EventTypeFactUpdated = "engram.fact.updated"

	// EventTypeFactDeleted is emitted after consolidation removes a fact.
	EventTypeFactDeleted = "engram.fact.deleted"
)

// FactChangedEvent is a transport-neutral event payload for a fact
// lifecycle transition.
type FactChangedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	FactID        string    `json:"fact_id"`
	Memory        string    `json:"memory,omitempty"`
	SpeakerID     string    `json:"speaker_id,omitempty"`
}

// Publisher publishes fact events to an event stream backend.
type Publisher interface {
	PublishFact(ctx context.Context, event *FactChangedEvent) error
	Close() error
}
