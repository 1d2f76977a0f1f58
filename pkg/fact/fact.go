// Package fact defines the persistent fact record — the unit of storage for
// the engram memory engine.
//
// A fact is one atomic assertion distilled from dialog. Records carry both a
// canonical form of the assertion (Memory, which consolidation may rewrite)
// and the untouched extraction output (OriginalMemory, write-once), plus the
// timestamp metadata of the source message and a dense vector embedding.
package fact

import (
	"time"

	"github.com/google/uuid"
)

// QueueEntry is one candidate in a record's update queue: the id of an older
// record plus the cosine similarity score it matched with. Queues are built
// by consolidation phase 1 and consumed by phase 2.
type QueueEntry struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Record is a single stored fact.
type Record struct {
	// ID is the opaque unique identifier, assigned at creation. Immutable.
	ID string

	// TimeStamp is the instant of the source message in ISO-8601 form.
	TimeStamp string

	// FloatTimeStamp is the same instant as seconds since the Unix epoch.
	// Kept redundantly for numeric range filters.
	FloatTimeStamp float64

	// Weekday is the three-letter day code derived from TimeStamp.
	Weekday string

	// Memory is the current canonical fact text. Consolidation may rewrite it.
	Memory string

	// OriginalMemory is the extraction output. Write-once.
	OriginalMemory string

	// CompressedMemory is reserved for a future summarization pass.
	CompressedMemory string

	// Tag fields, reserved for extension.
	Category     string
	Subcategory  string
	MemoryClass  string
	TopicSummary string

	// TopicID is reserved for segmentation. Nil when unassigned.
	TopicID *int64

	// Speaker identity copied from the source message.
	SpeakerID   string
	SpeakerName string

	// HitTime counts retrievals. Monotonically non-decreasing.
	HitTime int

	// UpdateQueue holds consolidation candidates in descending score order.
	UpdateQueue []QueueEntry

	// Embedding is the dense vector for the fact text. Its length must equal
	// the store's configured dimension.
	Embedding []float32

	// CreatedAt records insertion time, ISO-8601.
	CreatedAt string
}

// NewID mints a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// WeekdayCode returns the three-letter day code for t, e.g. "Mon".
func WeekdayCode(t time.Time) string {
	return t.Weekday().String()[:3]
}

// FormatTimeStamp renders t in the ISO-8601 form stored on records.
func FormatTimeStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
