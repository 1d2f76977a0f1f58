// Package store defines the fact store contract: CRUD over fact records plus
// vector similarity search with metadata filters.
//
// The search contract is behavioral, not algorithmic: results are the top-k
// records by cosine similarity, descending, with ties broken by ascending
// record id. Implementations may scan brute-force; a specialized index must
// reproduce the same ordering and filter semantics.
package store

import (
	"context"

	"github.com/papercomputeco/engram/pkg/fact"
)

// RangeFilter is an inclusive numeric range. Nil bounds are open.
type RangeFilter struct {
	GTE *float64
	LTE *float64
}

// Filters restricts a search. All set predicates are AND-combined.
type Filters struct {
	// FloatTimeStamp filters on the numeric timestamp, inclusive both ends.
	FloatTimeStamp *RangeFilter

	// SpeakerID matches records with exactly this speaker id.
	SpeakerID *string

	// Category matches records with exactly this category tag.
	Category *string
}

// Patch is a field-level update. Nil fields are left untouched. Identity
// fields and OriginalMemory are immutable and have no patch slot.
type Patch struct {
	Memory      *string
	Category    *string
	Subcategory *string
	HitTime     *int

	// UpdateQueue replaces the whole queue when non-nil. An empty (non-nil)
	// slice clears it.
	UpdateQueue *[]fact.QueueEntry

	// Embedding replaces the stored vector when non-nil.
	Embedding []float32
}

// Hit is one search result.
type Hit struct {
	ID     string
	Score  float64
	Record *fact.Record
}

// Driver persists fact records with their embeddings.
type Driver interface {
	// Insert upserts a record by id. The record's embedding length must
	// equal the store's configured dimension.
	Insert(ctx context.Context, rec *fact.Record) error

	// Get reads a single record, embedding included.
	// Returns ErrNotFound when no record has the id.
	Get(ctx context.Context, id string) (*fact.Record, error)

	// All returns every record. Order is unspecified. Embeddings are
	// omitted unless includeEmbedding is set.
	All(ctx context.Context, includeEmbedding bool) ([]*fact.Record, error)

	// Update applies a field-level patch to an existing record.
	// Returns ErrNotFound when no record has the id.
	Update(ctx context.Context, id string, patch Patch) error

	// Delete hard-removes a record. Deleting a missing id is a no-op.
	Delete(ctx context.Context, id string) error

	// Count returns the total number of records.
	Count(ctx context.Context) (int, error)

	// Search returns the top-k records by cosine similarity to query,
	// descending, restricted to records satisfying the filters.
	Search(ctx context.Context, query []float32, k int, filters Filters) ([]Hit, error)

	// Dimensions reports the configured embedding dimension.
	Dimensions() int

	// Close releases resources held by the driver.
	Close() error
}
