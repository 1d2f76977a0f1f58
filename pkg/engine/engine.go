package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/fact"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/store"
)

// Config holds the engine's collaborators and tunables.
type Config struct {
	// Store persists fact records. Required.
	Store store.Driver

	// Chat is the extraction and consolidation LLM. Required.
	Chat llm.Chat

	// Embedder maps text to vectors. Required. Wrap with
	// embeddings/cache to honor the lossless-cache contract.
	Embedder embeddings.Embedder

	// Events receives fact lifecycle events. Optional; nil disables.
	Events eventstream.Publisher

	// Logger is the engine logger. Required.
	Logger *slog.Logger

	// MessagesUse selects which roles the extractor reads.
	// Defaults to RoleHybrid.
	MessagesUse RolePolicy

	// ExtractTrigger is the buffered message count that fires extraction.
	ExtractTrigger int

	// TokenBudget is the approximate-token total that fires extraction.
	TokenBudget int

	// StepOffset is the per-marker bump for shared session stamps.
	StepOffset time.Duration

	// MaxTokens caps LLM completions. Zero means provider default.
	MaxTokens int

	// ReembedOnUpdate recomputes a record's embedding when consolidation
	// rewrites its memory. Off by default: the stale vector keeps
	// retrieval local to the original evidence.
	ReembedOnUpdate bool
}

// OperationStats are the accumulated LLM counters for one operation class.
type OperationStats struct {
	Calls            int `json:"calls"`
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

func (s *OperationStats) add(u llm.Usage) {
	s.Calls++
	s.PromptTokens += u.PromptTokens
	s.CompletionTokens += u.CompletionTokens
	s.TotalTokens += u.TotalTokens
}

// EmbeddingStats are the embedder's counters.
type EmbeddingStats struct {
	Calls  int `json:"calls"`
	Tokens int `json:"tokens"`
}

// Statistics is the engine's accumulated token accounting.
type Statistics struct {
	AddMemory OperationStats `json:"addMemory"`
	Update    OperationStats `json:"update"`
	Embedding EmbeddingStats `json:"embedding"`
}

// Engine binds the normalizer, buffer, extractor, embedder, store, and
// consolidator, and exposes the public memory operations.
type Engine struct {
	config     Config
	logger     *slog.Logger
	normalizer *Normalizer
	buffer     *Buffer

	addMemoryStats OperationStats
	updateStats    OperationStats
}

// New validates the configuration and constructs an engine.
func New(config Config) (*Engine, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrNotConfigured)
	}
	if config.Chat == nil {
		return nil, fmt.Errorf("%w: chat client is required", ErrNotConfigured)
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNotConfigured)
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ErrNotConfigured)
	}
	if config.MessagesUse == "" {
		config.MessagesUse = RoleHybrid
	}

	return &Engine{
		config:     config,
		logger:     config.Logger,
		normalizer: NewNormalizer(config.StepOffset),
		buffer:     NewBuffer(config.ExtractTrigger, config.TokenBudget),
	}, nil
}

// AddOptions modifies one AddMemory call.
type AddOptions struct {
	// ForceExtract runs extraction immediately regardless of the buffer
	// triggers.
	ForceExtract bool
}

// AddResult reports what one AddMemory call did, including the raw prompt
// and response for audit.
type AddResult struct {
	Extracted    bool   `json:"extracted"`
	FactsCreated int    `json:"factsCreated"`
	Buffered     int    `json:"buffered"`
	Prompt       string `json:"prompt,omitempty"`
	Response     string `json:"response,omitempty"`
}

// AddMemory normalizes and buffers messages, and runs the extraction
// pipeline when a trigger fires or opts.ForceExtract is set. The whole
// buffered batch is rendered as one segment (topic segmentation is a stub).
func (e *Engine) AddMemory(ctx context.Context, messages []Message, opts AddOptions) (*AddResult, error) {
	normalized, err := e.normalizer.Normalize(messages)
	if err != nil {
		return nil, err
	}

	ready := e.buffer.Push(normalized)
	if !ready && !opts.ForceExtract {
		return &AddResult{Buffered: e.buffer.Len()}, nil
	}

	segment := e.buffer.Flush()
	e.normalizer.ResetSequence()
	if len(segment) == 0 {
		return &AddResult{}, nil
	}

	results := e.extractSegments(ctx, [][]Normalized{segment})

	result := &AddResult{Extracted: true}
	for _, seg := range results {
		e.addMemoryStats.add(seg.Usage)
		result.Prompt = seg.Prompt
		result.Response = seg.Response

		if seg.Err != nil {
			continue
		}

		created, err := e.synthesize(ctx, segment, seg.Facts)
		if err != nil {
			return nil, err
		}
		result.FactsCreated += created
	}

	e.logger.Info("added memory",
		"messages", len(messages),
		"facts_created", result.FactsCreated,
	)

	return result, nil
}

// synthesize turns extracted facts into records: resolves each fact's source
// message by source id, embeds the fact texts in one batch, and inserts.
func (e *Engine) synthesize(ctx context.Context, segment []Normalized, extracted []Extracted) (int, error) {
	if len(extracted) == 0 {
		return 0, nil
	}

	texts := make([]string, len(extracted))
	for i, ex := range extracted {
		texts[i] = ex.Fact
	}

	vectors, err := e.config.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		// Upstream-unavailable: report zero facts for this segment.
		e.logger.Warn("embedding extracted facts failed", "error", err)
		return 0, nil
	}

	created := 0
	for i, ex := range extracted {
		rec := e.newRecord(segment, ex)
		rec.Embedding = vectors[i]

		if err := e.config.Store.Insert(ctx, rec); err != nil {
			return created, fmt.Errorf("inserting fact: %w", err)
		}
		created++

		e.publish(ctx, eventstream.EventTypeFactCreated, rec.ID, rec.Memory, rec.SpeakerID)
	}

	return created, nil
}

// newRecord synthesizes a record from an extracted fact and its segment.
// The source message is the one whose floor(sequence/2) equals the cited
// source id; absent a match, timestamps default to now and speaker fields
// stay empty.
func (e *Engine) newRecord(segment []Normalized, ex Extracted) *fact.Record {
	rec := &fact.Record{
		ID:             fact.NewID(),
		Memory:         ex.Fact,
		OriginalMemory: ex.Fact,
		UpdateQueue:    []fact.QueueEntry{},
	}

	for _, msg := range segment {
		if msg.SourceID() != ex.SourceID {
			continue
		}

		rec.TimeStamp = msg.ISO
		rec.FloatTimeStamp = msg.Float
		rec.Weekday = msg.Weekday
		rec.SpeakerID = msg.SpeakerID
		rec.SpeakerName = msg.SpeakerName

		return rec
	}

	now := time.Now().UTC()
	rec.TimeStamp = fact.FormatTimeStamp(now)
	rec.FloatTimeStamp = float64(now.UnixMilli()) / 1000.0
	rec.Weekday = fact.WeekdayCode(now)

	return rec
}

// Retrieve embeds the query, searches the store, bumps each returned
// record's hit counter, and formats one result per line as
// "<timeStamp> <weekday> <memory>". An empty result yields an empty string.
func (e *Engine) Retrieve(ctx context.Context, query string, k int, filters store.Filters) (string, error) {
	hits, err := e.Search(ctx, query, k, filters)
	if err != nil {
		return "", err
	}

	return FormatHits(hits), nil
}

// Search is the structured form of Retrieve: it embeds the query, runs the
// store search, and bumps hit counters.
func (e *Engine) Search(ctx context.Context, query string, k int, filters store.Filters) ([]store.Hit, error) {
	vec, err := e.config.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := e.config.Store.Search(ctx, vec, k, filters)
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}

	for _, hit := range hits {
		bumped := hit.Record.HitTime + 1
		if err := e.config.Store.Update(ctx, hit.ID, store.Patch{HitTime: &bumped}); err != nil {
			e.logger.Warn("hit counter bump failed", "id", hit.ID, "error", err)
		}
	}

	return hits, nil
}

// FormatHits renders search hits in the retrieval line format.
func FormatHits(hits []store.Hit) string {
	out := ""
	for _, hit := range hits {
		out += fmt.Sprintf("%s %s %s\n", hit.Record.TimeStamp, hit.Record.Weekday, hit.Record.Memory)
	}
	return out
}

// TokenStatistics returns the accumulated counters for both LLM operation
// classes and the embedder.
func (e *Engine) TokenStatistics() Statistics {
	usage := e.config.Embedder.Usage()

	return Statistics{
		AddMemory: e.addMemoryStats,
		Update:    e.updateStats,
		Embedding: EmbeddingStats{Calls: usage.Calls, Tokens: usage.Tokens},
	}
}

// Count reports the number of stored facts.
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.config.Store.Count(ctx)
}

// publish emits a fact lifecycle event. Failures are logged, never fatal.
func (e *Engine) publish(ctx context.Context, eventType, factID, memory, speakerID string) {
	if e.config.Events == nil {
		return
	}

	event := &eventstream.FactChangedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventType,
		EventID:       fact.NewID(),
		EmittedAt:     time.Now().UTC(),
		FactID:        factID,
		Memory:        memory,
		SpeakerID:     speakerID,
	}

	if err := e.config.Events.PublishFact(ctx, event); err != nil {
		e.logger.Warn("fact event publish failed",
			"event_type", eventType,
			"fact_id", factID,
			"error", err,
		)
	}
}
