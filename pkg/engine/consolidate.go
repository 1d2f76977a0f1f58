package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/fact"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/store"
)

// Consolidation defaults.
const (
	DefaultTopK           = 20
	DefaultKeepTopN       = 10
	DefaultScoreThreshold = 0.9
)

// ConstructUpdateQueueAllEntries is consolidation phase 1: for every record,
// search the snapshot for similar records whose instant is not later than
// the record's own, drop the self-match, and persist the first keepTopN
// (id, score) pairs as the record's update queue.
//
// No mutation beyond the updateQueue field happens in this phase, so scores
// stay comparable across records.
func (e *Engine) ConstructUpdateQueueAllEntries(ctx context.Context, topK, keepTopN int) error {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if keepTopN <= 0 {
		keepTopN = DefaultKeepTopN
	}

	records, err := e.config.Store.All(ctx, true)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			continue
		}

		lte := rec.FloatTimeStamp
		hits, err := e.config.Store.Search(ctx, rec.Embedding, topK, store.Filters{
			FloatTimeStamp: &store.RangeFilter{LTE: &lte},
		})
		if err != nil {
			return fmt.Errorf("searching candidates for %s: %w", rec.ID, err)
		}

		queue := make([]fact.QueueEntry, 0, keepTopN)
		for _, hit := range hits {
			if hit.ID == rec.ID {
				continue
			}
			queue = append(queue, fact.QueueEntry{ID: hit.ID, Score: hit.Score})
			if len(queue) == keepTopN {
				break
			}
		}

		if err := e.config.Store.Update(ctx, rec.ID, store.Patch{UpdateQueue: &queue}); err != nil {
			return fmt.Errorf("writing update queue for %s: %w", rec.ID, err)
		}
	}

	e.logger.Info("constructed update queues",
		"records", len(records),
		"top_k", topK,
		"keep_top_n", keepTopN,
	)

	return nil
}

// ConsolidateResult reports what one phase-2 run did.
type ConsolidateResult struct {
	Visited int `json:"visited"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Ignored int `json:"ignored"`
	Failed  int `json:"failed"`
}

// decision is the parsed phase-2 LLM reply.
type decision struct {
	Action    string `json:"action"`
	NewMemory string `json:"new_memory"`
}

// OfflineUpdateAllEntries is consolidation phase 2: every record whose
// update queue holds entries at or above the score threshold is judged by
// the LLM against those older source memories, then updated, deleted, or
// left alone. Records are visited sequentially in scan order; a failed LLM
// call on one target is logged and the next proceeds, while a store error
// while applying a decision aborts the run.
//
// Queue entries referencing since-deleted records are skipped; repeated runs
// converge (update writes the new string, delete is idempotent, ignore is a
// no-op).
func (e *Engine) OfflineUpdateAllEntries(ctx context.Context, scoreThreshold float64) (*ConsolidateResult, error) {
	if scoreThreshold <= 0 {
		scoreThreshold = DefaultScoreThreshold
	}

	records, err := e.config.Store.All(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	result := &ConsolidateResult{}

	for _, target := range records {
		sources := e.resolveSources(ctx, target, scoreThreshold)
		if len(sources) == 0 {
			continue
		}

		result.Visited++

		dec, usage, err := e.decideUpdate(ctx, target, sources)
		e.updateStats.add(usage)
		if err != nil {
			e.logger.Warn("consolidation decision failed", "id", target.ID, "error", err)
			result.Failed++
			continue
		}

		switch dec.Action {
		case "delete":
			if err := e.config.Store.Delete(ctx, target.ID); err != nil {
				return result, fmt.Errorf("deleting %s: %w", target.ID, err)
			}
			result.Deleted++
			e.publish(ctx, eventstream.EventTypeFactDeleted, target.ID, "", target.SpeakerID)

		case "update":
			if dec.NewMemory == "" {
				result.Ignored++
				continue
			}

			patch := store.Patch{Memory: &dec.NewMemory}
			if e.config.ReembedOnUpdate {
				vec, err := e.config.Embedder.Embed(ctx, dec.NewMemory)
				if err != nil {
					e.logger.Warn("re-embedding updated memory failed", "id", target.ID, "error", err)
				} else {
					patch.Embedding = vec
				}
			}

			if err := e.config.Store.Update(ctx, target.ID, patch); err != nil {
				return result, fmt.Errorf("updating %s: %w", target.ID, err)
			}
			result.Updated++
			e.publish(ctx, eventstream.EventTypeFactUpdated, target.ID, dec.NewMemory, target.SpeakerID)

		default:
			result.Ignored++
		}
	}

	e.logger.Info("offline update finished",
		"visited", result.Visited,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"ignored", result.Ignored,
		"failed", result.Failed,
	)

	return result, nil
}

// resolveSources loads the records referenced by target's queue entries at
// or above the threshold, in queue order. Dangling entries are tolerated.
func (e *Engine) resolveSources(ctx context.Context, target *fact.Record, threshold float64) []*fact.Record {
	var sources []*fact.Record

	for _, entry := range target.UpdateQueue {
		if entry.Score < threshold {
			continue
		}

		src, err := e.config.Store.Get(ctx, entry.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			e.logger.Warn("loading queue candidate failed", "id", entry.ID, "error", err)
			continue
		}

		sources = append(sources, src)
	}

	return sources
}

// decideUpdate asks the LLM for an update/delete/ignore decision on the
// target given its older source memories. Unknown or missing actions, and
// replies that are not valid JSON, parse as ignore; transport failures
// surface as errors.
func (e *Engine) decideUpdate(ctx context.Context, target *fact.Record, sources []*fact.Record) (decision, llm.Usage, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Target memory:\n%s\n\nOlder related memories:\n", target.Memory)
	for _, src := range sources {
		fmt.Fprintf(&sb, "- %s\n", src.Memory)
	}

	reply, err := e.config.Chat.Complete(ctx, llm.Request{
		System:       updateDecisionPrompt,
		User:         sb.String(),
		MaxTokens:    e.config.MaxTokens,
		JSONResponse: true,
	})
	if err != nil {
		return decision{}, llm.Usage{}, err
	}

	var dec decision
	if err := json.Unmarshal([]byte(StripCodeFence(reply.Content)), &dec); err != nil {
		// Upstream-malformed: never mutates state.
		return decision{Action: "ignore"}, reply.Usage, nil
	}

	switch dec.Action {
	case "update", "delete", "ignore":
	default:
		dec.Action = "ignore"
	}

	return dec, reply.Usage, nil
}
