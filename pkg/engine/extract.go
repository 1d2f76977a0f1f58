package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/engram/pkg/llm"
)

// Extracted is one (source id, fact) pair cited by the extraction LLM.
type Extracted struct {
	SourceID int
	Fact     string
}

// SegmentResult is the outcome of extracting one segment. A failed segment
// yields zero facts and carries the error; other segments proceed
// independently.
type SegmentResult struct {
	Facts    []Extracted
	Usage    llm.Usage
	Prompt   string
	Response string
	Err      error
}

// RenderSegment renders kept messages one line per message in the fixed
// extraction format. Messages whose role the policy drops are skipped;
// their sequence numbers are not reassigned.
func RenderSegment(segment []Normalized, policy RolePolicy) string {
	var sb strings.Builder

	for _, msg := range segment {
		if !policy.Keeps(msg.Role) {
			continue
		}

		speaker := msg.SpeakerName
		if speaker == "" {
			speaker = msg.Role
		}

		fmt.Fprintf(&sb, "[%s, %s] %d.%s: %s\n", msg.ISO, msg.Weekday, msg.SourceID(), speaker, msg.Content)
	}

	return sb.String()
}

// extractSegments runs the extraction LLM over each segment independently.
func (e *Engine) extractSegments(ctx context.Context, segments [][]Normalized) []SegmentResult {
	results := make([]SegmentResult, 0, len(segments))

	for k, segment := range segments {
		rendered := RenderSegment(segment, e.config.MessagesUse)
		if strings.TrimSpace(rendered) == "" {
			results = append(results, SegmentResult{})
			continue
		}

		userPrompt := fmt.Sprintf("--- Topic %d ---\n%s", k, rendered)

		reply, err := e.config.Chat.Complete(ctx, llm.Request{
			System:       extractionPrompt,
			User:         userPrompt,
			MaxTokens:    e.config.MaxTokens,
			JSONResponse: true,
		})
		if err != nil {
			e.logger.Warn("extraction call failed", "segment", k, "error", err)
			results = append(results, SegmentResult{Prompt: userPrompt, Err: err})
			continue
		}

		facts, err := parseExtractionReply(reply.Content)
		if err != nil {
			e.logger.Warn("extraction reply unparseable", "segment", k, "error", err)
			results = append(results, SegmentResult{
				Usage:    reply.Usage,
				Prompt:   userPrompt,
				Response: reply.Content,
				Err:      err,
			})
			continue
		}

		results = append(results, SegmentResult{
			Facts:    facts,
			Usage:    reply.Usage,
			Prompt:   userPrompt,
			Response: reply.Content,
		})
	}

	return results
}

// parseExtractionReply parses the LLM's JSON into (source id, fact) pairs.
// Accepted forms: {"data":[...]} or a bare array. Items missing a required
// field, or with a non-integer source_id or non-string fact, are rejected;
// extra keys are ignored.
func parseExtractionReply(content string) ([]Extracted, error) {
	payload := StripCodeFence(content)

	var items []json.RawMessage

	var object struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(payload), &object); err == nil && object.Data != nil {
		items = object.Data
	} else if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("extraction reply is neither object nor array: %w", err)
	}

	facts := make([]Extracted, 0, len(items))
	for _, raw := range items {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}

		rawID, okID := item["source_id"]
		rawFact, okFact := item["fact"]
		if !okID || !okFact {
			continue
		}

		var sourceID int
		if err := json.Unmarshal(rawID, &sourceID); err != nil {
			continue
		}

		var factText string
		if err := json.Unmarshal(rawFact, &factText); err != nil || factText == "" {
			continue
		}

		facts = append(facts, Extracted{SourceID: sourceID, Fact: factText})
	}

	return facts, nil
}

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line.
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
