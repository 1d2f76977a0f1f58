package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	consolidateToolName    = "memory_consolidate"
	consolidateDescription = "Run offline consolidation: build per-fact candidate queues (phase 1), then merge, rewrite, or delete facts whose content has evolved (phase 2)."
)

// ConsolidateInput represents the input arguments for the
// memory_consolidate tool.
type ConsolidateInput struct {
	TopK           int     `json:"top_k,omitempty" jsonschema:"phase-1 candidate search width (default from config)"`
	KeepTopN       int     `json:"keep_top_n,omitempty" jsonschema:"phase-1 queue length cap (default from config)"`
	ScoreThreshold float64 `json:"score_threshold,omitempty" jsonschema:"phase-2 minimum similarity for a queue entry to trigger a decision (default from config)"`
}

// ConsolidateOutput represents the structured output of a consolidation run.
type ConsolidateOutput struct {
	Visited int `json:"visited"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Ignored int `json:"ignored"`
	Failed  int `json:"failed"`
}

// handleConsolidate runs phase 1 then phase 2.
func (s *Server) handleConsolidate(ctx context.Context, _ *mcp.CallToolRequest, input ConsolidateInput) (*mcp.CallToolResult, ConsolidateOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = s.config.TopK
	}
	keepTopN := input.KeepTopN
	if keepTopN <= 0 {
		keepTopN = s.config.KeepTopN
	}
	threshold := input.ScoreThreshold
	if threshold <= 0 {
		threshold = s.config.ScoreThreshold
	}

	if err := s.config.Engine.ConstructUpdateQueueAllEntries(ctx, topK, keepTopN); err != nil {
		s.config.Logger.Error("consolidation phase 1 failed", "error", err)
		return errorResult(fmt.Sprintf("Consolidation phase 1 failed: %v", err)), ConsolidateOutput{}, nil
	}

	result, err := s.config.Engine.OfflineUpdateAllEntries(ctx, threshold)
	if err != nil {
		s.config.Logger.Error("consolidation phase 2 failed", "error", err)
		return errorResult(fmt.Sprintf("Consolidation phase 2 failed: %v", err)), ConsolidateOutput{}, nil
	}

	output := ConsolidateOutput{
		Visited: result.Visited,
		Updated: result.Updated,
		Deleted: result.Deleted,
		Ignored: result.Ignored,
		Failed:  result.Failed,
	}

	payload, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), ConsolidateOutput{}, nil
	}

	return jsonResult(payload), output, nil
}
