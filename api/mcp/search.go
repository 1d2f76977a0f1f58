package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/store"
)

var (
	searchToolName    = "memory_search"
	searchDescription = "Search stored memories by semantic similarity. Returns the most relevant facts with their timestamps, speakers, and similarity scores."
)

// SearchInput represents the input arguments for the memory_search tool.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"the search query text"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
	After     *float64 `json:"after,omitempty" jsonschema:"only facts at or after this epoch-seconds timestamp"`
	Before    *float64 `json:"before,omitempty" jsonschema:"only facts at or before this epoch-seconds timestamp"`
	SpeakerID *string  `json:"speaker_id,omitempty" jsonschema:"only facts from this speaker"`
	Category  *string  `json:"category,omitempty" jsonschema:"only facts with this category tag"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	TimeStamp string  `json:"timeStamp"`
	Weekday   string  `json:"weekday"`
	Memory    string  `json:"memory"`
	SpeakerID string  `json:"speakerId,omitempty"`
}

// SearchOutput represents the output of the memory_search tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// handleSearch processes a memory_search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	topK := input.TopK
	if topK <= 0 {
		topK = 5
	}

	logger.Debug("MCP search request", "query", input.Query, "topK", topK)

	filters := store.Filters{
		SpeakerID: input.SpeakerID,
		Category:  input.Category,
	}
	if input.After != nil || input.Before != nil {
		filters.FloatTimeStamp = &store.RangeFilter{
			GTE: input.After,
			LTE: input.Before,
		}
	}

	hits, err := s.config.Engine.Search(ctx, input.Query, topK, filters)
	if err != nil {
		logger.Error("memory search failed", "error", err)
		return errorResult(fmt.Sprintf("Memory search failed: %v", err)), SearchOutput{}, nil
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{
			ID:        hit.ID,
			Score:     hit.Score,
			TimeStamp: hit.Record.TimeStamp,
			Weekday:   hit.Record.Weekday,
			Memory:    hit.Record.Memory,
			SpeakerID: hit.Record.SpeakerID,
		})
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}

	payload, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", "error", err)
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), SearchOutput{}, nil
	}

	return jsonResult(payload), output, nil
}
