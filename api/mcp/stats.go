package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/engine"
)

var (
	statsToolName    = "memory_stats"
	statsDescription = "Report the number of stored facts and the accumulated LLM and embedding token counters."
)

// StatsInput represents the (empty) input of the memory_stats tool.
type StatsInput struct{}

// StatsOutput represents the structured output of a memory_stats call.
type StatsOutput struct {
	Count  int               `json:"count"`
	Tokens engine.Statistics `json:"tokens"`
}

// handleStats processes a memory_stats request.
func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	count, err := s.config.Engine.Count(ctx)
	if err != nil {
		s.config.Logger.Error("counting memories failed", "error", err)
		return errorResult(fmt.Sprintf("Counting memories failed: %v", err)), StatsOutput{}, nil
	}

	output := StatsOutput{
		Count:  count,
		Tokens: s.config.Engine.TokenStatistics(),
	}

	payload, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), StatsOutput{}, nil
	}

	return jsonResult(payload), output, nil
}
