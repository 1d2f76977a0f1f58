package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/engine"
)

var (
	addToolName    = "memory_add"
	addDescription = "Add dialog turns to the engram memory. Messages are buffered and distilled into durable facts by an LLM once an extraction trigger fires; set force to extract immediately."
)

// MessageInput is one dialog turn in an MCP memory_add call.
type MessageInput struct {
	Role        string `json:"role" jsonschema:"the dialog role, user or assistant"`
	Content     string `json:"content" jsonschema:"the turn text"`
	TimeStamp   string `json:"timeStamp" jsonschema:"the session marker, e.g. 2024/01/15 (Mon) 10:00"`
	SpeakerID   string `json:"speakerId,omitempty" jsonschema:"optional speaker identifier"`
	SpeakerName string `json:"speakerName,omitempty" jsonschema:"optional speaker display name"`
}

// AddInput represents the input arguments for the memory_add tool.
type AddInput struct {
	Messages []MessageInput `json:"messages" jsonschema:"the dialog turns to ingest, in delivery order"`
	Force    bool           `json:"force,omitempty" jsonschema:"run extraction immediately instead of waiting for the buffer trigger"`
}

// AddOutput represents the structured output of a memory_add call.
type AddOutput struct {
	Extracted    bool `json:"extracted"`
	FactsCreated int  `json:"facts_created"`
	Buffered     int  `json:"buffered"`
}

// handleAdd processes a memory_add request.
func (s *Server) handleAdd(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, AddOutput, error) {
	if len(input.Messages) == 0 {
		return errorResult("messages are required"), AddOutput{}, nil
	}

	messages := make([]engine.Message, 0, len(input.Messages))
	for _, m := range input.Messages {
		messages = append(messages, engine.Message{
			Role:        m.Role,
			Content:     m.Content,
			TimeStamp:   m.TimeStamp,
			SpeakerID:   m.SpeakerID,
			SpeakerName: m.SpeakerName,
		})
	}

	result, err := s.config.Engine.AddMemory(ctx, messages, engine.AddOptions{
		ForceExtract: input.Force,
	})
	if err != nil {
		s.config.Logger.Error("memory add failed", "error", err)
		return errorResult(fmt.Sprintf("Memory add failed: %v", err)), AddOutput{}, nil
	}

	output := AddOutput{
		Extracted:    result.Extracted,
		FactsCreated: result.FactsCreated,
		Buffered:     result.Buffered,
	}

	payload, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), AddOutput{}, nil
	}

	return jsonResult(payload), output, nil
}
