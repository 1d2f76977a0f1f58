package engine_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/store"
	"github.com/papercomputeco/engram/pkg/store/sqlite"
)

// stubChat replays canned replies and captures the requests it receives.
type stubChat struct {
	replies  []string
	requests []llm.Request
	err      error
}

func (s *stubChat) Complete(_ context.Context, req llm.Request) (*llm.Reply, error) {
	s.requests = append(s.requests, req)

	if s.err != nil {
		return nil, s.err
	}

	content := "{}"
	if len(s.replies) > 0 {
		content = s.replies[0]
		if len(s.replies) > 1 {
			s.replies = s.replies[1:]
		}
	}

	return &llm.Reply{
		Content: content,
		Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (s *stubChat) Close() error { return nil }

func (s *stubChat) lastUserPrompt() string {
	if len(s.requests) == 0 {
		return ""
	}
	return s.requests[len(s.requests)-1].User
}

// stubEmbedder returns one fixed vector for every text and counts calls.
type stubEmbedder struct {
	vector []float32
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	out := make([]float32, len(s.vector))
	copy(out, s.vector)
	return out, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, len(s.vector))
		copy(vec, s.vector)
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Usage() embeddings.Usage {
	return embeddings.Usage{Calls: s.calls}
}

func (s *stubEmbedder) Close() error { return nil }

func quietLogger() *slog.Logger {
	return logger.New(logger.WithWriter(io.Discard))
}

func memoryStore(dimensions int) store.Driver {
	driver, err := sqlite.NewDriver(sqlite.Config{
		DBPath:     ":memory:",
		Dimensions: dimensions,
	}, quietLogger())
	if err != nil {
		panic(err)
	}
	return driver
}
