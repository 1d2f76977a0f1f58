// Package wiring composes a fully-wired engine from the resolved
// configuration. Shared by every CLI command that operates on the store.
package wiring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/dotdir"
	embeddingcache "github.com/papercomputeco/engram/pkg/embeddings/cache"
	embeddingopenai "github.com/papercomputeco/engram/pkg/embeddings/openai"
	"github.com/papercomputeco/engram/pkg/engine"
	eventstreamutils "github.com/papercomputeco/engram/pkg/eventstream/utils"
	llmopenai "github.com/papercomputeco/engram/pkg/llm/openai"
	storeutils "github.com/papercomputeco/engram/pkg/store/utils"
)

// Runtime holds a wired engine plus the resources it owns.
type Runtime struct {
	Engine *engine.Engine

	closers []func() error
}

// Close releases everything the runtime opened, in reverse order.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

// NewRuntime builds the store, chat, embedder, and eventstream from the
// viper-resolved configuration and binds them into an engine.
func NewRuntime(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{}

	sqlitePath := v.GetString("store.sqlite_path")
	if sqlitePath == "" {
		path, err := dotdir.NewManager().DefaultDBPath("")
		if err != nil {
			return nil, fmt.Errorf("resolving default database path: %w", err)
		}
		sqlitePath = path
	}

	storer, err := storeutils.NewDriver(ctx, &storeutils.NewDriverOpts{
		Provider:    v.GetString("store.provider"),
		SQLitePath:  sqlitePath,
		PostgresURL: v.GetString("store.postgres_url"),
		Dimensions:  v.GetInt("embedding.dimensions"),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	rt.closers = append(rt.closers, storer.Close)

	chat := llmopenai.NewChat(llmopenai.Config{
		APIKey:    v.GetString("llm.api_key"),
		BaseURL:   v.GetString("llm.base_url"),
		Model:     v.GetString("llm.model"),
		MaxTokens: v.GetInt("llm.max_tokens"),
	})
	rt.closers = append(rt.closers, chat.Close)

	embedder := embeddingcache.New(embeddingopenai.NewEmbedder(embeddingopenai.Config{
		APIKey:     v.GetString("embedding.api_key"),
		BaseURL:    v.GetString("embedding.base_url"),
		Model:      v.GetString("embedding.model"),
		Dimensions: v.GetInt("embedding.dimensions"),
	}))
	rt.closers = append(rt.closers, embedder.Close)

	events, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Provider: v.GetString("events.provider"),
		Brokers:  v.GetStringSlice("events.brokers"),
		Topic:    v.GetString("events.topic"),
		Logger:   logger,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("creating eventstream publisher: %w", err)
	}
	rt.closers = append(rt.closers, events.Close)

	eng, err := engine.New(engine.Config{
		Store:           storer,
		Chat:            chat,
		Embedder:        embedder,
		Events:          events,
		Logger:          logger,
		MessagesUse:     engine.RolePolicy(v.GetString("memory.messages_use")),
		MaxTokens:       v.GetInt("llm.max_tokens"),
		ReembedOnUpdate: v.GetBool("consolidate.reembed_on_update"),
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	rt.Engine = eng

	return rt, nil
}
