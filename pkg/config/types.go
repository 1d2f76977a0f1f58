package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent engram configuration stored as
// config.toml in the .engram/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Store       StoreConfig       `toml:"store"`
	LLM         LLMConfig         `toml:"llm"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Memory      MemoryConfig      `toml:"memory"`
	Consolidate ConsolidateConfig `toml:"consolidate"`
	Events      EventsConfig      `toml:"events"`
	API         APIConfig         `toml:"api"`
}

// StoreConfig holds fact store settings.
type StoreConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresURL string `toml:"postgres_url,omitempty"`
}

// LLMConfig holds chat-completion provider settings.
type LLMConfig struct {
	APIKey    string `toml:"api_key,omitempty"`
	BaseURL   string `toml:"base_url,omitempty"`
	Model     string `toml:"model,omitempty"`
	MaxTokens int    `toml:"max_tokens,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `toml:"api_key,omitempty"`
	BaseURL    string `toml:"base_url,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions int    `toml:"dimensions,omitempty"`
}

// MemoryConfig holds engine behavior settings.
type MemoryConfig struct {
	MessagesUse      string `toml:"messages_use,omitempty"`
	MetadataGenerate bool   `toml:"metadata_generate,omitempty"`
	TextSummary      bool   `toml:"text_summary,omitempty"`
	RetrieveStrategy string `toml:"retrieve_strategy,omitempty"`
	Update           string `toml:"update,omitempty"`
}

// ConsolidateConfig holds offline consolidation settings.
type ConsolidateConfig struct {
	TopK            int     `toml:"top_k,omitempty"`
	KeepTopN        int     `toml:"keep_top_n,omitempty"`
	ScoreThreshold  float64 `toml:"score_threshold,omitempty"`
	ReembedOnUpdate bool    `toml:"reembed_on_update,omitempty"`
}

// EventsConfig holds eventstream settings.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"store.provider": {
		get: func(c *Config) string { return c.Store.Provider },
		set: func(c *Config, v string) error { c.Store.Provider = v; return nil },
	},
	"store.sqlite_path": {
		get: func(c *Config) string { return c.Store.SQLitePath },
		set: func(c *Config, v string) error { c.Store.SQLitePath = v; return nil },
	},
	"store.postgres_url": {
		get: func(c *Config) string { return c.Store.PostgresURL },
		set: func(c *Config, v string) error { c.Store.PostgresURL = v; return nil },
	},
	"llm.api_key": {
		get: func(c *Config) string { return c.LLM.APIKey },
		set: func(c *Config, v string) error { c.LLM.APIKey = v; return nil },
	},
	"llm.base_url": {
		get: func(c *Config) string { return c.LLM.BaseURL },
		set: func(c *Config, v string) error { c.LLM.BaseURL = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.max_tokens": {
		get: func(c *Config) string { return formatInt(c.LLM.MaxTokens) },
		set: func(c *Config, v string) error { return parseInt(v, &c.LLM.MaxTokens) },
	},
	"embedding.api_key": {
		get: func(c *Config) string { return c.Embedding.APIKey },
		set: func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
	},
	"embedding.base_url": {
		get: func(c *Config) string { return c.Embedding.BaseURL },
		set: func(c *Config, v string) error { c.Embedding.BaseURL = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string { return formatInt(c.Embedding.Dimensions) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Embedding.Dimensions) },
	},
	"memory.messages_use": {
		get: func(c *Config) string { return c.Memory.MessagesUse },
		set: func(c *Config, v string) error {
			switch v {
			case "user_only", "assistant_only", "hybrid":
				c.Memory.MessagesUse = v
				return nil
			}
			return fmt.Errorf("messages_use must be user_only, assistant_only, or hybrid")
		},
	},
	"memory.retrieve_strategy": {
		get: func(c *Config) string { return c.Memory.RetrieveStrategy },
		set: func(c *Config, v string) error { c.Memory.RetrieveStrategy = v; return nil },
	},
	"memory.update": {
		get: func(c *Config) string { return c.Memory.Update },
		set: func(c *Config, v string) error { c.Memory.Update = v; return nil },
	},
	"consolidate.top_k": {
		get: func(c *Config) string { return formatInt(c.Consolidate.TopK) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Consolidate.TopK) },
	},
	"consolidate.keep_top_n": {
		get: func(c *Config) string { return formatInt(c.Consolidate.KeepTopN) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Consolidate.KeepTopN) },
	},
	"consolidate.score_threshold": {
		get: func(c *Config) string {
			if c.Consolidate.ScoreThreshold == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Consolidate.ScoreThreshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("score_threshold must be a number: %w", err)
			}
			c.Consolidate.ScoreThreshold = f
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Events.Brokers = nil
				return nil
			}
			c.Events.Brokers = strings.Split(v, ",")
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("value must be an integer: %w", err)
	}
	*dst = n
	return nil
}
