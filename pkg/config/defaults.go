package config

// Default values for the engram configuration.
const (
	DefaultStoreProvider  = "sqlite"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultDimensions     = 1536
	DefaultMessagesUse    = "user_only"
	DefaultRetrieveStrat  = "embedding"
	DefaultUpdateMode     = "offline"
	DefaultTopK           = 20
	DefaultKeepTopN       = 10
	DefaultScoreThreshold = 0.9
	DefaultEventsProvider = "nop"
	DefaultAPIListen      = ":8091"
)

// NewDefaultConfig returns a fully-populated Config with sane defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Store: StoreConfig{
			Provider: DefaultStoreProvider,
		},
		LLM: LLMConfig{
			Model: DefaultLLMModel,
		},
		Embedding: EmbeddingConfig{
			Model:      DefaultEmbeddingModel,
			Dimensions: DefaultDimensions,
		},
		Memory: MemoryConfig{
			MessagesUse:      DefaultMessagesUse,
			RetrieveStrategy: DefaultRetrieveStrat,
			Update:           DefaultUpdateMode,
		},
		Consolidate: ConsolidateConfig{
			TopK:           DefaultTopK,
			KeepTopN:       DefaultKeepTopN,
			ScoreThreshold: DefaultScoreThreshold,
		},
		Events: EventsConfig{
			Provider: DefaultEventsProvider,
		},
		API: APIConfig{
			Listen: DefaultAPIListen,
		},
	}
}

// applyDefaults fills zero-value fields in cfg with values from
// NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Store.Provider == "" {
		cfg.Store.Provider = defaults.Store.Provider
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaults.LLM.Model
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaults.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = defaults.Embedding.Dimensions
	}

	if cfg.Memory.MessagesUse == "" {
		cfg.Memory.MessagesUse = defaults.Memory.MessagesUse
	}
	if cfg.Memory.RetrieveStrategy == "" {
		cfg.Memory.RetrieveStrategy = defaults.Memory.RetrieveStrategy
	}
	if cfg.Memory.Update == "" {
		cfg.Memory.Update = defaults.Memory.Update
	}

	if cfg.Consolidate.TopK == 0 {
		cfg.Consolidate.TopK = defaults.Consolidate.TopK
	}
	if cfg.Consolidate.KeepTopN == 0 {
		cfg.Consolidate.KeepTopN = defaults.Consolidate.KeepTopN
	}
	if cfg.Consolidate.ScoreThreshold == 0 {
		cfg.Consolidate.ScoreThreshold = defaults.Consolidate.ScoreThreshold
	}

	if cfg.Events.Provider == "" {
		cfg.Events.Provider = defaults.Events.Provider
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}
