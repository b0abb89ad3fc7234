// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ProviderConfig holds settings for the Generative AI provider.
type ProviderConfig struct {
	// APIKey is the access credential for the model provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL is the provider REST endpoint root
	// (default https://generativelanguage.googleapis.com/v1beta).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// FastModel serves web research, visual analysis, and extraction.
	FastModel string `json:"fast_model" yaml:"fast_model" mapstructure:"fast_model"`

	// DeepModel serves comparisons, which run with a thinking budget.
	DeepModel string `json:"deep_model" yaml:"deep_model" mapstructure:"deep_model"`

	// Temperature applies to web research requests.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// ThinkingBudget is the token budget for comparison requests.
	ThinkingBudget int `json:"thinking_budget" yaml:"thinking_budget" mapstructure:"thinking_budget"`
}

// StorageBackend selects where the two persisted slots live.
type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageSQLite StorageBackend = "sqlite"
	StorageRedis  StorageBackend = "redis"
)

// StorageConfig holds settings for the persisted store.
type StorageConfig struct {
	// Backend selects file, sqlite, or redis.
	Backend StorageBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// DataDir is the directory for the file backend and the SQLite database.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// RedisAddr is the host:port of the Redis server.
	RedisAddr string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`

	// RedisPrefix namespaces keys in a shared Redis instance.
	RedisPrefix string `json:"redis_prefix" yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all omnisense settings.
type Config struct {
	Provider ProviderConfig `json:"provider" yaml:"provider" mapstructure:"provider"`
	Storage  StorageConfig  `json:"storage" yaml:"storage" mapstructure:"storage"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the settings used when no config file or
// environment override is present.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			FastModel:      "gemini-3-flash-preview",
			DeepModel:      "gemini-3-pro-preview",
			Temperature:    0.7,
			ThinkingBudget: 2000,
		},
		Storage: StorageConfig{
			Backend:     StorageFile,
			DataDir:     ".omnisense",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "omnisense:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
