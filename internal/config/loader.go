package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CORTEX_*)
// 2. Config file (.cortex/config.yml or .cortex/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".cortex")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CORTEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("embedding.provider")
	v.BindEnv("embedding.model")
	v.BindEnv("embedding.dimensions")
	v.BindEnv("embedding.endpoint")
	v.BindEnv("chunking.doc_chunk_size")
	v.BindEnv("chunking.text_chunk_size")
	v.BindEnv("chunking.overlap")
	v.BindEnv("hybrid.vector_weight")
	v.BindEnv("hybrid.sqi_weight")
	v.BindEnv("hybrid.rrf_k")
	v.BindEnv("boost.drop_threshold")
	v.BindEnv("limits.default_limit")
	v.BindEnv("limits.max_limit")
	v.BindEnv("batching.embed_batch_size")
	v.BindEnv("batching.upsert_flush_size")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("embedding.provider", defaults.Embedding.Provider)
	v.SetDefault("embedding.model", defaults.Embedding.Model)
	v.SetDefault("embedding.dimensions", defaults.Embedding.Dimensions)
	v.SetDefault("embedding.endpoint", defaults.Embedding.Endpoint)

	v.SetDefault("paths.code", defaults.Paths.Code)
	v.SetDefault("paths.docs", defaults.Paths.Docs)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("chunking.doc_chunk_size", defaults.Chunking.DocChunkSize)
	v.SetDefault("chunking.text_chunk_size", defaults.Chunking.TextChunkSize)
	v.SetDefault("chunking.overlap", defaults.Chunking.Overlap)

	v.SetDefault("hybrid.vector_weight", defaults.Hybrid.VectorWeight)
	v.SetDefault("hybrid.sqi_weight", defaults.Hybrid.SQIWeight)
	v.SetDefault("hybrid.rrf_k", defaults.Hybrid.RRFK)
	v.SetDefault("hybrid.fuzzy_threshold", defaults.Hybrid.FuzzyThreshold)

	v.SetDefault("boost.drop_threshold", defaults.Boost.DropThreshold)

	v.SetDefault("limits.default_limit", defaults.Limits.DefaultLimit)
	v.SetDefault("limits.max_limit", defaults.Limits.MaxLimit)

	v.SetDefault("batching.embed_batch_size", defaults.Batching.EmbedBatchSize)
	v.SetDefault("batching.upsert_flush_size", defaults.Batching.UpsertFlushSize)
}

// LoadConfig is a convenience function that creates a loader and loads config
// using the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
