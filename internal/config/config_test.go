package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - LoadConfig() uses defaults when no config file exists
// - LoadConfig() loads from .cortex/config.yml when present
// - LoadConfig() merges config file with defaults
// - Environment variables override config file values
// - Environment variables override defaults when no config file exists
// - LoadConfig() returns error for malformed YAML
// - LoadConfig() returns error for invalid configuration values
// - Validate() accepts valid configuration
// - Validate() rejects invalid provider / chunk sizes / hybrid weights / boost rules / limits / batching

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)

	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embedding.Model)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, "http://localhost:8121/embed", cfg.Embedding.Endpoint)

	assert.Equal(t, 800, cfg.Chunking.DocChunkSize)
	assert.Equal(t, 50, cfg.Chunking.TextChunkSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap)

	assert.Equal(t, 2.0, cfg.Hybrid.VectorWeight)
	assert.Equal(t, 1.0, cfg.Hybrid.SQIWeight)
	assert.Equal(t, 60.0, cfg.Hybrid.RRFK)

	assert.Equal(t, 0.6, cfg.Boost.DropThreshold)
	assert.NotEmpty(t, cfg.Boost.Rules)

	assert.Equal(t, 50, cfg.Limits.DefaultLimit)
	assert.Equal(t, 100, cfg.Limits.MaxLimit)

	assert.Equal(t, 32, cfg.Batching.EmbedBatchSize)
	assert.Equal(t, 32, cfg.Batching.UpsertFlushSize)

	assert.NotEmpty(t, cfg.Paths.Code)
	assert.NotEmpty(t, cfg.Paths.Docs)
	assert.NotEmpty(t, cfg.Paths.Ignore)

	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	tempDir := t.TempDir()

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)

	expected := Default()
	assert.Equal(t, expected.Embedding.Provider, cfg.Embedding.Provider)
	assert.Equal(t, expected.Hybrid.RRFK, cfg.Hybrid.RRFK)
	assert.Equal(t, expected.Limits.DefaultLimit, cfg.Limits.DefaultLimit)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	tempDir := t.TempDir()
	cortexDir := filepath.Join(tempDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))

	configContent := `
embedding:
  provider: openai
  model: text-embedding-3-small
  dimensions: 1536
  endpoint: https://api.openai.com/v1/embeddings

chunking:
  doc_chunk_size: 1000
  text_chunk_size: 60
  overlap: 200

hybrid:
  vector_weight: 3.0
  sqi_weight: 1.5
  rrf_k: 40

limits:
  default_limit: 20
  max_limit: 80
`

	configPath := filepath.Join(cortexDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)

	assert.Equal(t, 1000, cfg.Chunking.DocChunkSize)
	assert.Equal(t, 60, cfg.Chunking.TextChunkSize)
	assert.Equal(t, 200, cfg.Chunking.Overlap)

	assert.Equal(t, 3.0, cfg.Hybrid.VectorWeight)
	assert.Equal(t, 1.5, cfg.Hybrid.SQIWeight)
	assert.Equal(t, 40.0, cfg.Hybrid.RRFK)

	assert.Equal(t, 20, cfg.Limits.DefaultLimit)
	assert.Equal(t, 80, cfg.Limits.MaxLimit)
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()
	cortexDir := filepath.Join(tempDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))

	configContent := `
embedding:
  provider: openai
  model: custom-model
  dimensions: 1536
  endpoint: https://api.openai.com/v1
`

	configPath := filepath.Join(cortexDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "custom-model", cfg.Embedding.Model)

	// non-overridden sections should come from defaults
	assert.Equal(t, 800, cfg.Chunking.DocChunkSize)
	assert.Equal(t, 60.0, cfg.Hybrid.RRFK)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	tempDir := t.TempDir()
	cortexDir := filepath.Join(tempDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))

	configContent := `
embedding:
  provider: local
  model: file-model
  dimensions: 384
  endpoint: http://localhost:8121/embed
`

	configPath := filepath.Join(cortexDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	t.Setenv("CORTEX_EMBEDDING_PROVIDER", "openai")
	t.Setenv("CORTEX_EMBEDDING_MODEL", "env-model")
	t.Setenv("CORTEX_HYBRID_RRF_K", "80")

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "env-model", cfg.Embedding.Model)
	assert.Equal(t, 80.0, cfg.Hybrid.RRFK)

	// not overridden, should come from config file
	assert.Equal(t, "http://localhost:8121/embed", cfg.Embedding.Endpoint)
}

func TestLoadConfig_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	tempDir := t.TempDir()
	cortexDir := filepath.Join(tempDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))

	t.Setenv("CORTEX_EMBEDDING_PROVIDER", "openai")
	t.Setenv("CORTEX_LIMITS_DEFAULT_LIMIT", "10")
	t.Setenv("CORTEX_BATCHING_EMBED_BATCH_SIZE", "16")

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 10, cfg.Limits.DefaultLimit)
	assert.Equal(t, 16, cfg.Batching.EmbedBatchSize)

	// non-overridden values should be defaults
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embedding.Model)
	assert.Equal(t, 100, cfg.Limits.MaxLimit)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	tempDir := t.TempDir()
	cortexDir := filepath.Join(tempDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))

	malformedContent := `
embedding:
  provider: local
  model: "unclosed quote
  dimensions: not-a-number
`

	configPath := filepath.Join(cortexDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(malformedContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	tempDir := t.TempDir()
	cortexDir := filepath.Join(tempDir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))

	invalidContent := `
embedding:
  provider: invalid-provider
  model: test-model
  dimensions: -10
  endpoint: http://localhost:8121
`

	configPath := filepath.Join(cortexDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(invalidContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid")
}

func TestValidate_AcceptsValidConfiguration(t *testing.T) {
	cfg := Default()
	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestValidate_RejectsInvalidProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "unsupported"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestValidate_RejectsNegativeDimensions(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Dimensions = -10

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestValidate_RejectsEmptyModel(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Model = ""

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyModel)
}

func TestValidate_RejectsEmptyEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Endpoint = ""

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyEndpoint)
}

func TestValidate_RejectsNegativeDocChunkSize(t *testing.T) {
	cfg := Default()
	cfg.Chunking.DocChunkSize = -100

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}

func TestValidate_RejectsOverlapGreaterThanChunkSize(t *testing.T) {
	cfg := Default()
	cfg.Chunking.Overlap = 1000
	cfg.Chunking.DocChunkSize = 800

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestValidate_RejectsNegativeHybridWeight(t *testing.T) {
	cfg := Default()
	cfg.Hybrid.VectorWeight = -1

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHybrid)
}

func TestValidate_RejectsZeroRRFK(t *testing.T) {
	cfg := Default()
	cfg.Hybrid.RRFK = 0

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHybrid)
}

func TestValidate_RejectsBoostDropThresholdOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Boost.DropThreshold = 1.5

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBoost)
}

func TestValidate_RejectsNegativeBoostFactor(t *testing.T) {
	cfg := Default()
	cfg.Boost.Rules = []BoostRule{{PathContains: "/vendor/", Factor: -0.5}}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBoost)
}

func TestValidate_RejectsDefaultLimitAboveMaxLimit(t *testing.T) {
	cfg := Default()
	cfg.Limits.DefaultLimit = 200
	cfg.Limits.MaxLimit = 100

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidLimits)
}

func TestValidate_RejectsZeroBatchSize(t *testing.T) {
	cfg := Default()
	cfg.Batching.EmbedBatchSize = 0

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBatching)
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "invalid"
	cfg.Embedding.Model = ""
	cfg.Embedding.Dimensions = -1
	cfg.Embedding.Endpoint = ""
	cfg.Chunking.DocChunkSize = -100

	err := Validate(cfg)
	assert.Error(t, err)

	errMsg := err.Error()
	assert.Contains(t, errMsg, "provider")
	assert.Contains(t, errMsg, "model")
	assert.Contains(t, errMsg, "dimensions")
	assert.Contains(t, errMsg, "endpoint")
}
