// Package config loads configuration for the code intelligence engine from
// .cortex/config.yml, with environment variable overrides.
package config

// Config represents the complete engine configuration.
// It can be loaded from .cortex/config.yml with environment variable overrides.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Chunking  ChunkingConfig  `yaml:"chunking" mapstructure:"chunking"`
	Hybrid    HybridConfig    `yaml:"hybrid" mapstructure:"hybrid"`
	Boost     BoostConfig     `yaml:"boost" mapstructure:"boost"`
	Limits    LimitsConfig    `yaml:"limits" mapstructure:"limits"`
	Batching  BatchingConfig  `yaml:"batching" mapstructure:"batching"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`     // "local" or "openai"
	Model      string `yaml:"model" mapstructure:"model"`           // e.g., "BAAI/bge-small-en-v1.5"
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"` // embedding vector dimensions
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`     // e.g., "http://localhost:8121/embed"
}

// PathsConfig defines which files are eligible for indexing.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for code files
	Docs   []string `yaml:"docs" mapstructure:"docs"`     // glob patterns for documentation
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// ChunkingConfig defines how content is split into chunks.
type ChunkingConfig struct {
	DocChunkSize  int `yaml:"doc_chunk_size" mapstructure:"doc_chunk_size"`   // tokens per doc chunk
	TextChunkSize int `yaml:"text_chunk_size" mapstructure:"text_chunk_size"` // fallback fixed-line text chunking
	Overlap       int `yaml:"overlap" mapstructure:"overlap"`                 // token overlap between doc chunks
}

// HybridConfig tunes reciprocal-rank fusion between vector and structural
// retrieval.
type HybridConfig struct {
	VectorWeight   float64 `yaml:"vector_weight" mapstructure:"vector_weight"`
	SQIWeight      float64 `yaml:"sqi_weight" mapstructure:"sqi_weight"`
	RRFK           float64 `yaml:"rrf_k" mapstructure:"rrf_k"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
}

// BoostRule is a multiplicative score adjustment keyed on a path substring.
type BoostRule struct {
	PathContains string  `yaml:"path_contains" mapstructure:"path_contains"`
	Factor       float64 `yaml:"factor" mapstructure:"factor"`
}

// BoostConfig holds the structural boost/penalty rule table and the
// SQI-drop threshold used in hybrid mode.
type BoostConfig struct {
	Rules         []BoostRule `yaml:"rules" mapstructure:"rules"`
	DropThreshold float64     `yaml:"drop_threshold" mapstructure:"drop_threshold"`
}

// LimitsConfig bounds query result sizes.
type LimitsConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `yaml:"max_limit" mapstructure:"max_limit"`
}

// BatchingConfig tunes embedding batch size and upsert flush size.
type BatchingConfig struct {
	EmbedBatchSize  int `yaml:"embed_batch_size" mapstructure:"embed_batch_size"`
	UpsertFlushSize int `yaml:"upsert_flush_size" mapstructure:"upsert_flush_size"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Model:      "BAAI/bge-small-en-v1.5",
			Dimensions: 384,
			Endpoint:   "http://localhost:8121/embed",
		},
		Paths: PathsConfig{
			Code: []string{
				"**/*.go",
				"**/*.ts",
				"**/*.tsx",
				"**/*.js",
				"**/*.jsx",
				"**/*.py",
				"**/*.rs",
				"**/*.c",
				"**/*.cpp",
				"**/*.cc",
				"**/*.h",
				"**/*.hpp",
				"**/*.php",
				"**/*.rb",
				"**/*.java",
			},
			Docs: []string{
				"**/*.md",
				"**/*.rst",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"*.pyc",
			},
		},
		Chunking: ChunkingConfig{
			DocChunkSize:  800,
			TextChunkSize: 50,
			Overlap:       100,
		},
		Hybrid: HybridConfig{
			VectorWeight:   2.0,
			SQIWeight:      1.0,
			RRFK:           60.0,
			FuzzyThreshold: 0.4,
		},
		Boost: BoostConfig{
			DropThreshold: 0.6,
			Rules: []BoostRule{
				{PathContains: "tests/mocks/", Factor: 0.4},
				{PathContains: "__mocks__/", Factor: 0.4},
				{PathContains: "/test/", Factor: 0.5},
				{PathContains: "_test.go", Factor: 0.5},
				{PathContains: ".test.", Factor: 0.5},
				{PathContains: "/vendor/", Factor: 0.3},
				{PathContains: "/generated/", Factor: 0.5},
				{PathContains: "/src/", Factor: 1.2},
				{PathContains: "/internal/", Factor: 1.1},
			},
		},
		Limits: LimitsConfig{
			DefaultLimit: 50,
			MaxLimit:     100,
		},
		Batching: BatchingConfig{
			EmbedBatchSize:  32,
			UpsertFlushSize: 32,
		},
	}
}
