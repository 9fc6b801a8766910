package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidDimensions indicates invalid embedding dimensions
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidChunkSize indicates invalid chunk size configuration
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidOverlap indicates invalid overlap configuration
	ErrInvalidOverlap = errors.New("invalid overlap")

	// ErrEmptyEndpoint indicates missing embedding endpoint
	ErrEmptyEndpoint = errors.New("empty embedding endpoint")

	// ErrEmptyModel indicates missing embedding model
	ErrEmptyModel = errors.New("empty embedding model")

	// ErrInvalidHybrid indicates an invalid RRF/hybrid tuning value
	ErrInvalidHybrid = errors.New("invalid hybrid configuration")

	// ErrInvalidBoost indicates an invalid structural boost rule
	ErrInvalidBoost = errors.New("invalid boost configuration")

	// ErrInvalidLimits indicates an invalid query result limit
	ErrInvalidLimits = errors.New("invalid limits")

	// ErrInvalidBatching indicates an invalid batching configuration
	ErrInvalidBatching = errors.New("invalid batching")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	// Validate embedding configuration
	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}

	// Validate paths configuration
	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	// Validate chunking configuration
	if err := validateChunking(&cfg.Chunking); err != nil {
		errs = append(errs, err)
	}

	// Validate hybrid fusion tuning
	if err := validateHybrid(&cfg.Hybrid); err != nil {
		errs = append(errs, err)
	}

	// Validate structural boost rules
	if err := validateBoost(&cfg.Boost); err != nil {
		errs = append(errs, err)
	}

	// Validate result limits
	if err := validateLimits(&cfg.Limits); err != nil {
		errs = append(errs, err)
	}

	// Validate batching
	if err := validateBatching(&cfg.Batching); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error

	// Validate provider
	provider := strings.ToLower(cfg.Provider)
	if provider != "local" && provider != "openai" {
		errs = append(errs, fmt.Errorf("%w: must be 'local' or 'openai', got '%s'", ErrInvalidProvider, cfg.Provider))
	}

	// Validate model
	if strings.TrimSpace(cfg.Model) == "" {
		errs = append(errs, fmt.Errorf("%w: model is required", ErrEmptyModel))
	}

	// Validate dimensions
	if cfg.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("%w: dimensions must be positive, got %d", ErrInvalidDimensions, cfg.Dimensions))
	}

	// Validate endpoint
	if strings.TrimSpace(cfg.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("%w: endpoint is required", ErrEmptyEndpoint))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	// Paths can be empty - validation is lenient here
	// The indexer will handle empty patterns gracefully
	return nil
}

func validateChunking(cfg *ChunkingConfig) error {
	var errs []error

	// Validate doc chunk size
	if cfg.DocChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: doc_chunk_size must be positive, got %d", ErrInvalidChunkSize, cfg.DocChunkSize))
	}

	// Validate text chunk size (fallback fixed-line chunking)
	if cfg.TextChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: text_chunk_size must be positive, got %d", ErrInvalidChunkSize, cfg.TextChunkSize))
	}

	// Validate overlap
	if cfg.Overlap < 0 {
		errs = append(errs, fmt.Errorf("%w: overlap cannot be negative, got %d", ErrInvalidOverlap, cfg.Overlap))
	}

	if cfg.DocChunkSize > 0 && cfg.Overlap >= cfg.DocChunkSize {
		errs = append(errs, fmt.Errorf("%w: overlap (%d) should be less than doc_chunk_size (%d)", ErrInvalidOverlap, cfg.Overlap, cfg.DocChunkSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateHybrid(cfg *HybridConfig) error {
	var errs []error

	if cfg.VectorWeight < 0 {
		errs = append(errs, fmt.Errorf("%w: vector_weight cannot be negative, got %f", ErrInvalidHybrid, cfg.VectorWeight))
	}

	if cfg.SQIWeight < 0 {
		errs = append(errs, fmt.Errorf("%w: sqi_weight cannot be negative, got %f", ErrInvalidHybrid, cfg.SQIWeight))
	}

	if cfg.RRFK <= 0 {
		errs = append(errs, fmt.Errorf("%w: rrf_k must be positive, got %f", ErrInvalidHybrid, cfg.RRFK))
	}

	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("%w: fuzzy_threshold must be in [0,1], got %f", ErrInvalidHybrid, cfg.FuzzyThreshold))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateBoost(cfg *BoostConfig) error {
	if cfg.DropThreshold < 0 || cfg.DropThreshold > 1 {
		return fmt.Errorf("%w: drop_threshold must be in [0,1], got %f", ErrInvalidBoost, cfg.DropThreshold)
	}

	for _, rule := range cfg.Rules {
		if strings.TrimSpace(rule.PathContains) == "" {
			return fmt.Errorf("%w: rule has an empty path_contains", ErrInvalidBoost)
		}
		if rule.Factor < 0 {
			return fmt.Errorf("%w: factor for rule %q cannot be negative", ErrInvalidBoost, rule.PathContains)
		}
	}

	return nil
}

func validateLimits(cfg *LimitsConfig) error {
	var errs []error

	if cfg.DefaultLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: default_limit must be positive, got %d", ErrInvalidLimits, cfg.DefaultLimit))
	}

	if cfg.MaxLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_limit must be positive, got %d", ErrInvalidLimits, cfg.MaxLimit))
	}

	if cfg.DefaultLimit > 0 && cfg.MaxLimit > 0 && cfg.DefaultLimit > cfg.MaxLimit {
		errs = append(errs, fmt.Errorf("%w: default_limit (%d) cannot exceed max_limit (%d)", ErrInvalidLimits, cfg.DefaultLimit, cfg.MaxLimit))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateBatching(cfg *BatchingConfig) error {
	var errs []error

	if cfg.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: embed_batch_size must be positive, got %d", ErrInvalidBatching, cfg.EmbedBatchSize))
	}

	if cfg.UpsertFlushSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: upsert_flush_size must be positive, got %d", ErrInvalidBatching, cfg.UpsertFlushSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
