package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"SENTINEL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"SENTINEL_DB_MAX_CONNS" default:"8"`

	// Chunker.
	ChunkTargetSize int     `envconfig:"CHUNK_TARGET_SIZE" default:"3000"`
	ChunkOverlap    int     `envconfig:"CHUNK_OVERLAP" default:"500"`
	MaxChunksPerDoc int     `envconfig:"MAX_CHUNKS_PER_DOC" default:"10"`
	AnalysisBudget  int     `envconfig:"ANALYSIS_CALL_BUDGET" default:"8"`
	AnalysisWorkers int     `envconfig:"ANALYSIS_WORKERS" default:"3"`
	DocumentWorkers int     `envconfig:"DOCUMENT_WORKERS" default:"4"`
	InferencePerSec float64 `envconfig:"INFERENCE_REQUESTS_PER_SECOND" default:"2"`

	// Materiality floor for extracted monetary values. Empirically chosen in the
	// source system; candidates below it never become findings.
	MonetaryFloorUSD float64 `envconfig:"MONETARY_FLOOR_USD" default:"10000000"`

	InferenceEndpoint string        `envconfig:"INFERENCE_ENDPOINT" default:"http://127.0.0.1:8833/v1/complete"`
	InferenceTimeout  time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"30s"`

	EmbeddingEndpoint   string        `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingTimeout    time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"45s"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"1024"`

	SearchEndpoint    string        `envconfig:"SEARCH_ENDPOINT" default:""`
	SearchAPIKey      string        `envconfig:"SEARCH_API_KEY" default:""`
	SearchTimeout     time.Duration `envconfig:"SEARCH_TIMEOUT" default:"10s"`
	SearchRecencyDays int           `envconfig:"SEARCH_RECENCY_DAYS" default:"30"`
	SearchMinScore    float64       `envconfig:"SEARCH_MIN_SCORE" default:"0.55"`
	SearchMinResults  int           `envconfig:"SEARCH_MIN_RESULTS" default:"2"`

	// Near-duplicate cutoff for event summaries of the same organization and day.
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.85"`

	ValidationTimeout time.Duration `envconfig:"VALIDATION_TIMEOUT" default:"20s"`
	DedupTimeout      time.Duration `envconfig:"DEDUP_TIMEOUT" default:"50s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("SENTINEL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("SENTINEL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("SENTINEL_DB_MIN_CONNS (%d) cannot exceed SENTINEL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ChunkTargetSize < 200 {
		return fmt.Errorf("CHUNK_TARGET_SIZE must be >= 200")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkTargetSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be >= 0 and smaller than CHUNK_TARGET_SIZE (%d)", c.ChunkOverlap, c.ChunkTargetSize)
	}
	if c.MaxChunksPerDoc < 1 {
		return fmt.Errorf("MAX_CHUNKS_PER_DOC must be >= 1")
	}
	if c.AnalysisBudget < 1 {
		return fmt.Errorf("ANALYSIS_CALL_BUDGET must be >= 1")
	}
	if c.AnalysisWorkers < 1 {
		return fmt.Errorf("ANALYSIS_WORKERS must be >= 1")
	}
	if c.DocumentWorkers < 1 {
		return fmt.Errorf("DOCUMENT_WORKERS must be >= 1")
	}
	if c.MonetaryFloorUSD <= 0 {
		return fmt.Errorf("MONETARY_FLOOR_USD must be > 0")
	}
	if c.EmbeddingDimensions < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be >= 1")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.SearchMinScore <= 0 || c.SearchMinScore > 1 {
		return fmt.Errorf("SEARCH_MIN_SCORE must be in (0, 1]")
	}
	if c.SearchMinResults < 1 {
		return fmt.Errorf("SEARCH_MIN_RESULTS must be >= 1")
	}
	if c.SearchRecencyDays < 1 {
		return fmt.Errorf("SEARCH_RECENCY_DAYS must be >= 1")
	}
	return nil
}
