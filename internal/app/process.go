package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ridge.run/sentinel/internal/analyst"
	"ridge.run/sentinel/internal/archive"
	"ridge.run/sentinel/internal/chunker"
	"ridge.run/sentinel/internal/cli"
	"ridge.run/sentinel/internal/config"
	"ridge.run/sentinel/internal/db"
	"ridge.run/sentinel/internal/dedup"
	"ridge.run/sentinel/internal/embedding"
	"ridge.run/sentinel/internal/inference"
	"ridge.run/sentinel/internal/intel"
	"ridge.run/sentinel/internal/logging"
	"ridge.run/sentinel/internal/pipeline"
	"ridge.run/sentinel/internal/search"
	"ridge.run/sentinel/internal/validator"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	format := fs.String("format", outputFormatJSON, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sentinel process [flags] <file.json> [file.json ...]")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	docs := make([]intel.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := readDocumentFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid document: %v\n", err)
			return 2
		}
		docs = append(docs, doc)
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("process failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	service := buildPipeline(cfg, logger, pool)

	result, err := service.Process(ctx, docs)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	switch outputFormat {
	case outputFormatJSON:
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
			return 1
		}
		fmt.Println(string(encoded))
	default:
		fmt.Printf("run %s: processed=%d skipped=%d failed=%d events=%d new=%d duplicates=%d\n",
			result.RunUUID, result.Processed, result.Skipped, result.Failed,
			result.Events, result.FindingsNew, result.FindingsDuplicate)
	}
	return 0
}

// buildPipeline wires the production collaborators: HTTP clients for
// inference, embeddings, and search, plus the archive over the shared pool.
func buildPipeline(cfg *config.Config, logger zerolog.Logger, pool *db.Pool) *pipeline.Service {
	archiveService := archive.New(pool, logger)

	analyzer := analyst.New(
		inference.NewHTTPClient(cfg.InferenceEndpoint, cfg.InferenceTimeout),
		logger,
		cfg.AnalysisBudget,
		cfg.AnalysisWorkers,
		cfg.InferencePerSec,
		cfg.MonetaryFloorUSD,
	)

	checker := validator.New(
		search.NewHTTPClient(cfg.SearchEndpoint, cfg.SearchAPIKey, cfg.SearchTimeout),
		logger,
		cfg.SearchMinScore,
		cfg.SearchMinResults,
		cfg.SearchRecencyDays,
	)

	deduper := dedup.New(
		embedding.NewHTTPClient(cfg.EmbeddingEndpoint, cfg.EmbeddingDimensions, cfg.EmbeddingTimeout),
		logger,
		cfg.SimilarityThreshold,
	)

	return pipeline.NewService(
		cfg,
		logger,
		chunker.New(cfg.ChunkTargetSize, cfg.ChunkOverlap, cfg.MaxChunksPerDoc),
		analyzer,
		checker,
		deduper,
		archiveService,
	)
}
