package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/answer"
	"github.com/kailas-cloud/bookrag/internal/chunk"
	"github.com/kailas-cloud/bookrag/internal/config"
	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/evaluate"
	"github.com/kailas-cloud/bookrag/internal/expand"
	"github.com/kailas-cloud/bookrag/internal/index"
	"github.com/kailas-cloud/bookrag/internal/ingest"
	logpkg "github.com/kailas-cloud/bookrag/internal/logger"
	"github.com/kailas-cloud/bookrag/internal/retrieve"
	openaiTransport "github.com/kailas-cloud/bookrag/internal/transport/openai"
)

// loadConfigAndLogger is the bootstrap every subcommand shares.
func loadConfigAndLogger() (config.Config, *zap.Logger, error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

func newGeneratorFunc(cfg config.Config, logger *zap.Logger) func(stage string) domain.Generator {
	return func(stage string) domain.Generator {
		g := openaiTransport.NewGenerator(openaiTransport.GeneratorConfig{
			APIKey:  cfg.Generator.APIKey,
			BaseURL: cfg.Generator.BaseURL,
			Model:   cfg.Generator.Model,
			Logger:  logger,
		})
		return openaiTransport.NewInstrumentedGenerator(g, stage, logger)
	}
}

func newEmbedder(cfg config.Config, logger *zap.Logger) *openaiTransport.Embedder {
	return openaiTransport.NewEmbedder(openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedder.APIKey,
		BaseURL:    cfg.Embedder.BaseURL,
		Model:      cfg.Embedder.Model,
		Dimensions: cfg.Embedder.Dimensions,
		Logger:     logger,
	})
}

// buildIngestApp wires just enough to run `bookctl ingest`: an embedder,
// a Chunker, a fresh Index, and an ingest.Loader.
func buildIngestApp() (*app, error) {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return nil, err
	}

	embedder := newEmbedder(cfg, logger)
	chunkCfg := chunk.Config{
		ChildChars:     cfg.Index.ChildChars,
		ChildStride:    cfg.Index.ChildStride,
		BreakpointHigh: cfg.Retrieval.BreakpointHigh,
		BreakpointLow:  cfg.Retrieval.BreakpointLow,
		ParentMinChars: cfg.Index.ParentMinChars,
	}
	chunker := chunk.New(embedder, chunkCfg, logger)
	idx := index.New(logger)
	loader := ingest.New(ingest.PlainTextExtractor{}, chunker, embedder, idx, logger)

	return &app{cfg: cfg, logger: logger, idx: idx, loader: loader}, nil
}

// buildFullApp wires the whole RAG stack against an already-ingested
// index snapshot, for `ask`, `chat`, and `eval`.
func buildFullApp() (*app, error) {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return nil, err
	}

	idx := index.New(logger)
	if err := idx.Load(cfg.Index.SnapshotPath); err != nil {
		return nil, fmt.Errorf("load index snapshot %s (run `bookctl ingest` first): %w", cfg.Index.SnapshotPath, err)
	}

	embedder := newEmbedder(cfg, logger)
	gen := newGeneratorFunc(cfg, logger)

	expander := expand.New(gen("translate"), gen("stepback"), gen("hyde"), cfg.Retrieval.HyDE, cfg.Retrieval.Stepback, logger)
	retriever := retrieve.New(idx, embedder, expander, retrieve.Config{
		HybridSearchEnabled: cfg.Retrieval.HybridSearch,
		RerankEnabled:       cfg.Retrieval.Rerank,
		RRFK:                cfg.Retrieval.RRFK,
		HybridTopK:          cfg.Retrieval.HybridTopK,
		MergeTopK:           cfg.Retrieval.MergeTopK,
		RerankTopK:          cfg.Retrieval.RerankTopK,
	}, logger)

	answerer := answer.New(retriever, gen("answer"), answer.NewSessions(), logger)

	evalPaths := evaluate.Paths{
		TestSetFile: cfg.Evaluation.TestSetFile,
		ReportFile:  cfg.Evaluation.ReportFile,
		HistoryDir:  cfg.Evaluation.HistoryDir,
	}
	evaluator := evaluate.New(gen("testgen"), gen("judge"), answerer, idx.Children, evalPaths, logger)

	return &app{cfg: cfg, logger: logger, idx: idx, answerer: answerer, evaluator: evaluator}, nil
}
