// Command bookragd is the HTTP daemon that answers questions over a
// previously ingested reference document (§6). Run `bookctl ingest`
// first to produce the index snapshot this binary loads at startup.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chilib "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/answer"
	"github.com/kailas-cloud/bookrag/internal/config"
	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/evaluate"
	"github.com/kailas-cloud/bookrag/internal/expand"
	"github.com/kailas-cloud/bookrag/internal/index"
	logpkg "github.com/kailas-cloud/bookrag/internal/logger"
	"github.com/kailas-cloud/bookrag/internal/metrics"
	"github.com/kailas-cloud/bookrag/internal/retrieve"
	chiTransport "github.com/kailas-cloud/bookrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/bookrag/internal/transport/openai"
	"github.com/kailas-cloud/bookrag/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting bookragd",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	metrics.Register()

	embedder := openaiTransport.NewEmbedder(openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedder.APIKey,
		BaseURL:    cfg.Embedder.BaseURL,
		Model:      cfg.Embedder.Model,
		Dimensions: cfg.Embedder.Dimensions,
		Logger:     logger,
	})

	newGenerator := func(stage string) domain.Generator {
		g := openaiTransport.NewGenerator(openaiTransport.GeneratorConfig{
			APIKey:  cfg.Generator.APIKey,
			BaseURL: cfg.Generator.BaseURL,
			Model:   cfg.Generator.Model,
			Logger:  logger,
		})
		return openaiTransport.NewInstrumentedGenerator(g, stage, logger)
	}

	idx := index.New(logger)
	if err := idx.Load(cfg.Index.SnapshotPath); err != nil {
		logger.Fatal("failed to load index snapshot; run `bookctl ingest` first",
			zap.String("path", cfg.Index.SnapshotPath), zap.Error(err))
	}
	logger.Info("index snapshot loaded", zap.Any("stats", idx.Stats()))

	expander := expand.New(
		newGenerator("translate"),
		newGenerator("stepback"),
		newGenerator("hyde"),
		cfg.Retrieval.HyDE,
		cfg.Retrieval.Stepback,
		logger,
	)

	retrieveCfg := retrieve.Config{
		HybridSearchEnabled: cfg.Retrieval.HybridSearch,
		RerankEnabled:       cfg.Retrieval.Rerank,
		RRFK:                cfg.Retrieval.RRFK,
		HybridTopK:          cfg.Retrieval.HybridTopK,
		MergeTopK:           cfg.Retrieval.MergeTopK,
		RerankTopK:          cfg.Retrieval.RerankTopK,
	}
	retriever := retrieve.New(idx, embedder, expander, retrieveCfg, logger)

	sessions := answer.NewSessions()
	answerer := answer.New(retriever, newGenerator("answer"), sessions, logger)

	evalPaths := evaluate.Paths{
		TestSetFile: cfg.Evaluation.TestSetFile,
		ReportFile:  cfg.Evaluation.ReportFile,
		HistoryDir:  cfg.Evaluation.HistoryDir,
	}
	evaluator := evaluate.New(newGenerator("testgen"), newGenerator("judge"), answerer, idx.Children, evalPaths, logger)

	server := chiTransport.NewServer(answerer, evaluator, logger)

	r := chilib.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a
// plain-text stack trace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered", zap.Any("panic", rvr), zap.Stack("stacktrace"))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and
// propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
