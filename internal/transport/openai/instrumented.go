package openai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/metrics"
)

// InstrumentedGenerator wraps a domain.Generator with per-stage metrics and
// logging, following an InstrumentedEmbedder decorator shape. Stage
// is one of translate/stepback/hyde/answer/judge/testgen, per §4.
type InstrumentedGenerator struct {
	inner  domain.Generator
	stage  string
	logger *zap.Logger
}

// NewInstrumentedGenerator wraps inner with observability for a fixed stage.
func NewInstrumentedGenerator(inner domain.Generator, stage string, logger *zap.Logger) *InstrumentedGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedGenerator{inner: inner, stage: stage, logger: logger}
}

// Call delegates to inner, recording stage-labeled metrics around it.
func (g *InstrumentedGenerator) Call(ctx context.Context, messages []domain.Message) (string, error) {
	start := time.Now()
	text, err := g.inner.Call(ctx, messages)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.stage, "error").Inc()
		g.logger.Error("generation call failed", zap.String("stage", g.stage), zap.Error(err))
		return "", fmt.Errorf("%s: %w", g.stage, err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.stage, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.stage).Observe(duration.Seconds())
	g.logger.Debug("generation call completed", zap.String("stage", g.stage), zap.Duration("duration", duration))

	return text, nil
}

// Stream delegates to inner, recording stage-labeled metrics once the
// returned channel yields its terminal fragment.
func (g *InstrumentedGenerator) Stream(ctx context.Context, messages []domain.Message) (<-chan domain.StreamFragment, error) {
	start := time.Now()

	fragments, err := g.inner.Stream(ctx, messages)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.stage, "error").Inc()
		g.logger.Error("generation stream start failed", zap.String("stage", g.stage), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", g.stage, err)
	}

	out := make(chan domain.StreamFragment)
	go func() {
		defer close(out)
		for frag := range fragments {
			if frag.Err != nil {
				metrics.GenerationRequestsTotal.WithLabelValues(g.stage, "error").Inc()
			} else if frag.Done {
				metrics.GenerationRequestsTotal.WithLabelValues(g.stage, "success").Inc()
				metrics.GenerationRequestDuration.WithLabelValues(g.stage).Observe(time.Since(start).Seconds())
			}
			select {
			case out <- frag:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
