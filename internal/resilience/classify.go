// Package resilience classifies transport-level failures from the
// Embedder/Generator into the stable error categories of §7, adapted
// from an internal/transport/openai parseAPIError shape.
package resilience

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// Classify maps a context error or an OpenAI-compatible API error to
// one of the sentinel error categories in internal/domain. Errors that
// don't match a known shape are wrapped with a generic message and
// returned unclassified.
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if ctx.Err() != nil && (errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewUpstreamError(reqErr.HTTPStatusCode, requestErrDetail(reqErr))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewUpstreamError(apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("request failed: %w", err)
}

func requestErrDetail(reqErr *openai.RequestError) string {
	if reqErr.Body != nil {
		return string(reqErr.Body)
	}
	if reqErr.Err != nil {
		return reqErr.Err.Error()
	}
	return "unknown error"
}
