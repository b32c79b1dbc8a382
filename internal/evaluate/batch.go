package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/bookrag/internal/answer"
	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/metrics"
)

// batchWorkerPoolSize caps in-flight questions during a batch run at a
// fixed bound (§5).
const batchWorkerPoolSize = 8

// rateLimitBackoff is how long a question's worker waits after hitting
// ErrRateLimited before retrying that question once (§5, §7).
const rateLimitBackoff = 5 * time.Second

// RunBatch answers every question through ans, judges each answer with
// judgeGen, and scores Context Precision/Answer Similarity intrinsically.
// Questions are dispatched up to batchWorkerPoolSize at a time. A
// rate-limited answer makes that question's worker wait rateLimitBackoff
// and retry the question once; dispatch of the other questions does not
// pause, and a question still failing after the retry is dropped from
// the results rather than failing the batch (§4.6, §5).
func RunBatch(ctx context.Context, questions []domain.TestQuestion, ans *answer.Answerer, judgeGen domain.Generator, logger *zap.Logger) ([]domain.EvaluationRecord, domain.AverageScores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(questions) == 0 {
		return nil, domain.AverageScores{}, nil
	}

	sem := semaphore.NewWeighted(batchWorkerPoolSize)
	records := make([]domain.EvaluationRecord, len(questions))
	errs := make([]error, len(questions))

	var wg sync.WaitGroup
	for i, q := range questions {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = fmt.Errorf("acquire worker slot: %w", err)
			continue
		}

		wg.Add(1)
		go func(i int, q domain.TestQuestion) {
			defer wg.Done()
			defer sem.Release(1)

			rec, err := scoreOne(ctx, q, ans, judgeGen, logger)
			if err != nil {
				if errors.Is(err, domain.ErrRateLimited) {
					logger.Warn("evaluation batch: rate limited, pausing", zap.Duration("backoff", rateLimitBackoff))
					metrics.EvaluationBackpressurePauses.WithLabelValues().Inc()
					select {
					case <-time.After(rateLimitBackoff):
					case <-ctx.Done():
					}
					rec, err = scoreOne(ctx, q, ans, judgeGen, logger)
				}
			}
			if err != nil {
				logger.Warn("evaluation batch: question failed", zap.Error(err), zap.String("question", q.Question))
				metrics.EvaluationQuestionsTotal.WithLabelValues("error").Inc()
				errs[i] = err
				return
			}
			metrics.EvaluationQuestionsTotal.WithLabelValues("scored").Inc()
			records[i] = rec
		}(i, q)
	}
	wg.Wait()

	var scored []domain.EvaluationRecord
	for i, rec := range records {
		if errs[i] != nil {
			continue
		}
		scored = append(scored, rec)
	}
	if len(scored) == 0 {
		return nil, domain.AverageScores{}, fmt.Errorf("evaluation batch: every question failed")
	}

	return scored, averageScores(scored), nil
}

func scoreOne(ctx context.Context, q domain.TestQuestion, ans *answer.Answerer, judgeGen domain.Generator, logger *zap.Logger) (domain.EvaluationRecord, error) {
	sessionID := "eval-" + q.SegmentID
	answerText, passages, err := ans.AnswerSync(ctx, sessionID, q.Question)
	if err != nil {
		return domain.EvaluationRecord{}, fmt.Errorf("answer question: %w", err)
	}

	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, p.Segment.Text)
	}

	verdict := judge(ctx, judgeGen, q.Question, q.GroundTruth, answerText, sources, logger)

	return domain.EvaluationRecord{
		Question:         q.Question,
		GroundTruth:      q.GroundTruth,
		Answer:           answerText,
		RetrievedSources: sources,
		Faithfulness:     verdict.Faithfulness,
		Relevance:        verdict.Relevance,
		ContextPrecision: ContextPrecision(sources, q.SourceSegment),
		AnswerSimilarity: AnswerSimilarity(answerText, q.GroundTruth),
		JudgeReasoning:   verdict.Reasoning,
	}, nil
}

func averageScores(records []domain.EvaluationRecord) domain.AverageScores {
	var avg domain.AverageScores
	for _, r := range records {
		avg.Faithfulness += r.Faithfulness
		avg.Relevance += r.Relevance
		avg.ContextPrecision += r.ContextPrecision
		avg.AnswerSimilarity += r.AnswerSimilarity
	}
	n := float64(len(records))
	avg.Faithfulness /= n
	avg.Relevance /= n
	avg.ContextPrecision /= n
	avg.AnswerSimilarity /= n
	return avg
}
