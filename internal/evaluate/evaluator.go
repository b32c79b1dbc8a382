// Package evaluate implements the Evaluator (§4.6): synthetic
// test-set generation, a parallel batch run scored by a Generator
// acting as judge plus two intrinsic metrics, Markdown reporting, and
// dated history persistence.
package evaluate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/answer"
	"github.com/kailas-cloud/bookrag/internal/domain"
)

// Paths collects the file locations the Evaluator writes to and reads
// from.
type Paths struct {
	TestSetFile string
	ReportFile  string
	HistoryDir  string
}

// Evaluator composes the stages of §4.6 into the three public
// entry points a CLI or HTTP handler drives: GenerateTestSet,
// RunBatchTest, and RunFullEvaluation.
type Evaluator struct {
	testgenGen domain.Generator
	judgeGen   domain.Generator
	answerer   *answer.Answerer
	segments   func() []domain.Segment
	paths      Paths
	logger     *zap.Logger
}

// New constructs an Evaluator. segments lazily enumerates the corpus's
// child segments (the Index's Children, typically) at generation time
// rather than being snapshotted at construction, so a reloaded Index
// is picked up automatically.
func New(testgenGen, judgeGen domain.Generator, answerer *answer.Answerer, segments func() []domain.Segment, paths Paths, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{testgenGen: testgenGen, judgeGen: judgeGen, answerer: answerer, segments: segments, paths: paths, logger: logger}
}

// GenerateTestSet synthesises numQuestions test questions (or all
// eligible segments if numQuestions < 0) and persists them to
// TestSetFile.
func (e *Evaluator) GenerateTestSet(ctx context.Context, numQuestions int) ([]domain.TestQuestion, error) {
	questions := GenerateTestSet(ctx, e.testgenGen, e.segments(), numQuestions, e.logger)
	if len(questions) == 0 {
		return nil, fmt.Errorf("test-set generation produced no questions")
	}
	if err := SaveTestSet(e.paths.TestSetFile, questions); err != nil {
		return questions, fmt.Errorf("save test set: %w", err)
	}
	return questions, nil
}

// RunBatchTest answers and scores every question in questions.
func (e *Evaluator) RunBatchTest(ctx context.Context, questions []domain.TestQuestion) ([]domain.EvaluationRecord, domain.AverageScores, error) {
	return RunBatch(ctx, questions, e.answerer, e.judgeGen, e.logger)
}

// Report renders records/averages as Markdown and persists it to
// ReportFile.
func (e *Evaluator) Report(records []domain.EvaluationRecord, averages domain.AverageScores) (string, error) {
	report := GenerateReport(records, averages)
	if e.paths.ReportFile == "" {
		return report, nil
	}
	if err := writeReportFile(e.paths.ReportFile, report); err != nil {
		return report, err
	}
	return report, nil
}

// Paths returns the file locations this Evaluator reads from and
// writes to, so a transport layer can report them back to a caller.
func (e *Evaluator) Paths() Paths {
	return e.paths
}

// History persists a dated evaluation-history record under HistoryDir.
func (e *Evaluator) History(date, timestamp string, averages domain.AverageScores, records []domain.EvaluationRecord) (string, error) {
	return SaveHistory(e.paths.HistoryDir, date, timestamp, averages, records)
}

// RunFullEvaluation chains GenerateTestSet -> RunBatchTest -> Report,
// The caller is
// responsible for persisting history afterward with the current date,
// since the Evaluator itself avoids reading the clock (§5's
// determinism constraints on core logic; see History).
func (e *Evaluator) RunFullEvaluation(ctx context.Context, numQuestions int) ([]domain.EvaluationRecord, domain.AverageScores, string, error) {
	questions, err := e.GenerateTestSet(ctx, numQuestions)
	if err != nil {
		return nil, domain.AverageScores{}, "", fmt.Errorf("run full evaluation: %w", err)
	}

	records, averages, err := e.RunBatchTest(ctx, questions)
	if err != nil {
		return nil, domain.AverageScores{}, "", fmt.Errorf("run full evaluation: %w", err)
	}

	report, err := e.Report(records, averages)
	if err != nil {
		e.logger.Warn("run full evaluation: failed to persist report", zap.Error(err))
	}

	return records, averages, report, nil
}
