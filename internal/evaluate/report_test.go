package evaluate

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

func TestGenerateReport_EmptyRecords(t *testing.T) {
	report := GenerateReport(nil, domain.AverageScores{})
	if !strings.Contains(report, "No evaluation results") {
		t.Fatalf("expected empty-report message, got %q", report)
	}
}

func TestGenerateReport_IncludesScoresAndVerdict(t *testing.T) {
	records := []domain.EvaluationRecord{
		{Question: "What is the capital of France?", Faithfulness: 0.9, Relevance: 0.85, ContextPrecision: 0.7, AnswerSimilarity: 0.6},
	}
	averages := domain.AverageScores{Faithfulness: 0.9, Relevance: 0.85, ContextPrecision: 0.7, AnswerSimilarity: 0.6}

	report := GenerateReport(records, averages)
	if !strings.Contains(report, "Faithfulness") || !strings.Contains(report, "0.900") {
		t.Fatalf("expected faithfulness average in report, got:\n%s", report)
	}
	if !strings.Contains(report, "performs well") {
		t.Fatalf("expected a positive verdict for high scores, got:\n%s", report)
	}
}

func TestGenerateReport_EscapesPipesInQuestions(t *testing.T) {
	records := []domain.EvaluationRecord{
		{Question: "A | B?", Faithfulness: 0.1, Relevance: 0.1},
	}
	report := GenerateReport(records, domain.AverageScores{Faithfulness: 0.1, Relevance: 0.1})
	if !strings.Contains(report, `A \| B?`) {
		t.Fatalf("expected escaped pipe in question, got:\n%s", report)
	}
	if !strings.Contains(report, "needs improvement") {
		t.Fatalf("expected a negative verdict for low scores, got:\n%s", report)
	}
}
