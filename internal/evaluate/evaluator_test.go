package evaluate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

func sampleEvalSegments() []domain.Segment {
	return []domain.Segment{
		{ID: "c1", Kind: domain.KindChild, Text: "France is a country in Western Europe. Its capital is Paris."},
		{ID: "c2", Kind: domain.KindChild, Text: "Spain is a country on the Iberian Peninsula. Its capital is Madrid."},
	}
}

func TestEvaluator_RunFullEvaluation(t *testing.T) {
	dir := t.TempDir()
	testgenGen := fakeGenerator{reply: `{"question": "What is the capital of France?", "ground_truth": "Paris"}`}
	judgeGen := fakeGenerator{reply: `{"faithfulness": 1, "relevance": 1, "reasoning": "exact match"}`}
	answerGen := fakeGenerator{fragments: []domain.StreamFragment{{Text: "Paris."}, {Done: true}}}
	ans := newTestAnswerer(answerGen)

	paths := Paths{
		TestSetFile: filepath.Join(dir, "test-set.json"),
		ReportFile:  filepath.Join(dir, "evaluation_report.md"),
		HistoryDir:  filepath.Join(dir, "evaluation-history"),
	}
	ev := New(testgenGen, judgeGen, ans, sampleEvalSegments, paths, nil)

	records, averages, report, err := ev.RunFullEvaluation(context.Background(), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected at least one evaluation record")
	}
	if averages.Faithfulness != 1 {
		t.Fatalf("expected faithfulness average of 1, got %v", averages.Faithfulness)
	}
	if report == "" {
		t.Fatal("expected a non-empty rendered report")
	}
}

func TestEvaluator_GenerateTestSet_NoEligibleSegmentsErrors(t *testing.T) {
	dir := t.TempDir()
	ev := New(fakeGenerator{}, fakeGenerator{}, nil, func() []domain.Segment { return nil }, Paths{TestSetFile: filepath.Join(dir, "test-set.json")}, nil)

	if _, err := ev.GenerateTestSet(context.Background(), -1); err == nil {
		t.Fatal("expected an error when no segments are eligible")
	}
}
