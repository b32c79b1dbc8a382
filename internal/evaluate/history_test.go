package evaluate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

func TestSaveHistory_WritesDatedFileWithExpectedShape(t *testing.T) {
	dir := t.TempDir()
	records := []domain.EvaluationRecord{
		{Question: "q1", GroundTruth: "gt1", Answer: "a1", Faithfulness: 0.9, Relevance: 0.8},
	}
	averages := domain.AverageScores{Faithfulness: 0.9, Relevance: 0.8, ContextPrecision: 0.7, AnswerSimilarity: 0.6}

	path, err := SaveHistory(dir, "2026-08-06", "2026-08-06T12:00:00Z", averages, records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "evaluation_20260806.json" {
		t.Fatalf("unexpected file name: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading history file: %v", err)
	}

	var decoded struct {
		Date          string                    `json:"date"`
		Timestamp     string                    `json:"timestamp"`
		NumQuestions  int                       `json:"numQuestions"`
		AverageScores domain.AverageScores      `json:"averageScores"`
		Results       []domain.EvaluationRecord `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal history file: %v", err)
	}
	if decoded.Date != "2026-08-06" || decoded.NumQuestions != 1 {
		t.Fatalf("unexpected decoded history: %+v", decoded)
	}
	if decoded.AverageScores.Faithfulness != 0.9 {
		t.Fatalf("unexpected average scores: %+v", decoded.AverageScores)
	}
}
