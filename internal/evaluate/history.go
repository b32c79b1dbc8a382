package evaluate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// historyRecord is the on-disk shape of one evaluation-history file
// (§6): {date, timestamp, numQuestions, averageScores{...}, results:[...]}.
type historyRecord struct {
	Date          string                    `json:"date"`
	Timestamp     string                    `json:"timestamp"`
	NumQuestions  int                       `json:"numQuestions"`
	AverageScores domain.AverageScores      `json:"averageScores"`
	Results       []domain.EvaluationRecord `json:"results"`
}

// SaveHistory writes a dated evaluation-history file under dir, named
// evaluation_YYYYMMDD.json. date and timestamp are caller-supplied
// (RFC3339-ish strings) rather than taken from time.Now here, so
// callers control the clock and the function stays deterministic to
// test.
func SaveHistory(dir, date, timestamp string, averages domain.AverageScores, records []domain.EvaluationRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create evaluation history dir: %w", err)
	}

	rec := historyRecord{
		Date:          date,
		Timestamp:     timestamp,
		NumQuestions:  len(records),
		AverageScores: averages,
		Results:       records,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal evaluation history: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("evaluation_%s.json", compactDate(date)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write evaluation history: %w", err)
	}
	return path, nil
}

// compactDate turns a YYYY-MM-DD date into YYYYMMDD for the filename;
// dates that don't contain hyphens (already compact) pass through.
func compactDate(date string) string {
	out := make([]byte, 0, len(date))
	for i := 0; i < len(date); i++ {
		if date[i] == '-' {
			continue
		}
		out = append(out, date[i])
	}
	return string(out)
}
