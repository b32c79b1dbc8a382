package evaluate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// highScoreThreshold is the bar a per-question score must clear to
// count toward a report's "high score rate" column.
const highScoreThreshold = 0.8

// GenerateReport renders a batch run as a Markdown report: an averages
// table with high-score rates, a per-question table, and a closing
// verdict banded at 0.8/0.6.
func GenerateReport(records []domain.EvaluationRecord, averages domain.AverageScores) string {
	if len(records) == 0 {
		return "# RAG Evaluation Report\n\nNo evaluation results to report.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# RAG Evaluation Report\n\n")
	fmt.Fprintf(&b, "Questions evaluated: %d\n\n", len(records))

	b.WriteString("## Overall scores\n\n")
	b.WriteString("| Metric | Average | High-score rate (>=0.8) |\n")
	b.WriteString("|--------|---------|--------------------------|\n")
	writeScoreRow(&b, "Faithfulness", averages.Faithfulness, highScoreRate(records, func(r domain.EvaluationRecord) float64 { return r.Faithfulness }))
	writeScoreRow(&b, "Relevance", averages.Relevance, highScoreRate(records, func(r domain.EvaluationRecord) float64 { return r.Relevance }))
	writeScoreRow(&b, "Context Precision", averages.ContextPrecision, highScoreRate(records, func(r domain.EvaluationRecord) float64 { return r.ContextPrecision }))
	writeScoreRow(&b, "Answer Similarity", averages.AnswerSimilarity, highScoreRate(records, func(r domain.EvaluationRecord) float64 { return r.AnswerSimilarity }))
	b.WriteString("\n")

	b.WriteString("## Per-question results\n\n")
	b.WriteString("| # | Question | Faithfulness | Relevance | Context Precision | Answer Similarity |\n")
	b.WriteString("|---|----------|--------------|-----------|--------------------|--------------------|\n")
	for i, r := range records {
		fmt.Fprintf(&b, "| %d | %s | %.3f | %.3f | %.3f | %.3f |\n",
			i+1, escapePipes(truncate(r.Question, 60)), r.Faithfulness, r.Relevance, r.ContextPrecision, r.AnswerSimilarity)
	}
	b.WriteString("\n")

	b.WriteString("## Conclusion\n\n")
	fmt.Fprintf(&b, "This run evaluated %d questions.\n", len(records))
	fmt.Fprintf(&b, "- **Faithfulness** average: %.3f\n", averages.Faithfulness)
	fmt.Fprintf(&b, "- **Relevance** average: %.3f\n", averages.Relevance)
	fmt.Fprintf(&b, "- **Context Precision** average: %.3f\n", averages.ContextPrecision)
	fmt.Fprintf(&b, "- **Answer Similarity** average: %.3f\n\n", averages.AnswerSimilarity)
	b.WriteString(verdictLine(averages))

	return b.String()
}

func writeScoreRow(b *strings.Builder, name string, avg, highRate float64) {
	fmt.Fprintf(b, "| **%s** | %.3f | %.1f%% |\n", name, avg, highRate*100)
}

func highScoreRate(records []domain.EvaluationRecord, score func(domain.EvaluationRecord) float64) float64 {
	var high int
	for _, r := range records {
		if score(r) >= highScoreThreshold {
			high++
		}
	}
	return float64(high) / float64(len(records))
}

func verdictLine(avg domain.AverageScores) string {
	overall := (avg.Faithfulness + avg.Relevance) / 2
	switch {
	case overall >= 0.8:
		return "Result: the system performs well on faithfulness and relevance.\n"
	case overall >= 0.6:
		return "Result: the system is acceptable but has room to improve.\n"
	default:
		return "Result: the system needs improvement on faithfulness and relevance.\n"
	}
}

// writeReportFile persists a rendered report to path, creating parent
// directories as needed.
func writeReportFile(path, report string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReportFile reads back a previously persisted report, for the
// transport layer's GET /api/evaluation/report.
func ReadReportFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	return string(data), nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
