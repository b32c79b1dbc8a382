package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

const judgeSystemPrompt = "You are an impartial judge evaluating an AI assistant's answer against reference " +
	"material from a book. Score the answer on two dimensions in [0,1]: " +
	"faithfulness (is every claim supported by the provided sources, with no fabrication?) and " +
	"relevance (does the answer actually address the question?). " +
	"Respond with only a JSON object: {\"faithfulness\": <0-1>, \"relevance\": <0-1>, \"reasoning\": \"<one sentence>\"}."

// judge scores one answer via the Generator acting as an evaluator. On
// a failed call or malformed JSON, scores default to 0 and the failure
// (domain.ErrParseFailed for malformed JSON) is logged here; no error is
// returned to the caller (§4.6, §7's ParseFailed row).
func judge(ctx context.Context, generator domain.Generator, question, groundTruth, answer string, sources []string, logger *zap.Logger) domain.JudgeVerdict {
	userPrompt := fmt.Sprintf(
		"Question: %s\n\nReference ground truth: %s\n\nRetrieved sources:\n%s\n\nAssistant's answer: %s",
		question, groundTruth, strings.Join(sources, "\n---\n"), answer,
	)

	reply, err := generator.Call(ctx, []domain.Message{
		{Role: domain.RoleSystem, Text: judgeSystemPrompt},
		{Role: domain.RoleUser, Text: userPrompt},
	})
	if err != nil {
		logger.Warn("judge call failed, scoring zero", zap.Error(err))
		return domain.JudgeVerdict{}
	}

	verdict, err := parseJudgeVerdict(reply)
	if err != nil {
		logger.Warn("judge returned malformed JSON, scoring zero", zap.Error(domain.ErrParseFailed), zap.String("raw", reply))
		return domain.JudgeVerdict{}
	}
	return verdict
}

func parseJudgeVerdict(raw string) (domain.JudgeVerdict, error) {
	raw = extractJSONObject(raw)

	var v domain.JudgeVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.JudgeVerdict{}, fmt.Errorf("parse judge verdict: %w", err)
	}

	v.Faithfulness = clamp01(v.Faithfulness)
	v.Relevance = clamp01(v.Relevance)
	return v, nil
}

// extractJSONObject trims any leading/trailing prose around the first
// {...} block, since judge models occasionally wrap JSON in markdown
// fences or commentary despite instructions.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
