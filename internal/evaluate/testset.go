package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// minSegmentChars is the shortest child segment worth turning into a
// test question (§4.6).
const minSegmentChars = 50

// pairProbability is the chance a segment is combined with its
// successor into a two-passage question rather than scored alone.
const pairProbability = 0.3

const testgenSystemPrompt = "You write evaluation questions for a RAG system from reference book passages. " +
	"Given one or two passages, write a single question a reader could answer using only that text, plus a " +
	"concise ground-truth answer. Respond with only a JSON object: " +
	"{\"question\": \"...\", \"ground_truth\": \"...\"}."

// GenerateTestSet synthesises up to n test questions from segments
// (all of them if n < 0), pairing adjacent segments with probability
// pairProbability. Malformed Generator output drops that sample rather
// than aborting the run (§4.6).
func GenerateTestSet(ctx context.Context, generator domain.Generator, segments []domain.Segment, n int, logger *zap.Logger) []domain.TestQuestion {
	if logger == nil {
		logger = zap.NewNop()
	}

	var questions []domain.TestQuestion
	for i := 0; i < len(segments); i++ {
		if n >= 0 && len(questions) >= n {
			break
		}

		seg := segments[i]
		if len(seg.Text) < minSegmentChars {
			continue
		}

		if i+1 < len(segments) && rand.Float64() < pairProbability { //nolint:gosec // sampling only, not security-sensitive
			paired := segments[i+1]
			q, err := generateQuestion(ctx, generator, seg.Text+"\n\n"+paired.Text, seg.ID)
			if err != nil {
				logger.Warn("test-set generation: dropping paired sample", zap.Error(err))
				continue
			}
			questions = append(questions, q)
			i++ // the paired segment is consumed, skip it
			continue
		}

		q, err := generateQuestion(ctx, generator, seg.Text, seg.ID)
		if err != nil {
			logger.Warn("test-set generation: dropping sample", zap.Error(err))
			continue
		}
		questions = append(questions, q)
	}

	return questions
}

func generateQuestion(ctx context.Context, generator domain.Generator, sourceText, segmentID string) (domain.TestQuestion, error) {
	reply, err := generator.Call(ctx, []domain.Message{
		{Role: domain.RoleSystem, Text: testgenSystemPrompt},
		{Role: domain.RoleUser, Text: sourceText},
	})
	if err != nil {
		return domain.TestQuestion{}, fmt.Errorf("generate question: %w", err)
	}

	var parsed struct {
		Question    string `json:"question"`
		GroundTruth string `json:"ground_truth"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &parsed); err != nil {
		return domain.TestQuestion{}, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}
	if parsed.Question == "" || parsed.GroundTruth == "" {
		return domain.TestQuestion{}, fmt.Errorf("%w: empty question or ground truth", domain.ErrParseFailed)
	}

	return domain.TestQuestion{
		Question:      parsed.Question,
		GroundTruth:   parsed.GroundTruth,
		SourceSegment: sourceText,
		SegmentID:     segmentID,
	}, nil
}

// SaveTestSet persists questions to path as pretty-printed JSON.
func SaveTestSet(path string, questions []domain.TestQuestion) error {
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal test set: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create test set dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write test set: %w", err)
	}
	return nil
}

// LoadTestSet reads a previously saved test set.
func LoadTestSet(path string) ([]domain.TestQuestion, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read test set: %w", err)
	}
	var questions []domain.TestQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse test set: %w", err)
	}
	return questions, nil
}
