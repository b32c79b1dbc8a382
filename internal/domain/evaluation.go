package domain

// TestQuestion is a synthetic question/answer pair generated from one
// or two source segments, used to drive the Evaluator's batch run.
type TestQuestion struct {
	Question      string `json:"question"`
	GroundTruth   string `json:"ground_truth"`
	SourceSegment string `json:"source_segment"`
	SegmentID     string `json:"segment_id"`
}

// JudgeVerdict is the structured output of a Generator-as-judge call.
type JudgeVerdict struct {
	Faithfulness float64 `json:"faithfulness"`
	Relevance    float64 `json:"relevance"`
	Reasoning    string  `json:"reasoning"`
}

// EvaluationRecord holds one test question's run through the full core
// plus its scores.
type EvaluationRecord struct {
	Question         string   `json:"question"`
	GroundTruth      string   `json:"ground_truth"`
	Answer           string   `json:"answer"`
	RetrievedSources []string `json:"retrieved_sources"`
	Faithfulness     float64  `json:"faithfulness"`
	Relevance        float64  `json:"relevance"`
	ContextPrecision float64  `json:"context_precision"`
	AnswerSimilarity float64  `json:"answer_similarity"`
	JudgeReasoning   string   `json:"judge_reasoning"`
}

// AverageScores summarizes a batch run.
type AverageScores struct {
	Faithfulness     float64 `json:"faithfulness"`
	Relevance        float64 `json:"relevance"`
	ContextPrecision float64 `json:"contextPrecision"`
	AnswerSimilarity float64 `json:"answerSimilarity"`
}
