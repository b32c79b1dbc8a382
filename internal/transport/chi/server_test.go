package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/bookrag/internal/answer"
	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/evaluate"
	"github.com/kailas-cloud/bookrag/internal/expand"
	"github.com/kailas-cloud/bookrag/internal/retrieve"
)

type fakeGenerator struct {
	reply     string
	fragments []domain.StreamFragment
	streamErr error
}

func (f fakeGenerator) Call(_ context.Context, _ []domain.Message) (string, error) {
	return f.reply, nil
}

func (f fakeGenerator) Stream(_ context.Context, _ []domain.Message) (<-chan domain.StreamFragment, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	out := make(chan domain.StreamFragment, len(f.fragments))
	for _, frag := range f.fragments {
		out <- frag
	}
	close(out)
	return out, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

type emptyIndex struct{}

func (emptyIndex) VectorSearch(_ []float32, _ int) []domain.SearchResult { return nil }
func (emptyIndex) LexicalSearch(_ string, _ int) []domain.SearchResult   { return nil }
func (emptyIndex) ParentOf(_ domain.Segment) (domain.Segment, bool)      { return domain.Segment{}, false }

func newTestAnswerer(gen domain.Generator) *answer.Answerer {
	sessions := answer.NewSessions()
	expander := expand.New(fakeGenerator{}, fakeGenerator{}, fakeGenerator{}, false, false, nil)
	r := retrieve.New(emptyIndex{}, stubEmbedder{}, expander, retrieve.DefaultConfig(), nil)
	return answer.New(r, gen, sessions, nil)
}

func sampleSegments() []domain.Segment {
	return []domain.Segment{
		{ID: "c1", Kind: domain.KindChild, Text: "France is a country in Western Europe. Its capital is Paris."},
	}
}

func newTestServer(t *testing.T, ans *answer.Answerer) (*Server, evaluate.Paths) {
	dir := t.TempDir()
	paths := evaluate.Paths{
		TestSetFile: filepath.Join(dir, "test-set.json"),
		ReportFile:  filepath.Join(dir, "evaluation_report.md"),
		HistoryDir:  filepath.Join(dir, "evaluation-history"),
	}
	testgenGen := fakeGenerator{reply: `{"question": "What is the capital of France?", "ground_truth": "Paris"}`}
	judgeGen := fakeGenerator{reply: `{"faithfulness": 1, "relevance": 1, "reasoning": "exact match"}`}
	ev := evaluate.New(testgenGen, judgeGen, ans, sampleSegments, paths, nil)
	return NewServer(ans, ev, nil), paths
}

func TestHandleChat_ReturnsPlainTextCompletion(t *testing.T) {
	gen := fakeGenerator{fragments: []domain.StreamFragment{{Text: "Paris."}, {Done: true}}}
	ans := newTestAnswerer(gen)
	s, _ := newTestServer(t, ans)

	req := httptest.NewRequest(http.MethodGet, "/api/ai/chat?prompt=capital+of+France", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "Paris." {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestHandleChat_MissingPromptReturns400(t *testing.T) {
	ans := newTestAnswerer(fakeGenerator{})
	s, _ := newTestServer(t, ans)

	req := httptest.NewRequest(http.MethodGet, "/api/ai/chat", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleStream_EmitsSSEFrames(t *testing.T) {
	gen := fakeGenerator{fragments: []domain.StreamFragment{{Text: "The "}, {Text: "answer."}, {Done: true}}}
	ans := newTestAnswerer(gen)
	s, _ := newTestServer(t, ans)

	body := strings.NewReader(`{"prompt": "what is it?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", body)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := rec.Body.String()
	if !strings.Contains(got, "data: The ") || !strings.Contains(got, "data: answer.") {
		t.Fatalf("expected fragment data events, got:\n%s", got)
	}
	if !strings.Contains(got, "event: done") {
		t.Fatalf("expected a terminal done event, got:\n%s", got)
	}
}

func TestHandleStream_GeneratorStartFailureReturns500(t *testing.T) {
	gen := fakeGenerator{streamErr: errors.New("boom")}
	ans := newTestAnswerer(gen)
	s, _ := newTestServer(t, ans)

	body := strings.NewReader(`{"prompt": "what is it?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", body)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for an unclassified Generator error, got %d", rec.Code)
	}
}

func TestEvaluationEndpoints_FullRoundTrip(t *testing.T) {
	gen := fakeGenerator{fragments: []domain.StreamFragment{{Text: "Paris."}, {Done: true}}}
	ans := newTestAnswerer(gen)
	s, _ := newTestServer(t, ans)
	router := s.Routes()

	genReq := httptest.NewRequest(http.MethodPost, "/api/evaluation/generate-test-set?numQuestions=1", nil)
	genRec := httptest.NewRecorder()
	router.ServeHTTP(genRec, genReq)
	if genRec.Code != http.StatusOK {
		t.Fatalf("generate-test-set: expected 200, got %d: %s", genRec.Code, genRec.Body.String())
	}
	var genResp generateTestSetResponse
	if err := json.Unmarshal(genRec.Body.Bytes(), &genResp); err != nil {
		t.Fatalf("decode generate-test-set response: %v", err)
	}
	if !genResp.Success || genResp.NumQuestions == 0 {
		t.Fatalf("unexpected generate-test-set response: %+v", genResp)
	}

	batchReq := httptest.NewRequest(http.MethodPost, "/api/evaluation/run-batch-test", nil)
	batchRec := httptest.NewRecorder()
	router.ServeHTTP(batchRec, batchReq)
	if batchRec.Code != http.StatusOK {
		t.Fatalf("run-batch-test: expected 200, got %d: %s", batchRec.Code, batchRec.Body.String())
	}
	var batchResp runBatchTestResponse
	if err := json.Unmarshal(batchRec.Body.Bytes(), &batchResp); err != nil {
		t.Fatalf("decode run-batch-test response: %v", err)
	}
	if batchResp.AvgFaithfulness != 1 {
		t.Fatalf("expected avgFaithfulness of 1, got %v", batchResp.AvgFaithfulness)
	}

	reportReq := httptest.NewRequest(http.MethodGet, "/api/evaluation/report", nil)
	reportRec := httptest.NewRecorder()
	router.ServeHTTP(reportRec, reportReq)
	if reportRec.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d: %s", reportRec.Code, reportRec.Body.String())
	}
	var reportResp getReportResponse
	if err := json.Unmarshal(reportRec.Body.Bytes(), &reportResp); err != nil {
		t.Fatalf("decode report response: %v", err)
	}
	if !strings.Contains(reportResp.Report, "Faithfulness") {
		t.Fatalf("expected a rendered report, got: %q", reportResp.Report)
	}
}

func TestEvaluationEndpoints_DisabledWhenNoEvaluator(t *testing.T) {
	ans := newTestAnswerer(fakeGenerator{})
	s := NewServer(ans, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/evaluation/generate-test-set", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when evaluation is not configured, got %d", rec.Code)
	}
}

func TestHealthz_ReturnsOK(t *testing.T) {
	ans := newTestAnswerer(fakeGenerator{})
	s, _ := newTestServer(t, ans)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
