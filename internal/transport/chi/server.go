// Package chi exposes the Answerer and Evaluator over HTTP: a
// synchronous chat endpoint, a streaming SSE endpoint, and the three
// evaluation-pipeline endpoints of §4.6/§6. Handwritten rather than
// codegen'd (an oapi-codegen surface doesn't fit a six-route
// service): a chain of sentinel-matching errorHandlers,
// writeJSON/writeError helpers, and a safe, non-leaking error message
// for anything that isn't a recognised sentinel.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/answer"
	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/evaluate"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the use cases the HTTP routes drive.
type Server struct {
	answerer      *answer.Answerer
	evaluator     *evaluate.Evaluator
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer builds a Server. evaluator may be nil if evaluation routes
// are not wired (e.g. a deployment with no judge Generator configured).
func NewServer(answerer *answer.Answerer, evaluator *evaluate.Evaluator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{answerer: answerer, evaluator: evaluator, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, "empty_input"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrUnauthorized, http.StatusBadGateway, "upstream_unauthorized"),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, "upstream_rate_limited"),
		sentinelHandler(domain.ErrUpstreamServerError, http.StatusBadGateway, "upstream_server_error"),
		sentinelHandler(domain.ErrCancelled, http.StatusRequestTimeout, "cancelled"),
	}
	return s
}

// Routes mounts every handler on a fresh chi.Router. Callers add their
// own middleware chain (recovery, request ID, auth, metrics) before
// calling this.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/ai/chat", s.handleChat)
	r.Post("/api/ai/stream", s.handleStream)

	r.Post("/api/evaluation/generate-test-set", s.handleGenerateTestSet)
	r.Post("/api/evaluation/run-batch-test", s.handleRunBatchTest)
	r.Post("/api/evaluation/run-full-evaluation", s.handleRunFullEvaluation)
	r.Get("/api/evaluation/report", s.handleGetReport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat answers prompt synchronously and writes the completion as
// plain text, matching AiChatController's GET /api/ai/chat contract.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "empty_input", "prompt query parameter is required")
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = "http-default"
	}

	text, _, err := s.answerer.AnswerSync(r.Context(), sessionID, prompt)
	if err != nil {
		s.handleError(w, err, "failed to answer prompt")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

type streamRequest struct {
	Prompt string `json:"prompt"`
}

// handleStream answers prompt and relays each fragment as an SSE event,
// matching AiChatController's POST /api/ai/stream contract.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "request body must be valid JSON")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "empty_input", "prompt field is required")
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = "http-default"
	}

	fragments, _, err := s.answerer.Answer(r.Context(), sessionID, req.Prompt)
	if err != nil {
		s.handleError(w, err, "failed to start answer stream")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for frag := range fragments {
		if frag.Err != nil {
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", safeDomainMessage(frag.Err))
			flusher.Flush()
			return
		}
		if frag.Text != "" {
			fmt.Fprintf(w, "data: %s\n\n", escapeSSE(frag.Text))
			flusher.Flush()
		}
		if frag.Done {
			fmt.Fprint(w, "event: done\ndata: [DONE]\n\n")
			flusher.Flush()
			return
		}
	}
}

// escapeSSE collapses newlines so a multi-line fragment still frames as
// one "data:" event per the SSE wire format.
func escapeSSE(text string) string {
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			out = append(out, ' ')
			continue
		}
		out = append(out, text[i])
	}
	return string(out)
}

type generateTestSetResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	NumQuestions int    `json:"numQuestions"`
	FilePath     string `json:"filePath"`
}

func (s *Server) handleGenerateTestSet(w http.ResponseWriter, r *http.Request) {
	if s.evaluator == nil {
		writeError(w, http.StatusServiceUnavailable, "evaluation_disabled", "evaluation is not configured")
		return
	}

	numQuestions := -1
	if raw := r.URL.Query().Get("numQuestions"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "numQuestions must be an integer")
			return
		}
		numQuestions = n
	}

	questions, err := s.evaluator.GenerateTestSet(r.Context(), numQuestions)
	if err != nil {
		s.handleError(w, err, "failed to generate test set")
		return
	}

	writeJSON(w, http.StatusOK, generateTestSetResponse{
		Success:      true,
		Message:      fmt.Sprintf("generated %d test questions", len(questions)),
		NumQuestions: len(questions),
		FilePath:     s.evaluator.Paths().TestSetFile,
	})
}

type runBatchTestResponse struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	NumResults      int     `json:"numResults"`
	AvgFaithfulness float64 `json:"avgFaithfulness"`
	AvgRelevance    float64 `json:"avgRelevance"`
	ReportPath      string  `json:"reportPath"`
}

func (s *Server) handleRunBatchTest(w http.ResponseWriter, r *http.Request) {
	if s.evaluator == nil {
		writeError(w, http.StatusServiceUnavailable, "evaluation_disabled", "evaluation is not configured")
		return
	}

	questions, err := evaluate.LoadTestSet(s.evaluator.Paths().TestSetFile)
	if err != nil {
		s.handleError(w, err, "failed to load test set; generate one first")
		return
	}

	records, averages, err := s.evaluator.RunBatchTest(r.Context(), questions)
	if err != nil {
		s.handleError(w, err, "failed to run batch test")
		return
	}

	report, err := s.evaluator.Report(records, averages)
	if err != nil {
		s.logger.Warn("failed to persist evaluation report", zap.Error(err))
	}
	s.persistHistory(averages, records)

	writeJSON(w, http.StatusOK, runBatchTestResponse{
		Success:         true,
		Message:         fmt.Sprintf("scored %d questions", len(records)),
		NumResults:      len(records),
		AvgFaithfulness: averages.Faithfulness,
		AvgRelevance:    averages.Relevance,
		ReportPath:      reportPathOrEmpty(s.evaluator, report),
	})
}

type runFullEvaluationResponse struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	NumResults      int     `json:"numResults"`
	AvgFaithfulness float64 `json:"avgFaithfulness"`
	AvgRelevance    float64 `json:"avgRelevance"`
	ReportPath      string  `json:"reportPath"`
	TestSetPath     string  `json:"testSetPath"`
}

func (s *Server) handleRunFullEvaluation(w http.ResponseWriter, r *http.Request) {
	if s.evaluator == nil {
		writeError(w, http.StatusServiceUnavailable, "evaluation_disabled", "evaluation is not configured")
		return
	}

	numQuestions := -1
	if raw := r.URL.Query().Get("numQuestions"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "numQuestions must be an integer")
			return
		}
		numQuestions = n
	}

	records, averages, report, err := s.evaluator.RunFullEvaluation(r.Context(), numQuestions)
	if err != nil {
		s.handleError(w, err, "failed to run full evaluation")
		return
	}
	s.persistHistory(averages, records)

	writeJSON(w, http.StatusOK, runFullEvaluationResponse{
		Success:         true,
		Message:         fmt.Sprintf("scored %d questions", len(records)),
		NumResults:      len(records),
		AvgFaithfulness: averages.Faithfulness,
		AvgRelevance:    averages.Relevance,
		ReportPath:      reportPathOrEmpty(s.evaluator, report),
		TestSetPath:     s.evaluator.Paths().TestSetFile,
	})
}

type getReportResponse struct {
	Success bool   `json:"success"`
	Report  string `json:"report"`
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.evaluator == nil {
		writeError(w, http.StatusServiceUnavailable, "evaluation_disabled", "evaluation is not configured")
		return
	}

	report, err := evaluate.ReadReportFile(s.evaluator.Paths().ReportFile)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "no evaluation report has been generated yet")
		return
	}

	writeJSON(w, http.StatusOK, getReportResponse{Success: true, Report: report})
}

// persistHistory saves a dated history record, stamping the current
// time at the transport boundary since the evaluate package itself
// never reads the clock.
func (s *Server) persistHistory(averages domain.AverageScores, records []domain.EvaluationRecord) {
	now := time.Now().UTC()
	date := now.Format("2006-01-02")
	timestamp := now.Format(time.RFC3339)
	if _, err := s.evaluator.History(date, timestamp, averages, records); err != nil {
		s.logger.Warn("failed to persist evaluation history", zap.Error(err))
	}
}

func reportPathOrEmpty(e *evaluate.Evaluator, report string) string {
	if report == "" {
		return ""
	}
	return e.Paths().ReportFile
}

func (s *Server) handleError(w http.ResponseWriter, err error, msg string) {
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("unhandled request error", zap.Error(err), zap.String("message", msg))
	writeError(w, http.StatusInternalServerError, "internal_error", msg)
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

// safeDomainMessage returns a client-facing message for known sentinel
// errors without leaking internals; anything unrecognised gets the
// generic "internal error" message rather than its own text.
func safeDomainMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return "input was empty"
	case errors.Is(err, domain.ErrNotFound):
		return "resource not found"
	case errors.Is(err, domain.ErrRateLimited):
		return "upstream provider is rate-limiting requests"
	case errors.Is(err, domain.ErrUnauthorized):
		return "upstream provider rejected credentials"
	case errors.Is(err, domain.ErrUpstreamServerError):
		return "upstream provider returned a server error"
	case errors.Is(err, domain.ErrCancelled):
		return "request was cancelled"
	default:
		return "internal error"
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Success: false, Code: code, Message: message})
}
