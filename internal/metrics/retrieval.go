package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedder/Generator/retrieval-stage Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookrag",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookrag",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"model"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookrag",
			Name:      "generation_requests_total",
			Help:      "Total number of generator calls, by stage and outcome",
		},
		[]string{"stage", "status"}, // stage: translate, stepback, hyde, answer, judge, testgen
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookrag",
			Name:      "generation_request_duration_seconds",
			Help:      "Generator call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	RetrievalStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookrag",
			Name:      "retrieval_stage_duration_seconds",
			Help:      "Duration of a single retrieval pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // expand, hybrid, merge, rerank, promote
	)

	SentenceEmbedCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookrag",
			Name:      "sentence_embed_cache_total",
			Help:      "Ingestion-time sentence embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EvaluationQuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookrag",
			Name:      "evaluation_questions_total",
			Help:      "Total number of evaluation batch-run questions processed, by outcome",
		},
		[]string{"status"}, // "scored" / "error"
	)

	EvaluationBackpressurePauses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookrag",
			Name:      "evaluation_backpressure_pauses_total",
			Help:      "Total number of rate-limit backpressure pauses during an evaluation batch run",
		},
		[]string{},
	)
)

var registered bool

// Register registers every metric vector above. Must be called once
// from main; kept idempotent so tests that build services repeatedly
// don't panic on double registration.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		RetrievalStageDuration,
		SentenceEmbedCacheTotal,
		EvaluationQuestionsTotal,
		EvaluationBackpressurePauses,
	)
	registered = true
}
