// Package retrieve implements the Retriever: the hybrid search, fusion,
// merge, rerank and small-to-big promotion pipeline of §4.4.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/expand"
	"github.com/kailas-cloud/bookrag/internal/metrics"
)

// Config holds the Retriever's ablation flags and tunables, mirroring
// config.RetrievalConfig. Kept as a local struct rather than importing
// internal/config directly, so this package's dependencies stay
// confined to what it actually uses.
type Config struct {
	HybridSearchEnabled bool
	RerankEnabled       bool

	RRFK       int
	HybridTopK int
	MergeTopK  int
	RerankTopK int
}

// DefaultConfig returns the documented defaults (§9).
func DefaultConfig() Config {
	return Config{
		HybridSearchEnabled: true,
		RerankEnabled:       true,
		RRFK:                60,
		HybridTopK:          20,
		MergeTopK:           20,
		RerankTopK:          5,
	}
}

type searchIndex interface {
	VectorSearch(queryVec []float32, k int) []domain.SearchResult
	LexicalSearch(queryText string, k int) []domain.SearchResult
	ParentOf(child domain.Segment) (domain.Segment, bool)
}

// Retriever runs the query-expansion-to-ranked-parents pipeline for a
// single user query. Stateless beyond its collaborators; safe for
// concurrent use once constructed, mirroring the Index's build-once
// immutability (§5).
type Retriever struct {
	idx      searchIndex
	embedder domain.Embedder
	expander *expand.Expander
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Retriever. idx must satisfy searchIndex; in
// production this is *index.Index.
func New(idx searchIndex, embedder domain.Embedder, expander *expand.Expander, cfg Config, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{idx: idx, embedder: embedder, expander: expander, cfg: cfg, logger: logger}
}

type branch struct {
	label     string
	queryText string
	hydeText  string
}

// Retrieve runs the full §4.4 pipeline, returning at most
// cfg.RerankTopK parent segments, descending by score, ties broken by
// ascending parent_index. An empty query returns (nil, nil) with no
// calls made.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	expandStart := time.Now()
	exp := r.expander.Expand(ctx, query)
	observeStage("expand", expandStart)

	branches := []branch{{label: "en", queryText: exp.QEn, hydeText: exp.HydeEn}}
	if exp.HasStepBack {
		branches = append(branches, branch{label: "sb", queryText: exp.QSb, hydeText: exp.HydeSb})
	}

	hybridStart := time.Now()
	branchResults := r.runBranches(ctx, branches)
	observeStage("hybrid", hybridStart)

	if allEmpty(branchResults) {
		fallback, err := r.vectorOnlyFallback(ctx, exp.QEn)
		if err != nil {
			return nil, fmt.Errorf("retrieve: no branch produced results and fallback failed: %w", err)
		}
		branchResults = [][]domain.SearchResult{fallback}
	}

	mergeStart := time.Now()
	merged := mergeByText(branchResults...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	merged = truncate(merged, r.cfg.MergeTopK)
	observeStage("merge", mergeStart)

	rerankStart := time.Now()
	ranked := r.rerank(merged, query)
	observeStage("rerank", rerankStart)

	promoteStart := time.Now()
	promoted := r.promote(ranked)
	observeStage("promote", promoteStart)

	return promoted, nil
}

// runBranches dispatches each branch's hybrid search concurrently
// (§5: "the two hybrid branches are also dispatched in parallel once
// their inputs are ready"). A branch that fails degrades to an empty
// slice and is logged, never aborting its siblings.
func (r *Retriever) runBranches(ctx context.Context, branches []branch) [][]domain.SearchResult {
	results := make([][]domain.SearchResult, len(branches))
	done := make(chan int, len(branches))

	for i, b := range branches {
		i, b := i, b
		go func() {
			res, err := r.hybridSearch(ctx, b)
			if err != nil {
				r.logger.Warn("hybrid search branch failed", zap.String("branch", b.label), zap.Error(err))
			} else {
				results[i] = res
			}
			done <- i
		}()
	}
	for range branches {
		<-done
	}
	return results
}

// hybridSearch runs vector search over embed(hydeText) and lexical
// search over queryText in parallel, then fuses via RRF (§4.4 step 2).
// When hybrid search is disabled, it degrades to vector-only.
func (r *Retriever) hybridSearch(ctx context.Context, b branch) ([]domain.SearchResult, error) {
	embResult, err := r.embedder.Embed(ctx, b.hydeText)
	if err != nil {
		return nil, fmt.Errorf("embed branch %q: %w", b.label, err)
	}

	if !r.cfg.HybridSearchEnabled {
		return r.idx.VectorSearch(embResult.Embedding, r.cfg.HybridTopK), nil
	}

	var vector, lexical []domain.SearchResult
	vectorDone := make(chan struct{})
	go func() {
		defer close(vectorDone)
		vector = r.idx.VectorSearch(embResult.Embedding, r.cfg.HybridTopK)
	}()
	lexical = r.idx.LexicalSearch(b.queryText, r.cfg.HybridTopK)

	select {
	case <-vectorDone:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	fused := fuseRRF(r.cfg.RRFK, vector, lexical)
	return truncate(fused, r.cfg.HybridTopK), nil
}

// vectorOnlyFallback embeds Q_en directly and returns its vector
// search results, the Retriever's last resort per §4.4's failure
// policy.
func (r *Retriever) vectorOnlyFallback(ctx context.Context, qEn string) ([]domain.SearchResult, error) {
	embResult, err := r.embedder.Embed(ctx, qEn)
	if err != nil {
		return nil, fmt.Errorf("vector-only fallback embed: %w", err)
	}
	return r.idx.VectorSearch(embResult.Embedding, r.cfg.HybridTopK), nil
}

func allEmpty(branchResults [][]domain.SearchResult) bool {
	for _, b := range branchResults {
		if len(b) > 0 {
			return false
		}
	}
	return true
}

// rerank scores merged candidates per §4.4 step 4 and keeps the top
// RerankTopK. When reranking is disabled, the RRF/merge order is
// preserved and only the top-k cut is applied.
func (r *Retriever) rerank(merged []domain.SearchResult, query string) []domain.SearchResult {
	if !r.cfg.RerankEnabled {
		sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
		return truncate(merged, r.cfg.RerankTopK)
	}

	queryTokens := tokenizeQuery(query)
	reranked := make([]domain.SearchResult, len(merged))
	for i, m := range merged {
		reranked[i] = domain.SearchResult{
			Segment: m.Segment,
			Score:   rerankScore(m.Score, m.Segment.Text, queryTokens),
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	return truncate(reranked, r.cfg.RerankTopK)
}

// promote replaces each candidate child with its parent, deduplicating
// by parent id and keeping the highest child score; a child with no
// resolvable parent stands in for itself (§4.4 step 5).
func (r *Retriever) promote(candidates []domain.SearchResult) []domain.SearchResult {
	bestByParent := make(map[string]domain.SearchResult)
	order := make([]string, 0, len(candidates))

	for _, c := range candidates {
		promoted := c.Segment
		key := c.Segment.ParentID
		if parent, ok := r.idx.ParentOf(c.Segment); ok {
			promoted = parent
		} else if key == "" {
			key = c.Segment.ID
		}

		if existing, seen := bestByParent[key]; !seen || c.Score > existing.Score {
			if !seen {
				order = append(order, key)
			}
			bestByParent[key] = domain.SearchResult{Segment: promoted, Score: c.Score}
		}
	}

	out := make([]domain.SearchResult, 0, len(order))
	for _, key := range order {
		out = append(out, bestByParent[key])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Segment.ParentIndex < out[j].Segment.ParentIndex
	})

	return truncate(out, r.cfg.RerankTopK)
}

func observeStage(stage string, start time.Time) {
	metrics.RetrievalStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
