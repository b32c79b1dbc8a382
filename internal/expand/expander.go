// Package expand turns a single user query into the derived queries the
// Retriever fuses over: a language-normalised query, a step-back query,
// and a hypothetical document per surviving query. Every Generator call
// here is opportunistic — a failure degrades to a fallback and is
// logged, never returned to the caller (§4.3).
package expand

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// latinDominanceThreshold is the fraction of letter characters that
// must fall in [A-Za-z] for a query to be treated as already English.
const latinDominanceThreshold = 0.5

const (
	translatePrompt = "Translate the following search query into English search keywords only. " +
		"Respond with the keywords and nothing else, no quotes, no explanation."
	stepBackPrompt = "Given the following question, produce a single higher-level, more general " +
		"conceptual question that would help answer it. Respond with only the question, no quotes."
	hydePrompt = "Write a 2-3 sentence technical answer to the following question, in the style of a " +
		"reference book passage. Respond with only the passage, no quotes, no preamble."
)

// Result holds the queries the Retriever fans its hybrid search out
// over. Sb and fields derived from it are empty when the step-back call
// failed or the stepback feature is disabled.
type Result struct {
	QEn         string
	QSb         string
	HydeEn      string
	HydeSb      string
	HasStepBack bool
}

// Expander derives Q_en, Q_sb and their hypothetical documents from a
// user query. Each step calls a distinct Generator so the caller can
// wire a separately stage-labeled InstrumentedGenerator per step for
// metrics (translate/stepback/hyde). Stateless and safe for concurrent
// use.
type Expander struct {
	translator domain.Generator
	stepbacker domain.Generator
	hyder      domain.Generator

	hydeEnabled     bool
	stepbackEnabled bool

	logger *zap.Logger
}

// New constructs an Expander. hydeEnabled/stepbackEnabled mirror the
// `rag.features.hyde`/`rag.features.stepback` ablation flags (§6):
// disabling stepback skips step-back entirely (dual-query branch
// reduces to Q_en); disabling hyde skips hypothesis generation so the
// Retriever embeds the query text itself instead of H(Q').
func New(translator, stepbacker, hyder domain.Generator, hydeEnabled, stepbackEnabled bool, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		translator:      translator,
		stepbacker:      stepbacker,
		hyder:           hyder,
		hydeEnabled:     hydeEnabled,
		stepbackEnabled: stepbackEnabled,
		logger:          logger,
	}
}

// Expand runs the full §4.3 pipeline. It never returns an error: every
// step that fails falls back to a documented default and is logged as a warning.
func (e *Expander) Expand(ctx context.Context, query string) Result {
	qEn := e.normalizeLanguage(ctx, query)

	res := Result{QEn: qEn}
	if e.stepbackEnabled {
		res.QSb, res.HasStepBack = e.stepBack(ctx, qEn)
	}

	res.HydeEn = e.hypothesize(ctx, qEn)
	if res.HasStepBack {
		res.HydeSb = e.hypothesize(ctx, res.QSb)
	}
	return res
}

func (e *Expander) normalizeLanguage(ctx context.Context, query string) string {
	if isLatinDominant(query) {
		return query
	}

	reply, err := e.translator.Call(ctx, []domain.Message{
		{Role: domain.RoleUser, Text: translatePrompt + "\n\n" + query},
	})
	if err != nil {
		e.logger.Warn("query expansion: translation failed, falling back to original query", zap.Error(err))
		return query
	}
	return stripQuotes(reply)
}

func (e *Expander) stepBack(ctx context.Context, qEn string) (string, bool) {
	reply, err := e.stepbacker.Call(ctx, []domain.Message{
		{Role: domain.RoleUser, Text: stepBackPrompt + "\n\n" + qEn},
	})
	if err != nil {
		e.logger.Warn("query expansion: step-back query failed, skipping dual-query branch", zap.Error(err))
		return "", false
	}
	return stripQuotes(reply), true
}

// hypothesize returns H(query): a generated hypothetical passage, or
// query itself when HyDE is disabled or generation fails, so the
// Retriever always has something to embed (§4.4 step 2's embed(H(Q'))
// degrades to embed(Q') directly).
func (e *Expander) hypothesize(ctx context.Context, query string) string {
	if !e.hydeEnabled {
		return query
	}

	reply, err := e.hyder.Call(ctx, []domain.Message{
		{Role: domain.RoleUser, Text: hydePrompt + "\n\n" + query},
	})
	if err != nil {
		e.logger.Warn("query expansion: HyDE generation failed, falling back to query text", zap.Error(err))
		return query
	}
	return stripQuotes(reply)
}

// isLatinDominant reports whether Latin letters make up more than
// latinDominanceThreshold of the letter characters in text.
func isLatinDominant(text string) bool {
	var latin, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r <= unicode.MaxASCII {
			latin++
		}
	}
	if letters == 0 {
		return true
	}
	return float64(latin)/float64(letters) > latinDominanceThreshold
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'“”‘’`)
	return strings.TrimSpace(s)
}
