// Package answer implements the Answerer: grounds the Retriever's
// passages into a system prompt, streams the Generator's response, and
// maintains bounded per-session dialogue memory (§4.5).
package answer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/resilience"
	"github.com/kailas-cloud/bookrag/internal/retrieve"
)

const systemPreamble = "You are a knowledgeable assistant answering questions strictly from the " +
	"reference material provided below. Ground every claim in the supplied passages; if the " +
	"passages do not contain the answer, say so rather than guessing. When a passage is labelled " +
	"with an Item or Chapter, cite that label in your answer."

// Answerer runs the per-turn answering contract of §4.5.
type Answerer struct {
	retriever *retrieve.Retriever
	generator domain.Generator
	sessions  *Sessions
	logger    *zap.Logger
}

// New constructs an Answerer. generator is expected to be the
// "answer"-stage InstrumentedGenerator.
func New(retriever *retrieve.Retriever, generator domain.Generator, sessions *Sessions, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{retriever: retriever, generator: generator, sessions: sessions, logger: logger}
}

// Answer retrieves grounding passages, assembles the message list, and
// returns a channel of streamed fragments plus the passages used to
// ground them (the Evaluator needs the latter for Context Precision;
// the HTTP transport ignores it). Dialogue memory is appended to only
// after the stream completes successfully; a Generator error never
// mutates memory (§4.5 step 5, §7).
func (a *Answerer) Answer(ctx context.Context, sessionID, userText string) (<-chan domain.StreamFragment, []domain.SearchResult, error) {
	passages, err := a.retriever.Retrieve(ctx, userText)
	if err != nil {
		return nil, nil, fmt.Errorf("answer: retrieve: %w", err)
	}

	sess := a.sessions.get(sessionID)

	sess.mu.Lock()
	priorTurns := sess.memory.Messages()
	sess.mu.Unlock()

	messages := make([]domain.Message, 0, len(priorTurns)+2)
	messages = append(messages, buildSystemMessage(passages))
	messages = append(messages, priorTurns...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Text: userText})

	fragments, err := a.generator.Stream(ctx, messages)
	if err != nil {
		return nil, nil, resilience.Classify(ctx, err)
	}

	out := make(chan domain.StreamFragment)
	go a.relay(ctx, sess, userText, fragments, out)
	return out, passages, nil
}

// AnswerSync runs Answer to completion and returns the concatenated
// answer text alongside the grounding passages, for callers that don't
// need incremental fragments (the Evaluator's batch run).
func (a *Answerer) AnswerSync(ctx context.Context, sessionID, userText string) (string, []domain.SearchResult, error) {
	fragments, passages, err := a.Answer(ctx, sessionID, userText)
	if err != nil {
		return "", nil, err
	}

	var completion strings.Builder
	for frag := range fragments {
		if frag.Err != nil {
			return "", passages, frag.Err
		}
		completion.WriteString(frag.Text)
	}
	return completion.String(), passages, nil
}

func (a *Answerer) relay(ctx context.Context, sess *session, userText string, in <-chan domain.StreamFragment, out chan<- domain.StreamFragment) {
	defer close(out)

	var completion strings.Builder
	for frag := range in {
		if frag.Err != nil {
			a.logger.Warn("answer stream ended with error; dialogue memory left unchanged", zap.Error(frag.Err))
			out <- frag
			return
		}

		completion.WriteString(frag.Text)

		select {
		case out <- frag:
		case <-ctx.Done():
			return
		}

		if frag.Done {
			sess.mu.Lock()
			sess.memory.Append(userText, completion.String())
			sess.mu.Unlock()
			return
		}
	}
}

// buildSystemMessage renders the grounding passages as
// "[Source k: <label>]\n<text>" blocks appended to the preamble
// (§4.5 step 2).
func buildSystemMessage(passages []domain.SearchResult) domain.Message {
	var b strings.Builder
	b.WriteString(systemPreamble)

	for i, p := range passages {
		label := p.Segment.Metadata.Label()
		if label == "" {
			label = strconv.Itoa(i + 1)
		}
		fmt.Fprintf(&b, "\n\n[Source %d: %s]\n%s", i+1, label, p.Segment.Text)
	}

	return domain.Message{Role: domain.RoleSystem, Text: b.String()}
}
