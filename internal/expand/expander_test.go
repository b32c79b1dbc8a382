package expand

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

type fakeGenerator struct {
	replies map[string]string
	err     error
}

func (f fakeGenerator) Call(_ context.Context, messages []domain.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	last := messages[len(messages)-1].Text
	for prefix, reply := range f.replies {
		if len(last) >= len(prefix) && last[:len(prefix)] == prefix {
			return reply, nil
		}
	}
	return "default reply", nil
}

func (f fakeGenerator) Stream(_ context.Context, _ []domain.Message) (<-chan domain.StreamFragment, error) {
	return nil, errors.New("not implemented")
}

func TestExpand_EnglishQuerySkipsTranslation(t *testing.T) {
	gen := fakeGenerator{replies: map[string]string{
		stepBackPrompt: "\"What is photosynthesis in general?\"",
		hydePrompt:     "'Photosynthesis is the process plants use to convert light into energy.'",
	}}
	e := New(gen, gen, gen, true, true, nil)

	res := e.Expand(context.Background(), "how does photosynthesis work")
	if res.QEn != "how does photosynthesis work" {
		t.Fatalf("expected Q_en unchanged for English query, got %q", res.QEn)
	}
	if !res.HasStepBack {
		t.Fatal("expected step-back to succeed")
	}
	if res.QSb != "What is photosynthesis in general?" {
		t.Fatalf("expected stripped step-back query, got %q", res.QSb)
	}
	if res.HydeEn == "" || res.HydeSb == "" {
		t.Fatal("expected both HyDE passages to be populated")
	}
}

func TestExpand_NonLatinQueryTranslates(t *testing.T) {
	gen := fakeGenerator{replies: map[string]string{
		translatePrompt: "photosynthesis energy conversion",
	}}
	e := New(gen, gen, gen, true, true, nil)

	res := e.Expand(context.Background(), "光合作用是如何进行的")
	if res.QEn != "photosynthesis energy conversion" {
		t.Fatalf("expected translated query, got %q", res.QEn)
	}
}

func TestExpand_GeneratorFailureDegradesGracefully(t *testing.T) {
	gen := fakeGenerator{err: errors.New("upstream down")}
	e := New(gen, gen, gen, true, true, nil)

	res := e.Expand(context.Background(), "光合作用是如何进行的")
	if res.QEn != "光合作用是如何进行的" {
		t.Fatalf("expected fallback to original query on translation failure, got %q", res.QEn)
	}
	if res.HasStepBack {
		t.Fatal("expected step-back to be skipped on failure")
	}
	if res.HydeEn != res.QEn {
		t.Fatalf("expected HyDE fallback to the query text, got %q", res.HydeEn)
	}
	if res.HydeSb != "" {
		t.Fatal("expected no HyDE for the skipped step-back branch")
	}
}

func TestExpand_DisabledFeaturesSkipCalls(t *testing.T) {
	gen := fakeGenerator{replies: map[string]string{
		stepBackPrompt: "should never be called",
		hydePrompt:     "should never be called",
	}}
	e := New(gen, gen, gen, false, false, nil)

	res := e.Expand(context.Background(), "how does photosynthesis work")
	if res.HasStepBack {
		t.Fatal("expected step-back to be skipped when disabled")
	}
	if res.HydeEn != res.QEn {
		t.Fatalf("expected HyDE disabled to fall back to the query text, got %q", res.HydeEn)
	}
}

func TestIsLatinDominant(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"how does photosynthesis work", true},
		{"光合作用是如何进行的", false},
		{"", true},
		{"123 456", true},
	}
	for _, c := range cases {
		if got := isLatinDominant(c.text); got != c.want {
			t.Errorf("isLatinDominant(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
