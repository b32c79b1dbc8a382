package openai

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/resilience"
)

// GeneratorConfig holds the chat/completion provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// Generator is a chat-completion provider over an OpenAI-compatible API.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewGenerator builds a Generator from cfg.
func NewGenerator(cfg GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

// Call implements domain.Generator.
func (g *Generator) Call(ctx context.Context, messages []domain.Message) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", resilience.Classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrUpstreamServerError)
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream implements domain.Generator. The returned channel is closed once
// the upstream stream ends or the context is cancelled; the final fragment
// sent before closing carries Done=true or a non-nil Err.
func (g *Generator) Stream(ctx context.Context, messages []domain.Message) (<-chan domain.StreamFragment, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, resilience.Classify(ctx, err)
	}

	out := make(chan domain.StreamFragment)

	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				select {
				case out <- domain.StreamFragment{Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if err != nil {
				classified := resilience.Classify(ctx, err)
				g.logger.Warn("generation stream failed", zap.Error(classified))
				select {
				case out <- domain.StreamFragment{Err: classified}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			select {
			case out <- domain.StreamFragment{Text: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func toOpenAIMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    toOpenAIRole(m.Role),
			Content: m.Text,
		})
	}
	return out
}

func toOpenAIRole(r domain.Role) string {
	switch r {
	case domain.RoleSystem:
		return openai.ChatMessageRoleSystem
	case domain.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
