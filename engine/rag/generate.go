package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
	"github.com/VietVoyageAI/vietvoyage-mvp/pkg/resilience"
)

// historyWindow bounds how many prior turns are sent to the model.
const historyWindow = 6

// ChatClient produces a completion for an assembled message list.
type ChatClient interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (string, error)
}

// OpenAIChat is a ChatClient backed by any OpenAI-compatible endpoint.
// OpenRouter is selected by pointing baseURL at its API.
type OpenAIChat struct {
	client  *openai.Client
	model   string
	breaker *resilience.Breaker
}

// NewOpenAIChat creates a chat client. baseURL may be empty for the
// upstream OpenAI endpoint.
func NewOpenAIChat(apiKey, baseURL, model string) *OpenAIChat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIChat{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

func (c *OpenAIChat) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (string, error) {
	var reply string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
		if err != nil {
			return classifyChatError(err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty completion response")
		}
		reply = resp.Choices[0].Message.Content
		return nil
	})
	return reply, err
}

// classifyChatError marks rate limits, timeouts and server-side failures
// as transient so the retry layer will attempt them again.
func classifyChatError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429, apiErr.HTTPStatusCode == 408:
			return domain.Transient(err)
		case apiErr.HTTPStatusCode >= 500:
			return domain.Transient(err)
		}
		return err
	}
	return err
}

// Generator turns a query, retrieval context and conversation history into
// a model response.
type Generator struct {
	chat        ChatClient
	maxTokens   int
	temperature float32
	retry       resilience.RetryPolicy
	logger      *slog.Logger
}

// NewGenerator creates a Generator with the standard retry policy.
func NewGenerator(chat ChatClient, maxTokens int, temperature float32, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	retry := resilience.DefaultRetry
	retry.RetryIf = domain.IsTransient
	return &Generator{
		chat:        chat,
		maxTokens:   maxTokens,
		temperature: temperature,
		retry:       retry,
		logger:      logger,
	}
}

// Generate assembles the message list and calls the model. The context
// block is always forwarded, including the no-context sentinel.
func (g *Generator) Generate(ctx context.Context, query, contextBlock string, history []domain.Turn) (string, error) {
	messages := BuildMessages(query, contextBlock, history)

	reply, err := resilience.DoValue(ctx, g.retry, func(ctx context.Context) (string, error) {
		return g.chat.Complete(ctx, messages, g.maxTokens, g.temperature)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	reply = strings.TrimSpace(reply)
	g.logger.Debug("generation complete", "reply_chars", len(reply))
	return reply, nil
}

// BuildMessages produces the fixed message order: persona, prior turns,
// retrieval context, then the user query.
func BuildMessages(query, contextBlock string, history []domain.Turn) []openai.ChatCompletionMessage {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+3)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: personaPrompt,
	})
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: "**Database Context:**\n" + contextBlock + "\n\nUse this to answer.",
	})
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})
	return messages
}
