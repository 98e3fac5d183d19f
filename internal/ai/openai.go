package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful assistant replying inside a chatroom. Keep answers concise and conversational."

// OpenAIProvider implements Provider against the OpenAI chat-completions API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	timeout   time.Duration
	maxTokens int
}

// NewOpenAIProvider constructs a provider for the given API key and model.
// The timeout bounds every Generate call regardless of the caller's context.
func NewOpenAIProvider(apiKey, model string, timeout time.Duration, maxTokens int) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxTokens < 1 {
		maxTokens = 512
	}
	return &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     model,
		timeout:   timeout,
		maxTokens: maxTokens,
	}
}

// Generate calls the chat-completions endpoint and classifies failures into
// the package's error taxonomy.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// classify maps provider errors onto the worker-facing taxonomy. Unknown
// errors pass through unchanged and are treated as transient by callers.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return ErrQuotaExceeded
		case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
			return ErrMalformedRequest
		case http.StatusUnauthorized, http.StatusForbidden:
			// Misconfigured credentials won't heal on retry.
			return ErrMalformedRequest
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return ErrQuotaExceeded
		}
	}
	return err
}
