package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	completionMaxTokens   = 1500
	completionTemperature = 0.5
)

// ChatCompleter is the slice of the OpenAI client the LLM client needs.
// *openai.Client satisfies it; tests substitute a stub.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMClient sends prompts to an OpenAI-compatible chat-completion endpoint
// (OpenRouter by default) and returns a single text completion.
type LLMClient struct {
	api     ChatCompleter
	model   string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLLMClient builds a client for the given provider credentials. baseURL may
// be empty to use the OpenAI default.
func NewLLMClient(apiKey, baseURL, model string) *LLMClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &LLMClient{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		logger:  log.With().Str("component", "llm_client").Logger(),
	}
}

// Complete sends prompt as a single user message and returns the completion
// text. Failures are classified into *RemoteServiceError sub-kinds;
// empty/absent completions surface as ErrEmptyCompletion.
func (c *LLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	c.logger.Debug().Int("prompt_chars", len(prompt)).Str("model", c.model).Msg("sending chat completion request")

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	})
	if err != nil {
		classified := classifyRemoteError(err)
		c.logger.Error().Err(classified).Msg("chat completion failed")
		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// classifyRemoteError maps provider/transport failures onto the
// RemoteServiceError taxonomy so callers can show actionable messages.
func classifyRemoteError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &RemoteServiceError{
			Kind:       kindForStatus(apiErr.HTTPStatusCode, apiErr.Message),
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &RemoteServiceError{
			Kind:       kindForStatus(reqErr.HTTPStatusCode, ""),
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Err:        err,
		}
	}
	return &RemoteServiceError{
		Kind:    RemoteGeneric,
		Message: err.Error(),
		Err:     err,
	}
}

func kindForStatus(status int, message string) RemoteKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return RemoteAuthentication
	case http.StatusTooManyRequests:
		return RemoteRateLimited
	case http.StatusRequestEntityTooLarge:
		return RemoteTokenLimit
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "context length") || strings.Contains(lower, "token limit") {
		return RemoteTokenLimit
	}
	return RemoteGeneric
}
