package services

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"exam-predictor/internal/models"
)

// maxGenerateRetries bounds retries of the whole generate call; with the
// initial attempt the provider is hit at most three times.
const maxGenerateRetries = 2

// CompletionService abstracts the remote chat-completion call for the
// generator. *LLMClient satisfies it.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator runs one generation call end to end: prompt construction, the
// retried remote invocation, and response normalization.
type Generator struct {
	llm    CompletionService
	logger zerolog.Logger

	// retryInterval is the backoff base; the interval doubles per attempt.
	retryInterval time.Duration
}

func NewGenerator(llm CompletionService) *Generator {
	return &Generator{
		llm:           llm,
		logger:        log.With().Str("component", "generator").Logger(),
		retryInterval: time.Second,
	}
}

// Generate produces questions for the given document text. Remote failures
// are retried with exponential backoff before the last classified error
// surfaces; parse failures never surface — normalization degrades instead.
func (g *Generator) Generate(ctx context.Context, content string, settings models.PredictionSettings) ([]models.Question, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	settings = settings.Clamped()
	prompt := BuildPrompt(content, settings)

	var completion string
	operation := func() error {
		text, err := g.llm.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		completion = text
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.retryInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	notify := func(err error, next time.Duration) {
		g.logger.Warn().Err(err).Dur("retry_in", next).Msg("generation attempt failed, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxGenerateRetries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}

	questions := ParseQuestions(completion, settings)
	g.logger.Info().
		Int("requested", settings.NumberOfQuestions).
		Int("returned", len(questions)).
		Str("question_type", string(settings.QuestionType)).
		Msg("generation complete")
	return questions, nil
}
