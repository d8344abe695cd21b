package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"exam-predictor/internal/models"
	"exam-predictor/internal/store"
)

// ErrNoCurrentPrediction is returned when saving with nothing generated yet.
var ErrNoCurrentPrediction = errors.New("no current prediction to save")

// QuestionGenerator abstracts the generation call for the orchestrator.
// *Generator satisfies it.
type QuestionGenerator interface {
	Generate(ctx context.Context, content string, settings models.PredictionSettings) ([]models.Question, error)
}

// PredictionService coordinates extraction, generation, and persistence for
// prediction requests. The current (not yet saved) prediction is held
// transiently until it is saved, replaced, or discarded.
type PredictionService struct {
	generator QuestionGenerator
	history   store.HistoryStore
	logger    zerolog.Logger

	mu      sync.Mutex
	current *models.Prediction
}

func NewPredictionService(generator QuestionGenerator, history store.HistoryStore) *PredictionService {
	return &PredictionService{
		generator: generator,
		history:   history,
		logger:    log.With().Str("component", "predictions").Logger(),
	}
}

// Predict extracts text from src, generates questions for it, and installs
// the result as the current prediction. Extraction and remote failures abort
// the attempt; the previous current prediction is left untouched.
func (s *PredictionService) Predict(ctx context.Context, title string, src io.Reader, settings models.PredictionSettings) (*models.Prediction, error) {
	content, err := ExtractText(src)
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.Generate(ctx, content, settings)
	if err != nil {
		s.logger.Error().Err(err).Str("title", title).Msg("prediction failed")
		return nil, err
	}

	pred := &models.Prediction{
		ID:        newPredictionID(),
		Date:      time.Now().UTC().Format(time.RFC3339),
		Title:     title,
		Questions: questions,
		Settings:  settings.Clamped(),
	}

	s.mu.Lock()
	s.current = pred
	s.mu.Unlock()

	s.logger.Info().Str("prediction_id", pred.ID).Int("questions", len(questions)).Msg("prediction ready")
	return pred, nil
}

// Regenerate saves the current in-flight prediction (if any) before issuing a
// new generation call, so no unsaved result is silently lost.
func (s *PredictionService) Regenerate(ctx context.Context, title string, src io.Reader, settings models.PredictionSettings) (*models.Prediction, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current != nil {
		if err := s.Save(ctx, *current); err != nil && !errors.Is(err, store.ErrDuplicatePrediction) {
			return nil, fmt.Errorf("save current prediction: %w", err)
		}
	}
	return s.Predict(ctx, title, src, settings)
}

// Save appends the prediction to the front of history. A duplicate id is a
// no-op surfaced as store.ErrDuplicatePrediction so the caller can notify
// distinctly.
func (s *PredictionService) Save(ctx context.Context, pred models.Prediction) error {
	return s.history.Save(ctx, pred)
}

// SaveCurrent persists the prediction from the latest Predict call.
func (s *PredictionService) SaveCurrent(ctx context.Context) (*models.Prediction, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == nil {
		return nil, ErrNoCurrentPrediction
	}
	if err := s.Save(ctx, *current); err != nil {
		return nil, err
	}
	return current, nil
}

// Delete removes the prediction with the given id; unknown ids are a no-op.
func (s *PredictionService) Delete(ctx context.Context, id string) error {
	return s.history.Delete(ctx, id)
}

// History lists saved predictions, newest first.
func (s *PredictionService) History(ctx context.Context) ([]models.Prediction, error) {
	return s.history.List(ctx)
}

// Current returns the latest generated prediction, or nil.
func (s *PredictionService) Current() *models.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// newPredictionID is time-derived like the ids in saved history exports;
// nanosecond resolution keeps back-to-back regenerations distinct.
func newPredictionID() string {
	return fmt.Sprintf("pred-%d", time.Now().UnixNano())
}
