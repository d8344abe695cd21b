package store

import (
	"context"
	"errors"

	"exam-predictor/internal/models"
)

// ErrDuplicatePrediction is returned when a prediction with the same id is
// already in history. Saving is a no-op in that case.
var ErrDuplicatePrediction = errors.New("prediction already saved")

// HistoryStore persists past predictions, newest first, keyed by id.
// Deleting an unknown id is a no-op.
type HistoryStore interface {
	List(ctx context.Context) ([]models.Prediction, error)
	Save(ctx context.Context, pred models.Prediction) error
	Delete(ctx context.Context, id string) error
}
