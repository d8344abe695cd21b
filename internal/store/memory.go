package store

import (
	"context"
	"sync"

	"exam-predictor/internal/models"
)

// MemoryStore is an in-memory HistoryStore. It backs tests and makes the
// orchestrator usable without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	preds []models.Prediction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Prediction, len(s.preds))
	copy(out, s.preds)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, pred models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.preds {
		if existing.ID == pred.ID {
			return ErrDuplicatePrediction
		}
	}
	s.preds = append([]models.Prediction{pred}, s.preds...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.preds[:0]
	for _, pred := range s.preds {
		if pred.ID != id {
			kept = append(kept, pred)
		}
	}
	s.preds = kept
	return nil
}
