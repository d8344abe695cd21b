package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"exam-predictor/internal/models"
)

// SQLiteStore keeps prediction history in the predictions table. Questions are
// stored as a JSON blob; they are read back whole, never queried by field.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, title, question_type, number_of_questions, questions_json
		FROM predictions ORDER BY saved_at DESC, rowid DESC;
	`)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var pred models.Prediction
		var questionsJSON string
		if err := rows.Scan(
			&pred.ID,
			&pred.Date,
			&pred.Title,
			&pred.Settings.QuestionType,
			&pred.Settings.NumberOfQuestions,
			&questionsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := json.Unmarshal([]byte(questionsJSON), &pred.Questions); err != nil {
			return nil, fmt.Errorf("decode questions for %s: %w", pred.ID, err)
		}
		out = append(out, pred)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, pred models.Prediction) error {
	questionsJSON, err := json.Marshal(pred.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO predictions
			(id, date, title, question_type, number_of_questions, questions_json, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?);
	`, pred.ID, pred.Date, pred.Title, pred.Settings.QuestionType,
		pred.Settings.NumberOfQuestions, string(questionsJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicatePrediction
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("delete prediction %s: %w", id, err)
	}
	return nil
}
