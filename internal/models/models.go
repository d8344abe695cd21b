package models

import "time"

// QuestionType distinguishes free-form theory questions from four-option
// multiple choice.
type QuestionType string

const (
	QuestionTheory    QuestionType = "theory"
	QuestionObjective QuestionType = "objective"
)

// Valid reports whether t is one of the two supported question types.
func (t QuestionType) Valid() bool {
	return t == QuestionTheory || t == QuestionObjective
}

const (
	MinQuestions = 1
	MaxQuestions = 20
)

// PredictionSettings are the user-chosen parameters for one generation run.
type PredictionSettings struct {
	QuestionType      QuestionType `json:"questionType"`
	NumberOfQuestions int          `json:"numberOfQuestions"`
}

// Clamped returns a copy with NumberOfQuestions forced into [MinQuestions,
// MaxQuestions] and an invalid type defaulted to theory.
func (s PredictionSettings) Clamped() PredictionSettings {
	out := s
	if out.NumberOfQuestions < MinQuestions {
		out.NumberOfQuestions = MinQuestions
	}
	if out.NumberOfQuestions > MaxQuestions {
		out.NumberOfQuestions = MaxQuestions
	}
	if !out.QuestionType.Valid() {
		out.QuestionType = QuestionTheory
	}
	return out
}

// ObjectiveOption is one answer choice of an objective question. Option ids
// are unique within their question.
type ObjectiveOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a single predicted exam question. Exactly one of Answer and
// Options is populated, matching Type: theory questions carry a sample answer,
// objective questions carry four options with exactly one marked correct.
type Question struct {
	ID          string            `json:"id"`
	Text        string            `json:"text"`
	Probability int               `json:"probability"`
	Source      string            `json:"source"`
	Type        QuestionType      `json:"type"`
	Answer      string            `json:"answer,omitempty"`
	Options     []ObjectiveOption `json:"options,omitempty"`
}

// Prediction is one completed generation run. It is immutable once created;
// the history store owns saved predictions, the orchestrator owns the
// transient current one.
type Prediction struct {
	ID        string             `json:"id"`
	Date      string             `json:"date"` // ISO-8601
	Title     string             `json:"title"`
	Questions []Question         `json:"questions"`
	Settings  PredictionSettings `json:"settings"`
}

// Document records an archived upload. Only metadata is kept; binary content
// is never parsed into text.
type Document struct {
	ID           int64
	OriginalName string
	StoredPath   string
	SizeBytes    int64
	PageCount    int
	Binary       bool
	UploadedAt   time.Time
}
