package services

import (
	"fmt"
	"strings"
	"testing"

	"exam-predictor/internal/models"
)

func theorySettings(n int) models.PredictionSettings {
	return models.PredictionSettings{QuestionType: models.QuestionTheory, NumberOfQuestions: n}
}

func objectiveSettings(n int) models.PredictionSettings {
	return models.PredictionSettings{QuestionType: models.QuestionObjective, NumberOfQuestions: n}
}

func assertInvariants(t *testing.T, questions []models.Question, settings models.PredictionSettings) {
	t.Helper()

	if len(questions) == 0 {
		t.Fatal("expected a non-empty question list")
	}
	if len(questions) > settings.Clamped().NumberOfQuestions {
		t.Errorf("got %d questions, more than the requested %d", len(questions), settings.NumberOfQuestions)
	}
	for i, q := range questions {
		if q.ID == "" {
			t.Errorf("question %d has no id", i)
		}
		if q.Probability < 1 || q.Probability > 100 {
			t.Errorf("question %d probability %d outside [1,100]", i, q.Probability)
		}
		if q.Type != settings.Clamped().QuestionType {
			t.Errorf("question %d type %q, want %q", i, q.Type, settings.QuestionType)
		}
		if i > 0 && questions[i-1].Probability < q.Probability {
			t.Errorf("questions not sorted descending at index %d", i)
		}
		switch q.Type {
		case models.QuestionTheory:
			if q.Answer == "" {
				t.Errorf("theory question %d has empty answer", i)
			}
			if q.Options != nil {
				t.Errorf("theory question %d has options", i)
			}
		case models.QuestionObjective:
			if q.Answer != "" {
				t.Errorf("objective question %d has an answer", i)
			}
			if len(q.Options) != 4 {
				t.Fatalf("objective question %d has %d options, want 4", i, len(q.Options))
			}
			correct := 0
			seen := map[string]bool{}
			for _, opt := range q.Options {
				if opt.IsCorrect {
					correct++
				}
				if seen[opt.ID] {
					t.Errorf("question %d has duplicate option id %s", i, opt.ID)
				}
				seen[opt.ID] = true
			}
			if correct != 1 {
				t.Errorf("objective question %d has %d correct options, want exactly 1", i, correct)
			}
		}
	}
}

func TestParseQuestions_StructuredTheory(t *testing.T) {
	raw := `[{"id":"q1","text":"What is osmosis?","probability":85,"source":"p.4","type":"theory","answer":"Movement of water across a membrane."}]`

	questions := ParseQuestions(raw, theorySettings(5))
	assertInvariants(t, questions, theorySettings(5))

	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}
	q := questions[0]
	if q.ID != "q1" || q.Text != "What is osmosis?" || q.Probability != 85 || q.Source != "p.4" {
		t.Errorf("unexpected question: %+v", q)
	}
	if q.Answer != "Movement of water across a membrane." {
		t.Errorf("unexpected answer: %q", q.Answer)
	}
}

func TestParseQuestions_ProbabilityClampedTo100(t *testing.T) {
	raw := `[{"id":"q1","text":"What is osmosis?","probability":150,"source":"p.4","type":"theory","answer":"..."}]`

	questions := ParseQuestions(raw, theorySettings(5))
	if questions[0].Probability != 100 {
		t.Errorf("probability = %d, want 100", questions[0].Probability)
	}
}

func TestParseQuestions_ProbabilityCoercion(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"quoted number", `[{"text":"Q","probability":"85","answer":"A"}]`, 85},
		{"percent string", `[{"text":"Q","probability":"70%","answer":"A"}]`, 70},
		{"missing", `[{"text":"Q","answer":"A"}]`, 50},
		{"garbage", `[{"text":"Q","probability":"high","answer":"A"}]`, 50},
		{"negative", `[{"text":"Q","probability":-3,"answer":"A"}]`, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			questions := ParseQuestions(tc.raw, theorySettings(1))
			if questions[0].Probability != tc.want {
				t.Errorf("probability = %d, want %d", questions[0].Probability, tc.want)
			}
		})
	}
}

func TestParseQuestions_MarkdownFencedArray(t *testing.T) {
	raw := "Here you go:\n```json\n[{\"text\":\"What is mitosis?\",\"probability\":60,\"answer\":\"Cell division.\"}]\n```"

	questions := ParseQuestions(raw, theorySettings(3))
	if len(questions) != 1 || questions[0].Text != "What is mitosis?" {
		t.Fatalf("unexpected result: %+v", questions)
	}
}

func TestParseQuestions_ProseFallsBackToSingleQuestion(t *testing.T) {
	raw := "I am sorry, I cannot produce structured output for this document, but it covers photosynthesis in depth."

	for _, settings := range []models.PredictionSettings{theorySettings(5), objectiveSettings(5)} {
		t.Run(string(settings.QuestionType), func(t *testing.T) {
			questions := ParseQuestions(raw, settings)
			assertInvariants(t, questions, settings)
			if len(questions) != 1 {
				t.Fatalf("got %d questions, want exactly 1 synthesized fallback", len(questions))
			}
			if questions[0].Probability != 75 {
				t.Errorf("fallback probability = %d, want 75", questions[0].Probability)
			}
		})
	}
}

func TestParseQuestions_ObjectiveMissingOptionsGetPlaceholders(t *testing.T) {
	items := make([]string, 5)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":"q%d","text":"Question %d","probability":%d,"source":"p.%d","type":"objective"}`, i+1, i+1, 90-i, i+1)
	}
	raw := "[" + strings.Join(items, ",") + "]"

	settings := objectiveSettings(5)
	questions := ParseQuestions(raw, settings)
	assertInvariants(t, questions, settings)

	if len(questions) != 5 {
		t.Fatalf("got %d questions, want 5", len(questions))
	}
	for i, q := range questions {
		if !q.Options[0].IsCorrect {
			t.Errorf("question %d: placeholder option 0 not marked correct", i)
		}
		for j, opt := range q.Options[1:] {
			if opt.IsCorrect {
				t.Errorf("question %d: placeholder option %d marked correct", i, j+1)
			}
		}
	}
}

func TestParseQuestions_SingleCorrectEnforced(t *testing.T) {
	t.Run("multiple correct keeps first", func(t *testing.T) {
		raw := `[{"text":"Q","options":[
			{"id":"a","text":"one","isCorrect":false},
			{"id":"b","text":"two","isCorrect":true},
			{"id":"c","text":"three","isCorrect":true},
			{"id":"d","text":"four","isCorrect":false}]}]`

		questions := ParseQuestions(raw, objectiveSettings(1))
		opts := questions[0].Options
		if !opts[1].IsCorrect || opts[0].IsCorrect || opts[2].IsCorrect || opts[3].IsCorrect {
			t.Errorf("expected only option b correct, got %+v", opts)
		}
	})

	t.Run("none correct promotes first", func(t *testing.T) {
		raw := `[{"text":"Q","options":[
			{"id":"a","text":"one","isCorrect":false},
			{"id":"b","text":"two","isCorrect":false},
			{"id":"c","text":"three","isCorrect":false},
			{"id":"d","text":"four","isCorrect":false}]}]`

		questions := ParseQuestions(raw, objectiveSettings(1))
		if !questions[0].Options[0].IsCorrect {
			t.Errorf("expected option a promoted to correct, got %+v", questions[0].Options)
		}
	})
}

func TestParseQuestions_StableSortAndCap(t *testing.T) {
	raw := `[
		{"id":"a","text":"A","probability":50,"answer":"x"},
		{"id":"b","text":"B","probability":80,"answer":"x"},
		{"id":"c","text":"C","probability":50,"answer":"x"},
		{"id":"d","text":"D","probability":10,"answer":"x"}]`

	questions := ParseQuestions(raw, theorySettings(3))
	if len(questions) != 3 {
		t.Fatalf("got %d questions, want 3 (capped)", len(questions))
	}
	gotIDs := []string{questions[0].ID, questions[1].ID, questions[2].ID}
	wantIDs := []string{"b", "a", "c"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("order = %v, want %v (ties must keep original order)", gotIDs, wantIDs)
		}
	}
}

func TestParseQuestions_TypeForcedToRequested(t *testing.T) {
	raw := `[{"text":"Q","type":"objective","answer":"looks like theory"}]`

	questions := ParseQuestions(raw, theorySettings(1))
	if questions[0].Type != models.QuestionTheory {
		t.Errorf("type = %q, want theory regardless of model output", questions[0].Type)
	}
	if questions[0].Answer == "" {
		t.Error("theory question lost its answer")
	}
}

func TestParseQuestions_NumberedTextTheory(t *testing.T) {
	raw := "Here are my predictions:\n" +
		"1. What is osmosis? [80%]\n" +
		"Answer: the movement of water across a membrane.\n" +
		"2. What is diffusion?\n" +
		"Some unrelated commentary follows here\n"

	settings := theorySettings(5)
	questions := ParseQuestions(raw, settings)
	assertInvariants(t, questions, settings)

	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}

	// Sorted by probability; the marked question carries 80 and an extracted
	// answer, the unmarked one a substituted probability and default answer.
	var marked, unmarked *models.Question
	for i := range questions {
		if strings.Contains(questions[i].Text, "osmosis") {
			marked = &questions[i]
		} else {
			unmarked = &questions[i]
		}
	}
	if marked == nil || unmarked == nil {
		t.Fatalf("missing questions: %+v", questions)
	}
	if marked.Probability != 80 {
		t.Errorf("marked probability = %d, want 80", marked.Probability)
	}
	if strings.Contains(marked.Text, "%") {
		t.Errorf("probability marker not stripped from text: %q", marked.Text)
	}
	if !strings.Contains(marked.Answer, "movement of water") {
		t.Errorf("answer heuristic missed: %q", marked.Answer)
	}
	if unmarked.Answer != "No sample answer provided" {
		t.Errorf("non-answer-like line accepted as answer: %q", unmarked.Answer)
	}
}

func TestParseQuestions_NumberedTextObjective(t *testing.T) {
	raw := "1. Which process moves water across a membrane? [70%]\n" +
		"A) Photosynthesis\n" +
		"B) Osmosis *\n" +
		"C) Mitosis\n" +
		"D) Respiration\n"

	settings := objectiveSettings(5)
	questions := ParseQuestions(raw, settings)
	assertInvariants(t, questions, settings)

	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}
	q := questions[0]
	if q.Probability != 70 {
		t.Errorf("probability = %d, want 70", q.Probability)
	}
	if !q.Options[1].IsCorrect {
		t.Errorf("marker did not select option B: %+v", q.Options)
	}
	if q.Options[1].Text != "Osmosis" {
		t.Errorf("marker not stripped from option text: %q", q.Options[1].Text)
	}
}

func TestParseQuestions_NumberedTextObjectiveTooFewOptions(t *testing.T) {
	raw := "1. Incomplete question [60%]\nA) Only\nB) Two\n"

	questions := ParseQuestions(raw, objectiveSettings(3))
	assertInvariants(t, questions, objectiveSettings(3))
	if len(questions[0].Options) != 4 {
		t.Fatalf("got %d options, want 4 placeholders", len(questions[0].Options))
	}
	if !questions[0].Options[0].IsCorrect {
		t.Error("placeholder option 0 not marked correct")
	}
}
