package services

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"exam-predictor/internal/models"
)

const (
	defaultProbability  = 50
	fallbackProbability = 75
	defaultSource       = "Generated from provided content"
	defaultAnswer       = "No sample answer provided"
)

var (
	jsonArrayPattern  = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
	questionBoundary  = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	probabilityMarker = regexp.MustCompile(`\[(\d{1,3})%\]`)
	optionLinePattern = regexp.MustCompile(`(?m)^\s*([A-Da-d])[.)]\s*(.+)$`)
	correctMarker     = regexp.MustCompile(`(?i)\*|\[correct\]|✓`)
)

// ParseQuestions turns raw completion text into a validated question list of
// best-effort fidelity. It never fails: structured parsing degrades to text
// heuristics, and those degrade to a single synthesized question, so the
// caller always receives a non-empty result. The final count is best-effort —
// fewer questions than requested may come back, and any overage is trimmed.
func ParseQuestions(raw string, settings models.PredictionSettings) []models.Question {
	settings = settings.Clamped()

	var questions []models.Question
	if items := parseStructured(raw); len(items) > 0 {
		questions = make([]models.Question, 0, len(items))
		for i, item := range items {
			questions = append(questions, normalizeQuestion(item, i, settings))
		}
	} else {
		questions = questionsFromText(raw, settings)
	}

	if len(questions) == 0 {
		questions = []models.Question{fallbackQuestion(settings)}
	}

	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Probability > questions[j].Probability
	})

	if len(questions) > settings.NumberOfQuestions {
		questions = questions[:settings.NumberOfQuestions]
	}
	return questions
}

// parseStructured attempts the strict path: locate a JSON array in the
// completion and decode it into untyped maps. Field presence and types are
// never trusted; normalizeQuestion sorts that out.
func parseStructured(raw string) []map[string]any {
	if candidate := extractJSONArray(raw); candidate != "" {
		var items []map[string]any
		if err := json.Unmarshal([]byte(candidate), &items); err == nil {
			return items
		}
	}
	// The provider occasionally wraps the array in prose; a shape-matching
	// regex is the last structured attempt before text heuristics.
	if match := jsonArrayPattern.FindString(raw); match != "" {
		var items []map[string]any
		if err := json.Unmarshal([]byte(match), &items); err == nil {
			return items
		}
	}
	return nil
}

// extractJSONArray strips markdown code fences and slices out the first `[`
// through the last `]`.
func extractJSONArray(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		start := 3
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}
		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
		content = strings.TrimSpace(content)
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return content[startIdx : endIdx+1]
}

// normalizeQuestion funnels one untrusted item into the strict schema. The
// question type is forced to the requested one regardless of what the model
// claimed.
func normalizeQuestion(item map[string]any, index int, settings models.PredictionSettings) models.Question {
	id := stringField(item, "id")
	if id == "" {
		id = newQuestionID()
	}
	text := stringField(item, "text")
	if text == "" {
		text = fmt.Sprintf("Question %d", index+1)
	}

	q := models.Question{
		ID:          id,
		Text:        text,
		Probability: clampProbability(coerceNumber(item["probability"])),
		Source:      defaultString(stringField(item, "source"), defaultSource),
		Type:        settings.QuestionType,
	}

	if settings.QuestionType == models.QuestionTheory {
		q.Answer = defaultString(stringField(item, "answer"), defaultAnswer)
		return q
	}
	q.Options = normalizeOptions(item["options"], q.ID)
	return q
}

// normalizeOptions yields exactly 4 options with exactly one marked correct.
// A missing or malformed list is replaced wholesale with placeholders; with
// multiple correct flags the first wins, with none the first option is
// promoted.
func normalizeOptions(v any, questionID string) []models.ObjectiveOption {
	raw, ok := v.([]any)
	if !ok || len(raw) != 4 {
		return placeholderOptions(questionID)
	}

	opts := make([]models.ObjectiveOption, 0, 4)
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return placeholderOptions(questionID)
		}
		opt := models.ObjectiveOption{
			ID:        defaultString(stringField(m, "id"), fmt.Sprintf("%s-opt-%d", questionID, i)),
			Text:      defaultString(stringField(m, "text"), fmt.Sprintf("Option %d", i+1)),
			IsCorrect: truthy(m["isCorrect"]),
		}
		opts = append(opts, opt)
	}
	return enforceSingleCorrect(opts)
}

func enforceSingleCorrect(opts []models.ObjectiveOption) []models.ObjectiveOption {
	correct := -1
	for i, opt := range opts {
		if opt.IsCorrect {
			correct = i
			break
		}
	}
	if correct == -1 {
		correct = 0
	}
	for i := range opts {
		opts[i].IsCorrect = i == correct
	}
	return opts
}

func placeholderOptions(questionID string) []models.ObjectiveOption {
	labels := []string{"Option A", "Option B", "Option C", "Option D"}
	opts := make([]models.ObjectiveOption, len(labels))
	for i, label := range labels {
		opts[i] = models.ObjectiveOption{
			ID:        fmt.Sprintf("%s-opt-%d", questionID, i),
			Text:      label,
			IsCorrect: i == 0,
		}
	}
	return opts
}

// questionsFromText is the unstructured fallback: numbered segments become
// question boundaries, with per-type heuristics for answers and options.
func questionsFromText(raw string, settings models.PredictionSettings) []models.Question {
	locs := questionBoundary.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return nil
	}

	var questions []models.Question
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if q := questionFromSegment(raw[loc[1]:end], settings); q != nil {
			questions = append(questions, *q)
		}
	}
	return questions
}

func questionFromSegment(segment string, settings models.PredictionSettings) *models.Question {
	lines := strings.SplitN(segment, "\n", 2)
	text := strings.TrimSpace(lines[0])
	body := ""
	if len(lines) > 1 {
		body = lines[1]
	}

	probability := 0
	if m := probabilityMarker.FindStringSubmatch(segment); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			probability = n
		}
		text = strings.TrimSpace(probabilityMarker.ReplaceAllString(text, ""))
	}
	if probability == 0 {
		// No marker in the text; substitute a plausible estimate.
		probability = 55 + rand.Intn(40)
	}
	if text == "" {
		return nil
	}

	q := models.Question{
		ID:          newQuestionID(),
		Text:        text,
		Probability: clampProbability(float64(probability)),
		Source:      "Extracted from response text",
		Type:        settings.QuestionType,
	}

	if settings.QuestionType == models.QuestionTheory {
		q.Answer = defaultString(answerCandidate(body), defaultAnswer)
		return &q
	}
	q.Options = optionsFromText(body, q.ID)
	return &q
}

// answerCandidate takes the text immediately after the question, up to the
// next line break, and accepts it only if it looks answer-like.
func answerCandidate(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(strings.ToLower(line), "answer") || strings.Contains(line, ":") {
			return line
		}
		return ""
	}
	return ""
}

// optionsFromText parses "A) ... D)"-shaped lines. A correctness marker
// (asterisk, "[correct]", or a checkmark) selects the correct option; absent
// any marker a pseudo-random option is chosen.
func optionsFromText(body, questionID string) []models.ObjectiveOption {
	matches := optionLinePattern.FindAllStringSubmatch(body, -1)
	if len(matches) < 4 {
		return placeholderOptions(questionID)
	}

	correct := -1
	opts := make([]models.ObjectiveOption, 0, 4)
	for i, m := range matches[:4] {
		optText := strings.TrimSpace(m[2])
		if correctMarker.MatchString(optText) {
			optText = strings.TrimSpace(correctMarker.ReplaceAllString(optText, ""))
			if correct == -1 {
				correct = i
			}
		}
		opts = append(opts, models.ObjectiveOption{
			ID:   fmt.Sprintf("%s-opt-%d", questionID, i),
			Text: defaultString(optText, fmt.Sprintf("Option %d", i+1)),
		})
	}
	if correct == -1 {
		correct = rand.Intn(len(opts))
	}
	opts[correct].IsCorrect = true
	return opts
}

// fallbackQuestion is the last resort when nothing at all could be recovered
// from the completion.
func fallbackQuestion(settings models.PredictionSettings) models.Question {
	q := models.Question{
		ID:          newQuestionID(),
		Text:        "Explain the main concepts covered in the study material.",
		Probability: fallbackProbability,
		Source:      defaultSource,
		Type:        settings.QuestionType,
	}
	if settings.QuestionType == models.QuestionTheory {
		q.Answer = "Review the key definitions, processes, and relationships described in the material."
		return q
	}
	q.Options = placeholderOptions(q.ID)
	return q
}

func newQuestionID() string {
	return "q-" + uuid.NewString()
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// truthy reads loosely typed boolean fields: real booleans, "true"/"yes"
// strings, and nonzero numbers all count.
func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "true" || s == "yes" || s == "1"
	case float64:
		return b != 0
	}
	return false
}

// coerceNumber accepts the numeric shapes the model actually emits: JSON
// numbers and numbers quoted as strings.
func coerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64); err == nil {
			return f
		}
	}
	return defaultProbability
}

func clampProbability(f float64) int {
	n := int(math.Round(f))
	if n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}
