package services

import (
	"fmt"
	"strings"

	"exam-predictor/internal/models"
)

const (
	// maxPromptChars bounds the document text sent to the model so the prompt
	// stays inside hosted context windows.
	maxPromptChars = 8000

	truncationMarker = "...(content truncated for token limit)"
)

// BuildPrompt constructs the single natural-language instruction sent to the
// chat-completion provider for one generation run. Settings are expected to be
// clamped already.
func BuildPrompt(content string, settings models.PredictionSettings) string {
	textContent := prepareContent(content, settings)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"Generate exactly %d %s exam questions based on this content.\n\n",
		settings.NumberOfQuestions, settings.QuestionType,
	))
	sb.WriteString("For each question:\n")
	sb.WriteString("- Include a probability percentage between 1 and 100 estimating how likely it is to appear on an exam\n")
	if settings.QuestionType == models.QuestionTheory {
		sb.WriteString("- Provide a sample answer\n")
	} else {
		sb.WriteString("- Provide exactly 4 labeled options with exactly one marked correct\n")
	}
	sb.WriteString("- Include a source section indicating where in the content the question originates\n\n")

	sb.WriteString("Return as JSON array:\n")
	sb.WriteString("[\n  {\n")
	sb.WriteString("    \"id\": \"q1\",\n")
	sb.WriteString("    \"text\": \"Question text\",\n")
	sb.WriteString("    \"probability\": 85,\n")
	sb.WriteString("    \"source\": \"Source from content\",\n")
	sb.WriteString(fmt.Sprintf("    \"type\": %q,\n", settings.QuestionType))
	if settings.QuestionType == models.QuestionTheory {
		sb.WriteString("    \"answer\": \"Sample answer\"\n")
	} else {
		sb.WriteString("    \"options\": [{\"id\": \"a\", \"text\": \"Option\", \"isCorrect\": true}, {\"id\": \"b\", \"text\": \"Option\", \"isCorrect\": false}]\n")
	}
	sb.WriteString("  }\n]\n\n")
	sb.WriteString("Return ONLY valid JSON. Content:\n")
	sb.WriteString(textContent)

	return sb.String()
}

// prepareContent truncates the document text to the prompt budget and flags
// binary-looking input instead of passing garbled bytes through silently.
func prepareContent(content string, settings models.PredictionSettings) string {
	if LooksBinary(content) {
		sample := truncateRunes(content, maxPromptChars/2)
		return fmt.Sprintf(
			"This appears to be a binary document file. Extract key concepts and generate %d %s questions from this sample: %s",
			settings.NumberOfQuestions, settings.QuestionType, sample,
		)
	}
	if len(content) > maxPromptChars {
		return truncateRunes(content, maxPromptChars) + truncationMarker
	}
	return content
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
