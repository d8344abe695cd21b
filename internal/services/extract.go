package services

import (
	"io"
	"strings"
)

// ExtractText slurps src into a string. The reader is consumed once and is
// not restartable. Binary input passes through as noisy text rather than
// failing; the request builder flags it to the model instead.
func ExtractText(src io.Reader) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", &FileReadError{Err: err}
	}
	return string(data), nil
}

// LooksBinary reports whether content is plausibly a binary document rather
// than text. DOCX files start with the ZIP signature "PK"; PDFs carry "%PDF"
// near the start.
func LooksBinary(content string) bool {
	if strings.HasPrefix(content, "PK") {
		return true
	}
	if strings.Contains(content, "%PDF") {
		return true
	}
	// NUL bytes never appear in plain text.
	return strings.ContainsRune(content, '\x00')
}
