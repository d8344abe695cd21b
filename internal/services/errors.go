package services

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent is returned when an uploaded file yields no usable text.
	ErrEmptyContent = errors.New("no content provided to generate questions from")

	// ErrEmptyCompletion is returned when the provider answers with no
	// completion text. It is retried like any other remote failure.
	ErrEmptyCompletion = errors.New("provider returned no completion text")
)

// FileReadError wraps a failure while reading an uploaded file. It aborts the
// prediction attempt without retry.
type FileReadError struct {
	Err error
}

func (e *FileReadError) Error() string {
	return "read file: " + e.Err.Error()
}

func (e *FileReadError) Unwrap() error { return e.Err }

// RemoteKind classifies a remote service failure so callers can show an
// actionable message.
type RemoteKind string

const (
	RemoteAuthentication RemoteKind = "authentication"
	RemoteRateLimited    RemoteKind = "rate_limited"
	RemoteTokenLimit     RemoteKind = "token_limit"
	RemoteGeneric        RemoteKind = "generic"
)

// RemoteServiceError is a transport or non-2xx failure from the
// chat-completion provider.
type RemoteServiceError struct {
	Kind       RemoteKind
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote service error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote service error (%s): %s", e.Kind, e.Message)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// UserMessage maps an error to the message shown on the prediction screen,
// with remediation hints where they help.
func UserMessage(err error) string {
	var fileErr *FileReadError
	if errors.As(err, &fileErr) {
		return "Could not read the uploaded file. Please try a different file."
	}
	if errors.Is(err, ErrEmptyContent) {
		return "The file appears to be empty. Upload a document with readable text."
	}
	var remoteErr *RemoteServiceError
	if errors.As(err, &remoteErr) {
		switch remoteErr.Kind {
		case RemoteAuthentication:
			return "Authentication with the AI provider failed. Check the configured API key."
		case RemoteRateLimited:
			return "The AI provider is rate limiting requests. Please try again in a moment."
		case RemoteTokenLimit:
			return "The document is too large for the model. Try a smaller file or fewer questions."
		}
		return "The AI provider returned an error. Try a smaller file or fewer questions."
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return "The AI provider returned an empty response. Please try again."
	}
	return "There was an error generating predictions. Please try again."
}
