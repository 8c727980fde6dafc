package domain

import "errors"

var (
	// ErrNoQuestions is returned when a quiz session is started without question units.
	ErrNoQuestions = errors.New("no questions found")
	// ErrSessionClosed is returned when answers are recorded after submission began.
	ErrSessionClosed = errors.New("quiz session is no longer active")
	// ErrNoActiveAttempt is returned when a user submits without a quiz in progress.
	ErrNoActiveAttempt = errors.New("no active quiz session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrTopicNotFound indicates an unknown topic id.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrMalformedResult indicates a scoring payload is missing fields or is inconsistent.
	ErrMalformedResult = errors.New("malformed scoring result")
	// ErrAIUnavailable indicates no LLM backend is configured.
	ErrAIUnavailable = errors.New("AI service not configured")
	ErrAIFailed      = errors.New("AI service request failed")
)
