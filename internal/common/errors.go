// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Common application errors.
var (
	// Input errors.
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")

	// Extraction errors.
	ErrBankNotDetected   = errors.New("bank not detected")
	ErrPatternNotMatched = errors.New("no matching pattern")
	ErrExtractionFailed  = errors.New("transaction extraction failed")

	// LLM errors.
	ErrLLMUnavailable    = errors.New("llm endpoint unavailable")
	ErrLLMResponseFormat = errors.New("no valid JSON in llm response")
	ErrNoParsingMethod   = errors.New("no parsing method available")

	// Payment errors.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrStatusConflict          = errors.New("transaction status changed concurrently")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Kind classifies an error for callers at the HTTP boundary.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindInvalidInput
	KindExtraction
	KindNotFound
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindExtraction:
		return "extraction"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// AppError is an error with a classification and a message safe to show callers.
type AppError struct {
	Err     error
	Message string
	Kind    Kind
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a classified error.
func NewAppError(kind Kind, message string, err error) error {
	return &AppError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// InvalidInput creates a KindInvalidInput error wrapping ErrInvalidInput.
func InvalidInput(message string) error {
	return &AppError{Kind: KindInvalidInput, Message: message, Err: ErrInvalidInput}
}

// KindOf classifies err. AppError wins; otherwise known sentinels are mapped.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidStatusTransition),
		errors.Is(err, ErrStatusConflict),
		errors.Is(err, ErrInvalidConfig):
		return KindInvalidInput
	case errors.Is(err, ErrBankNotDetected),
		errors.Is(err, ErrPatternNotMatched),
		errors.Is(err, ErrExtractionFailed):
		return KindExtraction
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNoParsingMethod),
		errors.Is(err, ErrLLMUnavailable),
		errors.Is(err, ErrLLMResponseFormat):
		return KindUnavailable
	}

	return KindInternal
}

// StatusCode maps an error to the HTTP status it should be reported with.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindExtraction:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message to expose for err.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return err.Error()
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
