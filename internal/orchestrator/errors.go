package orchestrator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/store"
)

var (
	// ErrInvalidRequest indicates a create request that can never succeed.
	ErrInvalidRequest = errors.New("invalid quiz generation request")

	// ErrGenerationFailed is wrapped by GenerationFailedError.
	ErrGenerationFailed = errors.New("quiz generation failed")

	// ErrFileNotFound is returned by FileStorage for unknown identifiers.
	ErrFileNotFound = fmt.Errorf("%w: file", store.ErrNotFound)
)

// GenerationFailedError reports a failure payload received from the
// generation worker. The job has already been marked failed when it is returned.
type GenerationFailedError struct {
	QuizID uuid.UUID
	Reason string
}

// Error implements the error interface for GenerationFailedError.
func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("quiz %s generation failed: %s", e.QuizID, e.Reason)
}

// Unwrap returns ErrGenerationFailed to support errors.Is.
func (e *GenerationFailedError) Unwrap() error {
	return ErrGenerationFailed
}

// ServiceError wraps errors from the orchestrator with the failing operation.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_job", "file_parsed")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("orchestrator %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("orchestrator %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
