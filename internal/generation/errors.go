package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when the agent could not produce a usable quiz
	ErrGenerationFailed = errors.New("failed to generate quiz from file contents")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrSafetyCheckFailed is wrapped by SafetyCheckError
	ErrSafetyCheckFailed = errors.New("generated quiz failed the safety check")

	// ErrMaxGenerationAttempts is returned when every attempt was used up
	// without any attempt reporting an error of its own
	ErrMaxGenerationAttempts = errors.New("maximum generation attempts reached")

	// ErrInvalidConfig is returned when the agent configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// SafetyCheckError reports a quiz rejected by the safety gate.
type SafetyCheckError struct {
	IsOffensive      bool
	EducationalScore int
}

// Error implements the error interface for SafetyCheckError.
func (e *SafetyCheckError) Error() string {
	if e.IsOffensive {
		return fmt.Sprintf("quiz rejected: offensive content (educational score %d)", e.EducationalScore)
	}
	return fmt.Sprintf("quiz rejected: educational score %d below %d", e.EducationalScore, MinEducationalScore)
}

// Unwrap returns ErrSafetyCheckFailed to support errors.Is.
func (e *SafetyCheckError) Unwrap() error {
	return ErrSafetyCheckFailed
}
