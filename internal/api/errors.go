package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/quizgen/internal/orchestrator"
	"github.com/phrazzld/quizgen/internal/quota"
	"github.com/phrazzld/quizgen/internal/store"
)

// MapErrorToStatusCode maps service errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusForbidden
	case store.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		return "Invalid quiz request"
	case errors.Is(err, quota.ErrQuotaExceeded):
		return "Quota exceeded"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrQuizNotFound), errors.Is(err, store.ErrJobNotFound):
		return "Quiz not found"
	case store.IsNotFoundError(err):
		return "Not found"
	default:
		return "An unexpected error occurred"
	}
}

// clientReason returns the detail a client may see alongside the message.
// Quota denials name the limit; invalid requests name the offending input.
func clientReason(err error) string {
	var exceeded *quota.ExceededError
	if errors.As(err, &exceeded) {
		return exceeded.Reason
	}
	if errors.Is(err, orchestrator.ErrInvalidRequest) {
		return err.Error()
	}
	return ""
}
