package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/api/shared"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/orchestrator"
	"github.com/phrazzld/quizgen/internal/platform/logger"
)

// QuizService is the part of the orchestrator the quiz endpoints use.
type QuizService interface {
	CreateJob(ctx context.Context, req orchestrator.CreateJobRequest) (*orchestrator.CreateJobResult, error)
	UserProgress(ctx context.Context, userID, quizID uuid.UUID) (domain.JobProgress, error)
}

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	quizzes QuizService
}

// NewQuizHandler creates a new QuizHandler
func NewQuizHandler(quizzes QuizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// CreateQuiz handles POST /api/quizzes. Generation is asynchronous, so a
// successful request returns 202 with the IDs to poll.
func (h *QuizHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateQuizRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	res, err := h.quizzes.CreateJob(r.Context(), orchestrator.CreateJobRequest{
		UserID:           userID,
		Title:            req.Title,
		QuestionsNumbers: req.QuestionsNumbers,
		FileIdentifiers:  req.FileIdentifiers,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("quiz request accepted",
		"quiz_id", res.QuizID,
		"job_id", res.JobID,
		"status", res.Status)
	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateQuizResponse{
		QuizID: res.QuizID,
		JobID:  res.JobID,
		Status: res.Status,
	})
}

// GetGenerationProgress handles GET /api/quizzes/{id}/generation.
func (h *QuizHandler) GetGenerationProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	quizID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid quiz ID")
		return
	}

	progress, err := h.quizzes.UserProgress(r.Context(), userID, quizID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, progressResponse(progress))
}

func (h *QuizHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var opts []shared.ResponseOption
	if reason := clientReason(err); reason != "" {
		opts = append(opts, shared.WithReason(reason))
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err, opts...)
}
