package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/domain"
)

// CreateQuizRequest is the body of POST /api/quizzes.
type CreateQuizRequest struct {
	Title            string   `json:"title"            validate:"max=200"`
	QuestionsNumbers int      `json:"questionsNumbers" validate:"required,min=1,max=100"`
	FileIdentifiers  []string `json:"fileIdentifiers"  validate:"required,min=1,dive,required"`
}

// CreateQuizResponse acknowledges an accepted quiz request.
type CreateQuizResponse struct {
	QuizID uuid.UUID        `json:"quizId"`
	JobID  uuid.UUID        `json:"jobId"`
	Status domain.JobStatus `json:"status"`
}

// GenerationProgressResponse reports the state of a quiz's generation job.
type GenerationProgressResponse struct {
	Status              domain.JobStatus `json:"status"`
	ParsingFileProgress string           `json:"parsingFileProgress"`
	ParsedFiles         int              `json:"parsedFiles"`
	TotalFiles          int              `json:"totalFiles"`
}

func progressResponse(p domain.JobProgress) GenerationProgressResponse {
	return GenerationProgressResponse{
		Status:              p.Status,
		ParsingFileProgress: p.String(),
		ParsedFiles:         p.ParsedFiles,
		TotalFiles:          p.TotalFiles,
	}
}
