package generation

import (
	"context"
	"encoding/json"

	"github.com/phrazzld/quizgen/internal/domain"
)

// MinEducationalScore is the lowest safety-check score a quiz may have and
// still be accepted.
const MinEducationalScore = 50

// SafetyReport is the verdict of a content safety check.
type SafetyReport struct {
	IsOffensive      bool `json:"isOffensive"`
	EducationalScore int  `json:"educationalScore"`
}

// Passed reports whether the quiz may be returned to the user.
func (r SafetyReport) Passed() bool {
	return !r.IsOffensive && r.EducationalScore >= MinEducationalScore
}

// Agent defines the boundary between the generation loop and an LLM
// provider.
type Agent interface {
	// GenerateQuiz drafts a quiz of n questions from the parsed file
	// contents. The returned quiz carries a title and questions only.
	GenerateQuiz(ctx context.Context, contents []json.RawMessage, n int) (*domain.Quiz, error)

	// SafetyContentCheck rates a drafted quiz for offensiveness and
	// educational value.
	SafetyContentCheck(ctx context.Context, quiz *domain.Quiz) (*SafetyReport, error)

	// MaxTry is the number of attempts the loop may spend on one request.
	MaxTry() int
}

// Request is the input of a single generation run.
type Request struct {
	FileContents     []json.RawMessage
	QuestionsNumbers int
}
