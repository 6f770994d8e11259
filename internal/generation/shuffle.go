package generation

import (
	"math/rand"

	"github.com/phrazzld/quizgen/internal/domain"
)

// ShuffleAnswers reorders the answers of every question independently
// (Fisher-Yates). The answer slices are copied, so questions that share a
// backing array with the caller are not disturbed.
func ShuffleAnswers(questions []domain.Question, rng *rand.Rand) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		answers := append([]domain.Answer(nil), q.Answers...)
		for j := len(answers) - 1; j > 0; j-- {
			k := rng.Intn(j + 1)
			answers[j], answers[k] = answers[k], answers[j]
		}
		out[i] = domain.Question{Q: q.Q, Answers: answers}
	}
	return out
}
