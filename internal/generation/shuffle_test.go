package generation_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manyQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			Q: fmt.Sprintf("Question %d", i),
			Answers: []domain.Answer{
				{A: "first", C: true},
				{A: "second"},
				{A: "third"},
				{A: "fourth"},
			},
		}
	}
	return qs
}

func TestShuffleAnswers_PreservesAnswerSets(t *testing.T) {
	t.Parallel()
	questions := manyQuestions(100)
	rng := rand.New(rand.NewSource(42))

	reordered := false
	for i := 0; i < 10; i++ {
		shuffled := generation.ShuffleAnswers(questions, rng)
		require.Len(t, shuffled, len(questions))
		for j := range questions {
			assert.Equal(t, questions[j].Q, shuffled[j].Q)
			assert.ElementsMatch(t, questions[j].Answers, shuffled[j].Answers)
			if shuffled[j].Answers[0] != questions[j].Answers[0] {
				reordered = true
			}
		}
	}
	assert.True(t, reordered, "expected at least one reordering")
}

func TestShuffleAnswers_DoesNotAliasInput(t *testing.T) {
	t.Parallel()
	questions := manyQuestions(5)
	original := manyQuestions(5)

	_ = generation.ShuffleAnswers(questions, rand.New(rand.NewSource(7)))
	assert.Equal(t, original, questions)
}

func TestShuffleAnswers_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, generation.ShuffleAnswers(nil, rand.New(rand.NewSource(1))))
}
