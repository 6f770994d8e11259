package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestion() Question {
	return Question{
		Q: "What is 2+2?",
		Answers: []Answer{
			{A: "3"},
			{A: "4", C: true},
		},
	}
}

func TestNewQuiz(t *testing.T) {
	t.Parallel()

	quiz, err := NewQuiz(uuid.New(), "Arithmetic", 10)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, quiz.ID)
	assert.Empty(t, quiz.Questions)
	assert.Equal(t, 10, quiz.QuestionsNumbers)

	_, err = NewQuiz(uuid.Nil, "x", 10)
	assert.ErrorIs(t, err, ErrEmptyQuizUserID)

	_, err = NewQuiz(uuid.New(), "x", 0)
	assert.ErrorIs(t, err, ErrInvalidQuestionsNumber)

	_, err = NewQuiz(uuid.New(), "x", MaxQuestionsNumbers+1)
	assert.ErrorIs(t, err, ErrInvalidQuestionsNumber)
}

func TestQuizPutQuestions(t *testing.T) {
	t.Parallel()

	quiz, err := NewQuiz(uuid.New(), "Draft", 1)
	require.NoError(t, err)

	require.NoError(t, quiz.PutQuestions("Final", []Question{validQuestion()}))
	assert.Equal(t, "Final", quiz.Title)
	assert.Len(t, quiz.Questions, 1)

	require.NoError(t, quiz.PutQuestions("", []Question{validQuestion(), validQuestion()}))
	assert.Equal(t, "Final", quiz.Title, "empty title keeps the existing one")
	assert.Len(t, quiz.Questions, 2)

	assert.ErrorIs(t, quiz.PutQuestions("x", nil), ErrEmptyQuestions)

	noCorrect := Question{Q: "q", Answers: []Answer{{A: "a"}, {A: "b"}}}
	assert.ErrorIs(t, quiz.PutQuestions("x", []Question{noCorrect}), ErrInvalidQuestion)
	assert.Len(t, quiz.Questions, 2, "failed put leaves questions untouched")
}

func TestQuestionJSONShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(validQuestion())
	require.NoError(t, err)
	assert.JSONEq(t, `{"q":"What is 2+2?","answers":[{"a":"3","c":false},{"a":"4","c":true}]}`, string(data))
}

func TestPolicyForTier(t *testing.T) {
	t.Parallel()

	free := PolicyForTier(TierFree)
	require.NotNil(t, free.MaxFilesPerGeneration)
	assert.Equal(t, 1, *free.MaxFilesPerGeneration)

	pro := PolicyForTier(TierPro)
	assert.Nil(t, pro.MaxTotalQuizzes)
	assert.Nil(t, pro.MaxGenerationsPerDay)

	assert.Equal(t, free, PolicyForTier(Tier("enterprise")))
	assert.False(t, Tier("enterprise").IsValid())
}

func TestCachedFileParsedValidate(t *testing.T) {
	t.Parallel()

	entry, err := NewCachedFileParsed("abc", "uploads/a.pdf", json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, entry.CreatedAt, entry.UpdatedAt)

	_, err = NewCachedFileParsed("", "id", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrEmptyChecksum)

	_, err = NewCachedFileParsed("abc", "", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = NewCachedFileParsed("abc", "id", nil)
	assert.ErrorIs(t, err, ErrEmptyFileContent)

	_, err = NewCachedFileParsed("abc", "id", json.RawMessage(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
