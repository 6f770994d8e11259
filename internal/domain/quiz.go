package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bounds for the number of questions a quiz may request.
const (
	MinQuestionsNumbers = 1
	MaxQuestionsNumbers = 100
)

// Common validation errors for Quiz
var (
	ErrEmptyQuizID            = errors.New("quiz ID cannot be empty")
	ErrEmptyQuizUserID        = errors.New("quiz user ID cannot be empty")
	ErrInvalidQuestionsNumber = errors.New("questions number out of range")
	ErrEmptyQuestions         = errors.New("quiz must contain at least one question")
	ErrInvalidQuestion        = errors.New("invalid question")
)

// Answer is one option of a multiple-choice question; C marks it correct.
type Answer struct {
	A string `json:"a"`
	C bool   `json:"c"`
}

// Question is a multiple-choice question with its answer options.
type Question struct {
	Q       string   `json:"q"`
	Answers []Answer `json:"answers"`
}

// Validate checks that the question has text, at least two answers, and
// at least one correct answer.
func (q Question) Validate() error {
	if q.Q == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
	}
	if len(q.Answers) < 2 {
		return fmt.Errorf("%w: fewer than two answers", ErrInvalidQuestion)
	}
	correct := false
	for _, a := range q.Answers {
		if a.A == "" {
			return fmt.Errorf("%w: empty answer text", ErrInvalidQuestion)
		}
		correct = correct || a.C
	}
	if !correct {
		return fmt.Errorf("%w: no correct answer", ErrInvalidQuestion)
	}
	return nil
}

// Quiz is created empty when a generation request is accepted and receives
// its questions once generation succeeds.
type Quiz struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	Title            string     `json:"title"`
	Questions        []Question `json:"questions"`
	QuestionsNumbers int        `json:"questions_numbers"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewQuiz creates an empty quiz targeting the given number of questions.
func NewQuiz(userID uuid.UUID, title string, questionsNumbers int) (*Quiz, error) {
	now := time.Now().UTC()
	quiz := &Quiz{
		ID:               uuid.New(),
		UserID:           userID,
		Title:            title,
		Questions:        []Question{},
		QuestionsNumbers: questionsNumbers,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := quiz.Validate(); err != nil {
		return nil, err
	}

	return quiz, nil
}

// Validate checks if the quiz has valid data.
func (q *Quiz) Validate() error {
	if q.ID == uuid.Nil {
		return ErrEmptyQuizID
	}
	if q.UserID == uuid.Nil {
		return ErrEmptyQuizUserID
	}
	if q.QuestionsNumbers < MinQuestionsNumbers || q.QuestionsNumbers > MaxQuestionsNumbers {
		return ErrInvalidQuestionsNumber
	}
	return nil
}

// PutQuestions replaces the quiz questions. A non-empty title overrides the
// current one.
func (q *Quiz) PutQuestions(title string, questions []Question) error {
	if len(questions) == 0 {
		return ErrEmptyQuestions
	}
	for i, question := range questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}

	if title != "" {
		q.Title = title
	}
	q.Questions = append([]Question(nil), questions...)
	q.UpdatedAt = time.Now().UTC()
	return nil
}
