package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for User
var (
	ErrEmptyUserID = errors.New("user ID cannot be empty")
	ErrInvalidTier = errors.New("invalid subscription tier")
)

// User is the owner of quizzes. Only the fields the generation pipeline
// reads are modelled here; account management lives elsewhere.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Tier      Tier      `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the user has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if !u.Tier.IsValid() {
		return ErrInvalidTier
	}
	return nil
}
