package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller identity is missing or invalid.
	ErrUnauthorized = errors.New("authentication required")
	// ErrQuizNotFound indicates the quiz item could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions indicates no quiz items matched a subject/difficulty filter.
	ErrNoQuestions = errors.New("no questions found for the specified criteria")
	// ErrProgressNotFound indicates the (user, subject) progress row is absent.
	ErrProgressNotFound = errors.New("progress record not found")
	// ErrProgressExists is returned when creating a progress row that already exists.
	ErrProgressExists = errors.New("progress record already exists for subject")
	// ErrSessionNotFound is returned when a quiz session is unknown, expired from the store or not the caller's.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrAchievementsNotFound indicates the achievement catalog is empty.
	ErrAchievementsNotFound = errors.New("no achievements found")
)

// ValidationError reports a missing, malformed or out-of-range field.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(code, message string) error {
	return &ValidationError{Code: code, Message: message}
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrNoQuestions) ||
		errors.Is(err, ErrProgressNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrAchievementsNotFound)
}
