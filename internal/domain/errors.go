package domain

import "errors"

var (
	// ErrNoActiveUser is returned when a game action arrives before login.
	ErrNoActiveUser = errors.New("no active user")
	// ErrNotRunning is returned when a game action arrives outside a running session.
	ErrNotRunning = errors.New("session is not running")
	// ErrAnswerLocked indicates the current question already has an answer pending.
	ErrAnswerLocked = errors.New("answer locked")
	// ErrLifelineExhausted indicates the lifeline counter is already zero.
	ErrLifelineExhausted = errors.New("lifeline exhausted")
	// ErrEmptyPool indicates there are no questions to play.
	ErrEmptyPool = errors.New("question pool is empty")
	// ErrOptionOutOfRange indicates a submitted option index does not exist.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrInvalidQuestion indicates a question record failed validation.
	ErrInvalidQuestion = errors.New("invalid question")
)

// ValidationError is a user-facing rejection (bad nickname, phone or passphrase).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is a login validation rejection.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
