package closing

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("reconciliation not found")
	ErrAlreadyClosed = errors.New("date already closed")
	ErrLockHeld      = errors.New("date is being closed by another terminal")
)

// FetchError is a failed summary, history or print-data read. The caller
// may retry the same action.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Op, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError is a required field missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AuthError is a rejected staff PIN or API token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return "unauthorized: " + e.Message }

// SubmitError is a server-side refusal to persist a close. Conflict is
// set when the date was closed by someone else first.
type SubmitError struct {
	Conflict bool
	Message  string
	Err      error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submit: %s: %v", e.Message, e.Err)
	}
	return "submit: " + e.Message
}

func (e *SubmitError) Unwrap() error { return e.Err }
