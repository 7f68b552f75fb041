package services

import "errors"

// Error kinds. Handlers map each kind to one HTTP status.
var (
	ErrValidation       = errors.New("validation failed")
	ErrBadCreds         = errors.New("invalid email or password")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrSelfDelete       = errors.New("cannot delete own account")
)

// Error carries a user-facing message for a kind. Reason is for logs only.
type Error struct {
	Kind   error
	Msg    string
	Reason string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func Fail(kind error, msg string) error { return &Error{Kind: kind, Msg: msg} }

// Reason returns the log-only detail of err, if any.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
