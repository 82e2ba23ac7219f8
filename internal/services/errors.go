package services

import "errors"

// Error kinds surfaced by the services. Handlers map them to HTTP statuses.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

// Error is a client facing failure of a given kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func validationError(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }

func notFoundError(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

func forbiddenError(msg string) error { return &Error{Kind: ErrForbidden, Msg: msg} }
