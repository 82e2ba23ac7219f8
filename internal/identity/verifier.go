package identity

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnauthorized is the root of every credential failure.
var ErrUnauthorized = errors.New("unauthorized")

var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrExpiredToken = fmt.Errorf("%w: token expired", ErrUnauthorized)
)

// Identity is the authenticated caller behind a token.
type Identity struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
