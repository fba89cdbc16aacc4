package session

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when no active session matches a token.
var ErrSessionNotFound = errors.New("session not found or expired")

// Repository provides operations on the sessions table.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	// FindActiveByToken returns the active session holding the exact token
	// string, or ErrSessionNotFound.
	FindActiveByToken(ctx context.Context, token string) (*Session, error)
	// Deactivate marks the active session holding the token as inactive.
	// Reports whether a row was deactivated; no match is not an error.
	Deactivate(ctx context.Context, token string) (bool, error)
	// Rotate deactivates the session holding oldToken and inserts next as the
	// replacement in a single transaction, so a crash cannot leave both
	// token generations active.
	Rotate(ctx context.Context, oldToken string, next *Session) error
}
