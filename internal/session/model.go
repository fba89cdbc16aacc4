package session

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a row in the sessions table: a refresh-token grant that
// can be revoked by flipping Active. Rows are never deleted; deactivated
// sessions accumulate as history.
type Session struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Token     string // the refresh token string, lookup key while active
	ExpiresAt time.Time
	IPAddress *string
	Active    bool
	CreatedAt time.Time
}
