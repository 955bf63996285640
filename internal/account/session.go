package account

import (
	"time"

	"github.com/jovaandres/rest-api-ev/internal/token"
)

// Session is the authenticated caller of a request. It is resolved from the
// request's token by middleware and handed explicitly to the operations
// that need it.
type Session struct {
	AccountID string
	Email     string
	ExpiresAt time.Time
	Claims    *token.Claims
}

func newSession(c *token.Claims) *Session {
	s := &Session{
		AccountID: c.Subject,
		Email:     c.Email,
		Claims:    c,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}

	return s
}
