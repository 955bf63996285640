// Package store defines the persistence contract every backend implements.
// Lifecycle logic only talks to these interfaces, never to a driver.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrUnavailable       = errors.New("store unavailable")
)

type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	FindAccountByID(ctx context.Context, id string) (*model.Account, error)
	// CreateAccount fails with ErrDuplicateEmail or ErrDuplicateUsername.
	// The backend's unique constraints are the final authority.
	CreateAccount(ctx context.Context, a *model.Account) error
	UpdateAccountPassword(ctx context.Context, email, hash string) error
	MarkAccountVerified(ctx context.Context, email string) error
}

type TokenStore interface {
	// UpsertToken replaces any previous token of the same account and purpose.
	UpsertToken(ctx context.Context, t *model.AuthToken) error
	FindToken(ctx context.Context, accountID string, purpose model.TokenPurpose) (*model.AuthToken, error)
	// DeleteToken consumes the token only if tokenID is still the live one.
	// It fails with ErrNotFound otherwise, so a token is consumed at most once.
	DeleteToken(ctx context.Context, accountID string, purpose model.TokenPurpose, tokenID string) error
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

type ReminderStore interface {
	CreateReminder(ctx context.Context, r *model.Reminder) error
	ListReminders(ctx context.Context, ownerID string) ([]model.Reminder, error)
	FindReminder(ctx context.Context, ownerID, id string) (*model.Reminder, error)
	UpdateReminder(ctx context.Context, r *model.Reminder) error
	DeleteReminder(ctx context.Context, ownerID, id string) error
}

type Store interface {
	AccountStore
	TokenStore
	ReminderStore
	Close() error
}

// NormalizeEmail is applied to every email before it reaches a backend.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
