// Package storetest holds the behaviour every store backend must share.
// Backends that can run in-process call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, open(t)) })
	t.Run("tokens", func(t *testing.T) { testTokens(t, open(t)) })
	t.Run("reminders", func(t *testing.T) { testReminders(t, open(t)) })
}

func account(id, username, email string) *model.Account {
	return &model.Account{
		ID:           id,
		Name:         "Name " + id,
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$hash",
	}
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.FindAccountByEmail(ctx, "ann@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CreateAccount(ctx, account("a1", "ann", "ann@x.com")))

	got, err := s.FindAccountByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "ann", got.Username)
	assert.False(t, got.Verified)

	byID, err := s.FindAccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", byID.Email)

	err = s.CreateAccount(ctx, account("a2", "other", "ann@x.com"))
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	err = s.CreateAccount(ctx, account("a3", "ANN", "ann2@x.com"))
	assert.ErrorIs(t, err, store.ErrDuplicateUsername)

	require.NoError(t, s.MarkAccountVerified(ctx, "ann@x.com"))
	require.NoError(t, s.UpdateAccountPassword(ctx, "ann@x.com", "$2a$04$other"))

	got, err = s.FindAccountByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Equal(t, "$2a$04$other", got.PasswordHash)

	assert.ErrorIs(t, s.MarkAccountVerified(ctx, "bob@x.com"), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateAccountPassword(ctx, "bob@x.com", "x"), store.ErrNotFound)
}

func testTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.FindToken(ctx, "a1", model.PurposeVerification)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.UpsertToken(ctx, &model.AuthToken{
		AccountID: "a1", Purpose: model.PurposeVerification, TokenID: "first", ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, s.UpsertToken(ctx, &model.AuthToken{
		AccountID: "a1", Purpose: model.PurposeVerification, TokenID: "second", ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, s.UpsertToken(ctx, &model.AuthToken{
		AccountID: "a1", Purpose: model.PurposeReset, TokenID: "reset", ExpiresAt: now.Add(-time.Minute),
	}))

	got, err := s.FindToken(ctx, "a1", model.PurposeVerification)
	require.NoError(t, err)
	assert.Equal(t, "second", got.TokenID)

	n, err := s.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.FindToken(ctx, "a1", model.PurposeReset)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.DeleteToken(ctx, "a1", model.PurposeVerification, "first")
	assert.ErrorIs(t, err, store.ErrNotFound, "superseded token id")

	_, err = s.FindToken(ctx, "a1", model.PurposeVerification)
	require.NoError(t, err)

	require.NoError(t, s.DeleteToken(ctx, "a1", model.PurposeVerification, "second"))
	_, err = s.FindToken(ctx, "a1", model.PurposeVerification)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.DeleteToken(ctx, "a1", model.PurposeVerification, "second")
	assert.ErrorIs(t, err, store.ErrNotFound, "already consumed")
}

func testReminders(t *testing.T, s store.Store) {
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	list, err := s.ListReminders(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.CreateReminder(ctx, &model.Reminder{ID: "r2", OwnerID: "a1", Title: "Later", Major: "Math", Time: at.Add(time.Hour)}))
	require.NoError(t, s.CreateReminder(ctx, &model.Reminder{ID: "r1", OwnerID: "a1", Title: "Sooner", Major: "Math", Time: at}))
	require.NoError(t, s.CreateReminder(ctx, &model.Reminder{ID: "r3", OwnerID: "b1", Title: "Other", Major: "Art", Time: at}))

	list, err = s.ListReminders(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r1", list[0].ID)
	assert.Equal(t, "r2", list[1].ID)

	_, err = s.FindReminder(ctx, "a1", "r3")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.UpdateReminder(ctx, &model.Reminder{ID: "r1", OwnerID: "a1", Title: "Changed", Major: "Math", Time: at})
	require.NoError(t, err)

	r, err := s.FindReminder(ctx, "a1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "Changed", r.Title)
	assert.True(t, r.Time.Equal(at))

	err = s.UpdateReminder(ctx, &model.Reminder{ID: "r3", OwnerID: "a1", Title: "Stolen", Major: "Art", Time: at})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteReminder(ctx, "a1", "r3"), store.ErrNotFound)
	require.NoError(t, s.DeleteReminder(ctx, "a1", "r1"))
	_, err = s.FindReminder(ctx, "a1", "r1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
