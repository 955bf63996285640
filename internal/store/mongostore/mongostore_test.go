package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find account", func(mt *mtest.T) {
		s := New(mt.DB)
		ns := mt.DB.Name() + "." + accountsColl

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "name", Value: "Ann"},
			{Key: "username", Value: "ann"},
			{Key: "email", Value: "ann@x.com"},
			{Key: "password_hash", Value: "hash"},
			{Key: "verified", Value: true},
		}))

		a, err := s.FindAccountByEmail(ctx, "ann@x.com")
		require.NoError(mt, err)
		assert.Equal(mt, "a1", a.ID)
		assert.Equal(mt, "hash", a.PasswordHash)
		assert.True(mt, a.Verified)
	})

	mt.Run("account not found", func(mt *mtest.T) {
		s := New(mt.DB)
		ns := mt.DB.Name() + "." + accountsColl

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := s.FindAccountByID(ctx, "ghost")
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})

	mt.Run("create account", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		a := &model.Account{ID: "a1", Username: "ann", Email: "ann@x.com"}
		require.NoError(mt, s.CreateAccount(ctx, a))
		assert.False(mt, a.CreatedAt.IsZero())
	})

	mt.Run("duplicate keys", func(mt *mtest.T) {
		s := New(mt.DB)

		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Code:    11000,
			Message: "E11000 duplicate key error collection: test.users index: email_1 dup key",
		}))
		err := s.CreateAccount(ctx, &model.Account{ID: "a2"})
		assert.ErrorIs(mt, err, store.ErrDuplicateEmail)

		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Code:    11000,
			Message: "E11000 duplicate key error collection: test.users index: username_1 dup key",
		}))
		err = s.CreateAccount(ctx, &model.Account{ID: "a3"})
		assert.ErrorIs(mt, err, store.ErrDuplicateUsername)
	})

	mt.Run("mark verified", func(mt *mtest.T) {
		s := New(mt.DB)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		require.NoError(mt, s.MarkAccountVerified(ctx, "ann@x.com"))
		assert.ErrorIs(mt, s.MarkAccountVerified(ctx, "bob@x.com"), store.ErrNotFound)
	})

	mt.Run("tokens", func(mt *mtest.T) {
		s := New(mt.DB)
		ns := mt.DB.Name() + "." + tokensColl
		exp := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "account_id", Value: "a1"},
				{Key: "purpose", Value: "reset"},
				{Key: "token_id", Value: "jti"},
				{Key: "expires_at", Value: exp},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
		)

		require.NoError(mt, s.UpsertToken(ctx, &model.AuthToken{
			AccountID: "a1", Purpose: model.PurposeReset, TokenID: "jti", ExpiresAt: exp,
		}))

		got, err := s.FindToken(ctx, "a1", model.PurposeReset)
		require.NoError(mt, err)
		assert.Equal(mt, model.PurposeReset, got.Purpose)
		assert.Equal(mt, "jti", got.TokenID)
		assert.True(mt, exp.Equal(got.ExpiresAt))

		n, err := s.DeleteExpiredTokens(ctx, time.Now())
		require.NoError(mt, err)
		assert.EqualValues(mt, 3, n)
	})

	mt.Run("delete token", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		require.NoError(mt, s.DeleteToken(ctx, "a1", model.PurposeReset, "jti"))
		assert.ErrorIs(mt, s.DeleteToken(ctx, "a1", model.PurposeReset, "jti"), store.ErrNotFound)
	})

	mt.Run("list reminders", func(mt *mtest.T) {
		s := New(mt.DB)
		ns := mt.DB.Name() + "." + remindersColl
		at := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "r1"}, {Key: "owner_id", Value: "a1"}, {Key: "title", Value: "Exam"}, {Key: "major", Value: "Math"}, {Key: "time", Value: at}},
			bson.D{{Key: "_id", Value: "r2"}, {Key: "owner_id", Value: "a1"}, {Key: "title", Value: "Essay"}, {Key: "major", Value: "History"}, {Key: "time", Value: at.Add(time.Hour)}},
		))

		list, err := s.ListReminders(ctx, "a1")
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		assert.Equal(mt, "r1", list[0].ID)
		assert.True(mt, at.Equal(list[0].Time))
	})

	mt.Run("delete reminder not owned", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(mt, s.DeleteReminder(ctx, "b1", "r1"), store.ErrNotFound)
	})

	mt.Run("backend failure", func(mt *mtest.T) {
		s := New(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "boom",
		}))

		_, err := s.FindAccountByEmail(ctx, "ann@x.com")
		assert.ErrorIs(mt, err, store.ErrUnavailable)
	})
}
