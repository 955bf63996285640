package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	d := NewMemoryDenylist()
	defer d.Close()
	ctx := context.Background()

	ok, err := d.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Add(ctx, "jti-1", time.Minute))

	ok, err = d.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisDenylist(t *testing.T) {
	db, mock := redismock.NewClientMock()
	d := NewRedisDenylist(db)
	ctx := context.Background()

	mock.ExpectSet("revoked_session:jti-1", "1", time.Minute).SetVal("OK")
	mock.ExpectExists("revoked_session:jti-1").SetVal(1)
	mock.ExpectExists("revoked_session:jti-2").SetVal(0)

	require.NoError(t, d.Add(ctx, "jti-1", time.Minute))

	ok, err := d.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Contains(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisDenylistError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	d := NewRedisDenylist(db)

	mock.ExpectExists("revoked_session:jti-1").SetErr(errors.New("connection refused"))

	_, err := d.Contains(context.Background(), "jti-1")
	assert.Error(t, err)
}
