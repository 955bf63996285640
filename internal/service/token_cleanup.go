package service

import (
	"context"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/store"

	"go.uber.org/zap"
)

// TokenCleanup periodically deletes verification and reset tokens that
// expired. It returns when ctx is cancelled.
func TokenCleanup(ctx context.Context, t time.Duration, tokens store.TokenStore) {
	ticker := time.NewTicker(t)
	defer ticker.Stop()

	zap.L().Debug("Token cleanup attached", zap.Duration("tick_every", t))

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := tokens.DeleteExpiredTokens(ctx, now)
			if err != nil {
				zap.L().Error("Failed to cleanup expired tokens", zap.Error(err))
				continue
			}

			if n > 0 {
				zap.L().Debug("Cleaned up expired tokens", zap.Int64("count", n))
			}
		}
	}
}
