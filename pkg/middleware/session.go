package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jovaandres/rest-api-ev/internal/account"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AuthCookie = "auth_token"
	sessionKey = "session"
)

type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*account.Session, error)
}

// NewSessionMiddleware resolves the caller's session token, taken from the
// auth_token cookie or a Bearer header. When required is set, requests
// without a valid session are rejected with 401. Otherwise they continue
// anonymously.
func NewSessionMiddleware(a Authenticator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		raw := tokenFromRequest(c)
		if raw == "" {
			if required {
				abortUnauthenticated(c, requestID)
				return
			}
			c.Next()
			return
		}

		s, err := a.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if !errors.Is(err, account.ErrInvalidToken) && !errors.Is(err, account.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":     "Internal server error",
					"requestID": requestID,
				})

				zap.L().Error("Failed to authenticate session", zap.Error(err), zap.String("requestID", requestID))
				return
			}

			if required {
				abortUnauthenticated(c, requestID)
				return
			}
			c.Next()
			return
		}

		c.Set(sessionKey, s)
		c.Set("accountID", s.AccountID)
		c.Next()
	}
}

// SessionFrom returns the session attached by NewSessionMiddleware, or nil.
func SessionFrom(c *gin.Context) *account.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}

	s, _ := v.(*account.Session)
	return s
}

func tokenFromRequest(c *gin.Context) string {
	if v, err := c.Cookie(AuthCookie); err == nil && v != "" {
		return v
	}

	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}

	return ""
}

func abortUnauthenticated(c *gin.Context, requestID string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":     "User not authenticated",
		"requestID": requestID,
	})
}
