package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jovaandres/rest-api-ev/internal/account"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct {
	sessions map[string]*account.Session
	err      error
}

func (s stubAuth) Authenticate(_ context.Context, raw string) (*account.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	if sess, ok := s.sessions[raw]; ok {
		return sess, nil
	}
	return nil, account.ErrInvalidToken
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(NewRequestIDMiddleware())
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) {
		id := ""
		if s := SessionFrom(c); s != nil {
			id = s.AccountID
		}
		c.String(http.StatusOK, id)
	})
	r.POST("/", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

var auth = stubAuth{sessions: map[string]*account.Session{
	"good": {AccountID: "acc1", Email: "ann@x.com"},
}}

func TestRequestID(t *testing.T) {
	r := newEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, w.Header().Get(RequestIDHeader), 10)
}

func TestRequiredSession(t *testing.T) {
	r := newEngine(NewSessionMiddleware(auth, true))

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized, "User not authenticated"},
		{"bad cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AuthCookie, Value: "bad"}) }, http.StatusUnauthorized, "User not authenticated"},
		{"good cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AuthCookie, Value: "good"}) }, http.StatusOK, "acc1"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK, "acc1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestOptionalSession(t *testing.T) {
	r := newEngine(NewSessionMiddleware(auth, false))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: "expired"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: "good"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "acc1", w.Body.String())
}

func TestSessionStoreFailure(t *testing.T) {
	r := newEngine(NewSessionMiddleware(stubAuth{err: errors.New("db down")}, false))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewRateLimiter(ctx, RateLimiterConfig{RequestsPerSecond: 0.001, Burst: 2})
	r := newEngine(l.Middleware())

	codes := []int{}
	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestBodySizeLimiter(t *testing.T) {
	r := newEngine(BodySizeLimiter(8))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("definitely too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
