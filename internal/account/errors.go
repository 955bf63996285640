package account

import (
	"errors"

	"github.com/jovaandres/rest-api-ev/internal/store"
	"github.com/jovaandres/rest-api-ev/internal/token"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateUsername  = errors.New("username already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyLoggedIn    = errors.New("already logged in")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrNotFound           = errors.New("account not found")
	ErrWeakPassword       = errors.New("password does not meet the length policy")

	ErrInvalidToken     = token.ErrInvalidToken
	ErrExpiredToken     = token.ErrExpiredToken
	ErrStoreUnavailable = store.ErrUnavailable
)
