// Package token issues and checks the signed claims used for email
// verification, password reset and login sessions.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	Email   string             `json:"email"`
	Purpose model.TokenPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

type Token struct {
	Raw    string
	Claims *Claims
}

// Denylist remembers revoked session token ids until they would have
// expired anyway.
type Denylist interface {
	Add(ctx context.Context, id string, ttl time.Duration) error
	Contains(ctx context.Context, id string) (bool, error)
}

type Issuer struct {
	secret []byte
	tokens store.TokenStore
	deny   Denylist
	now    func() time.Time
}

func NewIssuer(secret string, tokens store.TokenStore, deny Denylist) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		tokens: tokens,
		deny:   deny,
		now:    time.Now,
	}
}

// WithClock replaces the issuer's time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a new token for a. Verification and reset tokens are recorded
// per (account, purpose), superseding whatever was issued before.
func (i *Issuer) Issue(ctx context.Context, a *model.Account, purpose model.TokenPurpose, ttl time.Duration) (*Token, error) {
	const op = "token.Issue"

	if !purpose.Valid() {
		return nil, fmt.Errorf("%s: unknown purpose %q", op, purpose)
	}

	jti, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := i.now()
	claims := &Claims{
		Email:   a.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if purpose.Persisted() {
		err = i.tokens.UpsertToken(ctx, &model.AuthToken{
			AccountID: a.ID,
			Purpose:   purpose,
			TokenID:   jti,
			ExpiresAt: claims.ExpiresAt.Time,
			CreatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Token{Raw: raw, Claims: claims}, nil
}

// Verify decodes raw and checks it was issued for purpose and is still the
// live token for its account.
func (i *Issuer) Verify(ctx context.Context, raw string, purpose model.TokenPurpose) (*Claims, error) {
	const op = "token.Verify"

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Purpose != purpose || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if purpose.Persisted() {
		live, err := i.tokens.FindToken(ctx, claims.Subject, purpose)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrInvalidToken
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if live.TokenID != claims.ID {
			return nil, ErrInvalidToken
		}

		return claims, nil
	}

	revoked, err := i.deny.Contains(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Revoke invalidates the token described by c. Persisted tokens are
// consumed, and ErrInvalidToken means this token was already consumed or
// superseded. Session tokens are denylisted for the rest of their lifetime.
func (i *Issuer) Revoke(ctx context.Context, c *Claims) error {
	const op = "token.Revoke"

	if c.Purpose.Persisted() {
		err := i.tokens.DeleteToken(ctx, c.Subject, c.Purpose, c.ID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	if c.ExpiresAt == nil {
		return nil
	}

	ttl := c.ExpiresAt.Time.Sub(i.now())
	if ttl <= 0 {
		return nil
	}

	if err := i.deny.Add(ctx, c.ID, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
