// Package account implements the account lifecycle: registration, login,
// logout, email verification and password reset.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/service"
	"github.com/jovaandres/rest-api-ev/internal/store"
	"github.com/jovaandres/rest-api-ev/internal/token"
	"github.com/jovaandres/rest-api-ev/pkg/security"
	"github.com/jovaandres/rest-api-ev/validators"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

type Config struct {
	// Origin of the frontend, used to build the links sent by mail.
	Origin          string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	SessionTTL      time.Duration
	// ConcealAccounts makes request-verification and request-reset answer
	// unknown emails the same way as known ones.
	ConcealAccounts bool
	NotifyTimeout   time.Duration
}

func (c *Config) setDefaults() {
	if c.VerificationTTL <= 0 {
		c.VerificationTTL = time.Hour
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = time.Hour
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * 24 * time.Hour
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 30 * time.Second
	}
	c.Origin = strings.TrimRight(c.Origin, "/")
}

type Manager struct {
	accounts store.AccountStore
	issuer   *token.Issuer
	hasher   security.Hasher
	notifier service.Notifier
	cfg      Config

	pending conc.WaitGroup

	dummyOnce sync.Once
	dummyHash string
}

func NewManager(accounts store.AccountStore, issuer *token.Issuer, hasher security.Hasher, notifier service.Notifier, cfg Config) *Manager {
	cfg.setDefaults()

	return &Manager{
		accounts: accounts,
		issuer:   issuer,
		hasher:   hasher,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Close waits for notifications that are still being sent.
func (m *Manager) Close() {
	if r := m.pending.WaitAndRecover(); r != nil {
		zap.L().Error("Notification panicked", zap.Error(r.AsError()))
	}
}

type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

type Registration struct {
	Account *model.Account
	// Session is nil if the account was created but no session could be
	// started.
	Session *token.Token
}

func (m *Manager) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	const op = "account.Register"

	email := store.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	username := strings.TrimSpace(in.Username)

	if name == "" || username == "" || validators.EmailValidator(email) != nil {
		return nil, ErrInvalidInput
	}
	if validators.PasswordValidator(in.Password) != nil {
		return nil, ErrWeakPassword
	}

	_, err := m.accounts.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("%s: generate id: %w", op, err)
	}

	a := &model.Account{
		ID:           id,
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	if err := m.accounts.CreateAccount(ctx, a); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		case errors.Is(err, store.ErrDuplicateUsername):
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The account exists from here on. Failing to mail or to start a
	// session must not turn the registration into an error: the user can
	// ask for a new link or log in.
	if err := m.sendVerification(ctx, a); err != nil {
		zap.L().Error("Failed to issue verification token", zap.Error(err), zap.String("accountID", a.ID))
	}

	reg := &Registration{Account: a}

	sess, err := m.issuer.Issue(ctx, a, model.PurposeSession, m.cfg.SessionTTL)
	if err != nil {
		zap.L().Error("Failed to start session after registration", zap.Error(err), zap.String("accountID", a.ID))
		return reg, nil
	}
	reg.Session = sess

	return reg, nil
}

// Login checks the credentials and starts a new session. Unknown emails and
// wrong passwords fail with the same error.
func (m *Manager) Login(ctx context.Context, current *Session, email, password string) (*model.Account, *token.Token, error) {
	const op = "account.Login"

	if current != nil {
		return nil, nil, ErrAlreadyLoggedIn
	}

	a, err := m.accounts.FindAccountByEmail(ctx, store.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Keep the response time close to a real comparison.
			m.hasher.Compare(password, m.fakeHash())
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := m.hasher.Compare(password, a.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: compare password: %w", op, err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := m.issuer.Issue(ctx, a, model.PurposeSession, m.cfg.SessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, sess, nil
}

// Logout revokes the session. Without a session it does nothing.
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	const op = "account.Logout"

	if s == nil || s.Claims == nil {
		return nil
	}

	if err := m.issuer.Revoke(ctx, s.Claims); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Authenticate resolves a raw session token into a Session.
func (m *Manager) Authenticate(ctx context.Context, raw string) (*Session, error) {
	claims, err := m.issuer.Verify(ctx, raw, model.PurposeSession)
	if err != nil {
		return nil, err
	}

	return newSession(claims), nil
}

func (m *Manager) GetAuth(ctx context.Context, s *Session) (*model.Account, error) {
	const op = "account.GetAuth"

	if s == nil {
		return nil, ErrUnauthenticated
	}

	a, err := m.accounts.FindAccountByID(ctx, s.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func (m *Manager) RequestVerification(ctx context.Context, email string) error {
	const op = "account.RequestVerification"

	a, err := m.accounts.FindAccountByEmail(ctx, store.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if m.cfg.ConcealAccounts {
				return nil
			}
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if a.Verified {
		if m.cfg.ConcealAccounts {
			return nil
		}
		return ErrAlreadyVerified
	}

	if err := m.sendVerification(ctx, a); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Verify marks the account verified if raw is its live verification token
// and was issued for email.
func (m *Manager) Verify(ctx context.Context, email, raw string) error {
	const op = "account.Verify"

	claims, err := m.issuer.Verify(ctx, raw, model.PurposeVerification)
	if err != nil {
		return tokenError(op, err)
	}

	if claims.Email != store.NormalizeEmail(email) {
		return ErrInvalidToken
	}

	// Consuming first means a token that raced another request or was
	// superseded meanwhile is rejected.
	if err := m.issuer.Revoke(ctx, claims); err != nil {
		return tokenError(op, err)
	}

	if err := m.accounts.MarkAccountVerified(ctx, claims.Email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Manager) RequestReset(ctx context.Context, email string) error {
	const op = "account.RequestReset"

	a, err := m.accounts.FindAccountByEmail(ctx, store.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if m.cfg.ConcealAccounts {
				return nil
			}
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	tok, err := m.issuer.Issue(ctx, a, model.PurposeReset, m.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.notify(ctx, service.Message{
		Kind: service.MailReset,
		To:   a.Email,
		Name: a.Name,
		Link: m.link("reset", a.Email, tok.Raw),
	})

	return nil
}

type ChangePasswordInput struct {
	Email       string
	Token       string
	NewPassword string
}

// ChangePassword sets a new password using a reset token. The token is
// consumed before the password is written so it can never be replayed.
func (m *Manager) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	const op = "account.ChangePassword"

	if validators.PasswordValidator(in.NewPassword) != nil {
		return ErrWeakPassword
	}

	claims, err := m.issuer.Verify(ctx, in.Token, model.PurposeReset)
	if err != nil {
		return tokenError(op, err)
	}

	if claims.Email != store.NormalizeEmail(in.Email) {
		return ErrInvalidToken
	}

	hash, err := m.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: hash password: %w", op, err)
	}

	if err := m.issuer.Revoke(ctx, claims); err != nil {
		return tokenError(op, err)
	}

	if err := m.accounts.UpdateAccountPassword(ctx, claims.Email, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Manager) sendVerification(ctx context.Context, a *model.Account) error {
	tok, err := m.issuer.Issue(ctx, a, model.PurposeVerification, m.cfg.VerificationTTL)
	if err != nil {
		return err
	}

	m.notify(ctx, service.Message{
		Kind: service.MailVerification,
		To:   a.Email,
		Name: a.Name,
		Link: m.link("verify", a.Email, tok.Raw),
	})

	return nil
}

// notify sends msg in the background. Failures are logged and never reach
// the caller.
func (m *Manager) notify(ctx context.Context, msg service.Message) {
	ctx = context.WithoutCancel(ctx)

	m.pending.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, m.cfg.NotifyTimeout)
		defer cancel()

		if err := m.notifier.Notify(ctx, msg); err != nil {
			zap.L().Error("Failed to send notification",
				zap.Error(err),
				zap.String("kind", string(msg.Kind)),
				zap.String("to", msg.To),
			)
		}
	})
}

func (m *Manager) link(kind, email, raw string) string {
	return fmt.Sprintf("%s/%s/%s/%s", m.cfg.Origin, kind, url.PathEscape(email), raw)
}

func (m *Manager) fakeHash() string {
	m.dummyOnce.Do(func() {
		h, err := m.hasher.Hash("not-a-real-password")
		if err != nil {
			zap.L().Warn("Failed to prepare dummy hash", zap.Error(err))
		}
		m.dummyHash = h
	})

	return m.dummyHash
}

func tokenError(op string, err error) error {
	if errors.Is(err, token.ErrInvalidToken) || errors.Is(err, token.ErrExpiredToken) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
