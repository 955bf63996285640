// Package memstore keeps everything in process memory. Used for local
// development and tests.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store"
)

type tokenKey struct {
	accountID string
	purpose   model.TokenPurpose
}

type Store struct {
	mu sync.RWMutex

	accounts  map[string]*model.Account // by id
	byEmail   map[string]string
	byName    map[string]string
	tokens    map[tokenKey]*model.AuthToken
	reminders map[string]*model.Reminder

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:  make(map[string]*model.Account),
		byEmail:   make(map[string]string),
		byName:    make(map[string]string),
		tokens:    make(map[tokenKey]*model.AuthToken),
		reminders: make(map[string]*model.Reminder),
		now:       time.Now,
	}
}

func (s *Store) FindAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}

	a := *s.accounts[id]
	return &a, nil
}

func (s *Store) FindAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	cp := *a
	return &cp, nil
}

func (s *Store) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[a.Email]; ok {
		return store.ErrDuplicateEmail
	}
	if _, ok := s.byName[strings.ToLower(a.Username)]; ok {
		return store.ErrDuplicateUsername
	}

	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now

	cp := *a
	s.accounts[a.ID] = &cp
	s.byEmail[a.Email] = a.ID
	s.byName[strings.ToLower(a.Username)] = a.ID
	return nil
}

func (s *Store) UpdateAccountPassword(_ context.Context, email, hash string) error {
	return s.mutate(email, func(a *model.Account) { a.PasswordHash = hash })
}

func (s *Store) MarkAccountVerified(_ context.Context, email string) error {
	return s.mutate(email, func(a *model.Account) { a.Verified = true })
}

func (s *Store) mutate(email string, fn func(a *model.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return store.ErrNotFound
	}

	a := s.accounts[id]
	fn(a)
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) UpsertToken(_ context.Context, t *model.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.tokens[tokenKey{t.AccountID, t.Purpose}] = &cp
	return nil
}

func (s *Store) FindToken(_ context.Context, accountID string, purpose model.TokenPurpose) (*model.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[tokenKey{accountID, purpose}]
	if !ok {
		return nil, store.ErrNotFound
	}

	cp := *t
	return &cp, nil
}

func (s *Store) DeleteToken(_ context.Context, accountID string, purpose model.TokenPurpose, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := tokenKey{accountID, purpose}
	if t, ok := s.tokens[k]; !ok || t.TokenID != tokenID {
		return store.ErrNotFound
	}

	delete(s.tokens, k)
	return nil
}

func (s *Store) DeleteExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, t := range s.tokens {
		if t.ExpiresAt.Before(before) {
			delete(s.tokens, k)
			n++
		}
	}

	return n, nil
}

func (s *Store) CreateReminder(_ context.Context, r *model.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	cp := *r
	s.reminders[r.ID] = &cp
	return nil
}

func (s *Store) ListReminders(_ context.Context, ownerID string) ([]model.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Reminder{}
	for _, r := range s.reminders {
		if r.OwnerID == ownerID {
			out = append(out, *r)
		}
	}

	slices.SortFunc(out, func(a, b model.Reminder) int { return a.Time.Compare(b.Time) })
	return out, nil
}

func (s *Store) FindReminder(_ context.Context, ownerID, id string) (*model.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reminders[id]
	if !ok || r.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}

	cp := *r
	return &cp, nil
}

func (s *Store) UpdateReminder(_ context.Context, r *model.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.reminders[r.ID]
	if !ok || old.OwnerID != r.OwnerID {
		return store.ErrNotFound
	}

	cp := *r
	cp.CreatedAt = old.CreatedAt
	s.reminders[r.ID] = &cp
	return nil
}

func (s *Store) DeleteReminder(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders[id]
	if !ok || r.OwnerID != ownerID {
		return store.ErrNotFound
	}

	delete(s.reminders, id)
	return nil
}

func (s *Store) Close() error { return nil }
