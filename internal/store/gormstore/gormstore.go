// Package gormstore is the relational backend built on gorm. It serves both
// SQLite and PostgreSQL through the matching gorm dialector.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const usernameIndex = "CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username_lower ON accounts (LOWER(username))"

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects through the given dialector and migrates every table.
func Open(d gorm.Dialector) (*Store, error) {
	const op = "gormstore.Open"

	db, err := gorm.Open(d, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// SQLite allows a single writer, and every new connection to :memory:
	// would see an empty database.
	if d.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(model.Account{}, model.AuthToken{}, model.Reminder{}); err != nil {
		return nil, fmt.Errorf("%s: failed to automigrate tables, %w", op, err)
	}

	// Usernames are unique regardless of case. Both dialects accept an
	// expression index.
	if err := db.Exec(usernameIndex).Error; err != nil {
		return nil, fmt.Errorf("%s: failed to create username index, %w", op, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	const op = "gormstore.FindAccountByEmail"

	var a model.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, wrap(op, err)
	}

	return &a, nil
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (*model.Account, error) {
	const op = "gormstore.FindAccountByID"

	var a model.Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, wrap(op, err)
	}

	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	const op = "gormstore.CreateAccount"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found bool

		err := tx.Model(model.Account{}).
			Select("count(*) > 0").
			Where("email = ?", a.Email).
			Scan(&found).
			Error
		if err != nil {
			return err
		}
		if found {
			return store.ErrDuplicateEmail
		}

		err = tx.Model(model.Account{}).
			Select("count(*) > 0").
			Where("LOWER(username) = LOWER(?)", a.Username).
			Scan(&found).
			Error
		if err != nil {
			return err
		}
		if found {
			return store.ErrDuplicateUsername
		}

		return tx.Create(a).Error
	})
	if err != nil {
		// A concurrent insert can still slip past the pre-check, the unique
		// indexes catch it.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.duplicateOf(ctx, op, a)
		}
		return wrap(op, err)
	}

	return nil
}

// duplicateOf tells which unique field of a is already taken.
func (s *Store) duplicateOf(ctx context.Context, op string, a *model.Account) error {
	var taken bool

	err := s.db.WithContext(ctx).
		Model(model.Account{}).
		Select("count(*) > 0").
		Where("email = ?", a.Email).
		Scan(&taken).
		Error
	if err != nil {
		return wrap(op, err)
	}
	if taken {
		return fmt.Errorf("%s: %w", op, store.ErrDuplicateEmail)
	}

	return fmt.Errorf("%s: %w", op, store.ErrDuplicateUsername)
}

func (s *Store) UpdateAccountPassword(ctx context.Context, email, hash string) error {
	const op = "gormstore.UpdateAccountPassword"

	return s.updateAccount(ctx, op, email, "password_hash", hash)
}

func (s *Store) MarkAccountVerified(ctx context.Context, email string) error {
	const op = "gormstore.MarkAccountVerified"

	return s.updateAccount(ctx, op, email, "verified", true)
}

func (s *Store) updateAccount(ctx context.Context, op, email, column string, value any) error {
	r := s.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("email = ?", email).
		Update(column, value)
	if r.Error != nil {
		return wrap(op, r.Error)
	}
	if r.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) UpsertToken(ctx context.Context, t *model.AuthToken) error {
	const op = "gormstore.UpsertToken"

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "purpose"}},
			DoUpdates: clause.AssignmentColumns([]string{"token_id", "expires_at", "created_at"}),
		}).
		Create(t).
		Error
	if err != nil {
		return wrap(op, err)
	}

	return nil
}

func (s *Store) FindToken(ctx context.Context, accountID string, purpose model.TokenPurpose) (*model.AuthToken, error) {
	const op = "gormstore.FindToken"

	var t model.AuthToken
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND purpose = ?", accountID, purpose).
		First(&t).
		Error
	if err != nil {
		return nil, wrap(op, err)
	}

	return &t, nil
}

func (s *Store) DeleteToken(ctx context.Context, accountID string, purpose model.TokenPurpose, tokenID string) error {
	const op = "gormstore.DeleteToken"

	r := s.db.WithContext(ctx).
		Where("account_id = ? AND purpose = ? AND token_id = ?", accountID, purpose, tokenID).
		Delete(&model.AuthToken{})
	if r.Error != nil {
		return wrap(op, r.Error)
	}
	if r.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "gormstore.DeleteExpiredTokens"

	r := s.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&model.AuthToken{})
	if r.Error != nil {
		return 0, wrap(op, r.Error)
	}

	return r.RowsAffected, nil
}

func (s *Store) CreateReminder(ctx context.Context, r *model.Reminder) error {
	const op = "gormstore.CreateReminder"

	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return wrap(op, err)
	}

	return nil
}

func (s *Store) ListReminders(ctx context.Context, ownerID string) ([]model.Reminder, error) {
	const op = "gormstore.ListReminders"

	reminders := []model.Reminder{}
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("time asc").
		Find(&reminders).
		Error
	if err != nil {
		return nil, wrap(op, err)
	}

	return reminders, nil
}

func (s *Store) FindReminder(ctx context.Context, ownerID, id string) (*model.Reminder, error) {
	const op = "gormstore.FindReminder"

	var r model.Reminder
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&r).
		Error
	if err != nil {
		return nil, wrap(op, err)
	}

	return &r, nil
}

func (s *Store) UpdateReminder(ctx context.Context, r *model.Reminder) error {
	const op = "gormstore.UpdateReminder"

	res := s.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ? AND owner_id = ?", r.ID, r.OwnerID).
		Updates(map[string]any{
			"title":       r.Title,
			"description": r.Description,
			"major":       r.Major,
			"time":        r.Time,
		})
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteReminder(ctx context.Context, ownerID, id string) error {
	const op = "gormstore.DeleteReminder"

	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&model.Reminder{})
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func wrap(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, store.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicateUsername):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
	}
}
