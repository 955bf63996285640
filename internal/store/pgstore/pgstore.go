// Package pgstore is the PostgreSQL backend written against database/sql
// with the pgx driver. Schema changes are applied with goose.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store"
	"github.com/jovaandres/rest-api-ev/internal/store/pgstore/migrations"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	uniqueViolation     = "23505"
	usernameConstraint  = "accounts_username_key"
	accountColumns      = "id, name, username, email, password_hash, verified, created_at, updated_at"
	tokenColumns        = "account_id, purpose, token_id, expires_at, created_at"
	reminderColumns     = "id, owner_id, title, description, major, time, created_at"
	qFindAccountByEmail = "SELECT " + accountColumns + " FROM accounts WHERE email = $1"
	qFindAccountByID    = "SELECT " + accountColumns + " FROM accounts WHERE id = $1"
	qCreateAccount      = "INSERT INTO accounts (id, name, username, email, password_hash, verified) VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at"
	qUpdatePassword     = "UPDATE accounts SET password_hash = $2, updated_at = now() WHERE email = $1"
	qMarkVerified       = "UPDATE accounts SET verified = TRUE, updated_at = now() WHERE email = $1"
	qUpsertToken        = "INSERT INTO auth_tokens (" + tokenColumns + ") VALUES ($1, $2, $3, $4, $5) ON CONFLICT (account_id, purpose) DO UPDATE SET token_id = EXCLUDED.token_id, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at"
	qFindToken          = "SELECT " + tokenColumns + " FROM auth_tokens WHERE account_id = $1 AND purpose = $2"
	qDeleteToken        = "DELETE FROM auth_tokens WHERE account_id = $1 AND purpose = $2 AND token_id = $3"
	qDeleteExpired      = "DELETE FROM auth_tokens WHERE expires_at < $1"
	qCreateReminder     = "INSERT INTO reminders (id, owner_id, title, description, major, time, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)"
	qListReminders      = "SELECT " + reminderColumns + " FROM reminders WHERE owner_id = $1 ORDER BY time ASC"
	qFindReminder       = "SELECT " + reminderColumns + " FROM reminders WHERE id = $1 AND owner_id = $2"
	qUpdateReminder     = "UPDATE reminders SET title = $3, description = $4, major = $5, time = $6 WHERE id = $1 AND owner_id = $2"
	qDeleteReminder     = "DELETE FROM reminders WHERE id = $1 AND owner_id = $2"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and brings the schema up to date.
func Open(ctx context.Context, dsn string) (*Store, error) {
	const op = "pgstore.Open"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: db open error: %w", op, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: migration error: %w", op, err)
	}

	return New(db), nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*model.Account, error) {
	var a model.Account

	err := row.Scan(&a.ID, &a.Name, &a.Username, &a.Email, &a.PasswordHash, &a.Verified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	const op = "pgstore.FindAccountByEmail"

	a, err := scanAccount(s.db.QueryRowContext(ctx, qFindAccountByEmail, email))
	if err != nil {
		return nil, wrap(op, err)
	}

	return a, nil
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (*model.Account, error) {
	const op = "pgstore.FindAccountByID"

	a, err := scanAccount(s.db.QueryRowContext(ctx, qFindAccountByID, id))
	if err != nil {
		return nil, wrap(op, err)
	}

	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	const op = "pgstore.CreateAccount"

	err := s.db.QueryRowContext(ctx, qCreateAccount,
		a.ID, a.Name, a.Username, a.Email, a.PasswordHash, a.Verified,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return wrap(op, err)
	}

	return nil
}

func (s *Store) UpdateAccountPassword(ctx context.Context, email, hash string) error {
	const op = "pgstore.UpdateAccountPassword"

	return s.execOne(ctx, op, qUpdatePassword, email, hash)
}

func (s *Store) MarkAccountVerified(ctx context.Context, email string) error {
	const op = "pgstore.MarkAccountVerified"

	return s.execOne(ctx, op, qMarkVerified, email)
}

// execOne runs a statement that must touch at least one row.
func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) UpsertToken(ctx context.Context, t *model.AuthToken) error {
	const op = "pgstore.UpsertToken"

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, qUpsertToken, t.AccountID, string(t.Purpose), t.TokenID, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return wrap(op, err)
	}

	return nil
}

func (s *Store) FindToken(ctx context.Context, accountID string, purpose model.TokenPurpose) (*model.AuthToken, error) {
	const op = "pgstore.FindToken"

	var (
		t model.AuthToken
		p string
	)

	err := s.db.QueryRowContext(ctx, qFindToken, accountID, string(purpose)).
		Scan(&t.AccountID, &p, &t.TokenID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	t.Purpose = model.TokenPurpose(p)

	return &t, nil
}

func (s *Store) DeleteToken(ctx context.Context, accountID string, purpose model.TokenPurpose, tokenID string) error {
	const op = "pgstore.DeleteToken"

	return s.execOne(ctx, op, qDeleteToken, accountID, string(purpose), tokenID)
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "pgstore.DeleteExpiredTokens"

	res, err := s.db.ExecContext(ctx, qDeleteExpired, before)
	if err != nil {
		return 0, wrap(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(op, err)
	}

	return n, nil
}

func scanReminder(row scanner) (*model.Reminder, error) {
	var r model.Reminder

	if err := row.Scan(&r.ID, &r.OwnerID, &r.Title, &r.Description, &r.Major, &r.Time, &r.CreatedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

func (s *Store) CreateReminder(ctx context.Context, r *model.Reminder) error {
	const op = "pgstore.CreateReminder"

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, qCreateReminder, r.ID, r.OwnerID, r.Title, r.Description, r.Major, r.Time, r.CreatedAt)
	if err != nil {
		return wrap(op, err)
	}

	return nil
}

func (s *Store) ListReminders(ctx context.Context, ownerID string) ([]model.Reminder, error) {
	const op = "pgstore.ListReminders"

	rows, err := s.db.QueryContext(ctx, qListReminders, ownerID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	reminders := []model.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		reminders = append(reminders, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}

	return reminders, nil
}

func (s *Store) FindReminder(ctx context.Context, ownerID, id string) (*model.Reminder, error) {
	const op = "pgstore.FindReminder"

	r, err := scanReminder(s.db.QueryRowContext(ctx, qFindReminder, id, ownerID))
	if err != nil {
		return nil, wrap(op, err)
	}

	return r, nil
}

func (s *Store) UpdateReminder(ctx context.Context, r *model.Reminder) error {
	const op = "pgstore.UpdateReminder"

	return s.execOne(ctx, op, qUpdateReminder, r.ID, r.OwnerID, r.Title, r.Description, r.Major, r.Time)
}

func (s *Store) DeleteReminder(ctx context.Context, ownerID, id string) error {
	const op = "pgstore.DeleteReminder"

	return s.execOne(ctx, op, qDeleteReminder, id, ownerID)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == usernameConstraint {
			return fmt.Errorf("%s: %w", op, store.ErrDuplicateUsername)
		}
		return fmt.Errorf("%s: %w", op, store.ErrDuplicateEmail)
	}

	return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
}
