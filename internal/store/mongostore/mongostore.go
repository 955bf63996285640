// Package mongostore is the document backend. Accounts, tokens and
// reminders each live in their own collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsColl  = "users"
	tokensColl    = "tokens"
	remindersColl = "reminders"
)

type Store struct {
	client    *mongo.Client
	accounts  *mongo.Collection
	tokens    *mongo.Collection
	reminders *mongo.Collection
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{
		client:    db.Client(),
		accounts:  db.Collection(accountsColl),
		tokens:    db.Collection(tokensColl),
		reminders: db.Collection(remindersColl),
	}
}

// Open connects to uri, ensures the unique indexes exist and returns a
// store bound to database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	const op = "mongostore.Open"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	s := New(client.Database(database))
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_1")},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("username_1").
				SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
	})
	if err != nil {
		return fmt.Errorf("account indexes: %w", err)
	}

	_, err = s.tokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "purpose", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("token indexes: %w", err)
	}

	_, err = s.reminders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "time", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("reminder indexes: %w", err)
	}

	return nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	const op = "mongostore.FindAccountByEmail"

	var a model.Account
	if err := s.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&a); err != nil {
		return nil, wrap(op, err)
	}

	return &a, nil
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (*model.Account, error) {
	const op = "mongostore.FindAccountByID"

	var a model.Account
	if err := s.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, wrap(op, err)
	}

	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	const op = "mongostore.CreateAccount"

	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	if _, err := s.accounts.InsertOne(ctx, a); err != nil {
		return wrap(op, err)
	}

	return nil
}

func (s *Store) UpdateAccountPassword(ctx context.Context, email, hash string) error {
	const op = "mongostore.UpdateAccountPassword"

	return s.updateAccount(ctx, op, email, bson.M{"password_hash": hash})
}

func (s *Store) MarkAccountVerified(ctx context.Context, email string) error {
	const op = "mongostore.MarkAccountVerified"

	return s.updateAccount(ctx, op, email, bson.M{"verified": true})
}

func (s *Store) updateAccount(ctx context.Context, op, email string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()

	res, err := s.accounts.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": set})
	if err != nil {
		return wrap(op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) UpsertToken(ctx context.Context, t *model.AuthToken) error {
	const op = "mongostore.UpsertToken"

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.tokens.UpdateOne(ctx,
		bson.M{"account_id": t.AccountID, "purpose": t.Purpose},
		bson.M{"$set": bson.M{
			"token_id":   t.TokenID,
			"expires_at": t.ExpiresAt,
			"created_at": t.CreatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return wrap(op, err)
	}

	return nil
}

func (s *Store) FindToken(ctx context.Context, accountID string, purpose model.TokenPurpose) (*model.AuthToken, error) {
	const op = "mongostore.FindToken"

	var t model.AuthToken
	err := s.tokens.FindOne(ctx, bson.M{"account_id": accountID, "purpose": purpose}).Decode(&t)
	if err != nil {
		return nil, wrap(op, err)
	}

	return &t, nil
}

func (s *Store) DeleteToken(ctx context.Context, accountID string, purpose model.TokenPurpose, tokenID string) error {
	const op = "mongostore.DeleteToken"

	res, err := s.tokens.DeleteOne(ctx, bson.M{"account_id": accountID, "purpose": purpose, "token_id": tokenID})
	if err != nil {
		return wrap(op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	const op = "mongostore.DeleteExpiredTokens"

	res, err := s.tokens.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": before}})
	if err != nil {
		return 0, wrap(op, err)
	}

	return res.DeletedCount, nil
}

func (s *Store) CreateReminder(ctx context.Context, r *model.Reminder) error {
	const op = "mongostore.CreateReminder"

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	if _, err := s.reminders.InsertOne(ctx, r); err != nil {
		return wrap(op, err)
	}

	return nil
}

func (s *Store) ListReminders(ctx context.Context, ownerID string) ([]model.Reminder, error) {
	const op = "mongostore.ListReminders"

	cur, err := s.reminders.Find(ctx,
		bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "time", Value: 1}}),
	)
	if err != nil {
		return nil, wrap(op, err)
	}

	reminders := []model.Reminder{}
	if err := cur.All(ctx, &reminders); err != nil {
		return nil, wrap(op, err)
	}

	return reminders, nil
}

func (s *Store) FindReminder(ctx context.Context, ownerID, id string) (*model.Reminder, error) {
	const op = "mongostore.FindReminder"

	var r model.Reminder
	if err := s.reminders.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&r); err != nil {
		return nil, wrap(op, err)
	}

	return &r, nil
}

func (s *Store) UpdateReminder(ctx context.Context, r *model.Reminder) error {
	const op = "mongostore.UpdateReminder"

	res, err := s.reminders.UpdateOne(ctx,
		bson.M{"_id": r.ID, "owner_id": r.OwnerID},
		bson.M{"$set": bson.M{
			"title":       r.Title,
			"description": r.Description,
			"major":       r.Major,
			"time":        r.Time,
		}},
	)
	if err != nil {
		return wrap(op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteReminder(ctx context.Context, ownerID, id string) error {
	const op = "mongostore.DeleteReminder"

	res, err := s.reminders.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return wrap(op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}

	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func wrap(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		if strings.Contains(err.Error(), "username") {
			return fmt.Errorf("%s: %w", op, store.ErrDuplicateUsername)
		}
		return fmt.Errorf("%s: %w", op, store.ErrDuplicateEmail)
	default:
		return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
	}
}
