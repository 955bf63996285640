package model

import "time"

type TokenPurpose string

const (
	PurposeVerification TokenPurpose = "verification"
	PurposeReset        TokenPurpose = "reset"
	PurposeSession      TokenPurpose = "session"
)

// Persisted reports whether tokens of this purpose are tracked in the store.
// Session tokens are self-expiring and only ever denylisted.
func (p TokenPurpose) Persisted() bool {
	return p == PurposeVerification || p == PurposeReset
}

func (p TokenPurpose) Valid() bool {
	return p.Persisted() || p == PurposeSession
}

// AuthToken tracks the single live token of an account for a given purpose.
// Issuing a new one overwrites the row keyed by (AccountID, Purpose).
type AuthToken struct {
	ID        uint         `gorm:"primaryKey;autoIncrement" bson:"-"`
	AccountID string       `gorm:"uniqueIndex:idx_auth_tokens_account_purpose;not null" bson:"account_id"`
	Purpose   TokenPurpose `gorm:"uniqueIndex:idx_auth_tokens_account_purpose;not null" bson:"purpose"`
	TokenID   string       `gorm:"not null" bson:"token_id"`
	ExpiresAt time.Time    `gorm:"index" bson:"expires_at"`
	CreatedAt time.Time    `bson:"created_at"`
}
