// Package model defines the records shared by every storage backend
package model

import "time"

// Account is a registered user identity. Email is always stored trimmed
// and lower-cased so uniqueness is case-insensitive. Username keeps its
// case but every backend enforces a case-insensitive unique index on it.
type Account struct {
	ID           string    `gorm:"primaryKey;size:16" json:"id" bson:"_id"`
	Name         string    `gorm:"not null" json:"name" bson:"name"`
	Username     string    `gorm:"not null" json:"username" bson:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash string    `gorm:"not null" json:"-" bson:"password_hash"`
	Verified     bool      `gorm:"default:false" json:"verified" bson:"verified"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}
