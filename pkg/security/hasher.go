// Package security contains everything related to the security of user data
package security

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownHash = errors.New("unknown password hash format")

// Hasher turns a plaintext password into a salted one-way hash and checks
// a plaintext against a stored hash.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, encoded string) (bool, error)
}

// MultiHasher hashes new passwords with the primary algorithm and verifies
// any stored hash it recognises, so switching algorithms keeps old hashes
// usable.
type MultiHasher struct {
	primary Hasher
	bcrypt  *BcryptHash
	argon   *ArgonHash
}

// New returns a MultiHasher whose primary algorithm is kind ("bcrypt" or
// "argon2id").
func New(kind string, bcryptCost int) (*MultiHasher, error) {
	m := &MultiHasher{
		bcrypt: NewBcrypt(bcryptCost),
		argon:  NewArgon(),
	}

	switch kind {
	case "", "bcrypt":
		m.primary = m.bcrypt
	case "argon2id":
		m.primary = m.argon
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", kind)
	}

	return m, nil
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *MultiHasher) Compare(password, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return m.argon.Compare(password, encoded)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return m.bcrypt.Compare(password, encoded)
	default:
		return false, ErrUnknownHash
	}
}
