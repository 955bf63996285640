package validators

import "errors"

const (
	MinPasswordLength = 8
	// bcrypt refuses anything longer
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes long")
	ErrPasswordEmpty    = errors.New("no password provided")
)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len([]rune(p)) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	if len(p) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	return nil
}
