package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is assigned to staff accounts created by a hospital; the
// account is flagged to change it on first login.
const DefaultPassword = "test@1234"

// ErrPasswordMismatch is returned by ComparePassword on a wrong password.
var ErrPasswordMismatch = errors.New("invalid credentials")

// HashPassword bcrypt-hashes plain. Values that are already bcrypt hashes are
// returned unchanged so records can be re-saved without double hashing.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password is required")
	}
	if IsHashed(plain) {
		return plain, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword checks plain against a stored bcrypt hash.
func ComparePassword(hash, plain string) error {
	if hash == "" || plain == "" {
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// IsHashed reports whether s looks like a bcrypt hash.
func IsHashed(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
