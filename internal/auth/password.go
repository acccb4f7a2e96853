package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/solvefy/solvefy/internal/model"
)

// HashPassword returns a salted bcrypt hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the user's credential.
// Users still carrying a clear-text password are compared in constant time
// and flagged so the caller can store a hash instead.
func CheckPassword(u model.User, password string) (ok, upgrade bool) {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil, false
	}
	if u.LegacyPassword == "" {
		return false, false
	}
	match := subtle.ConstantTimeCompare([]byte(u.LegacyPassword), []byte(password)) == 1
	return match, match
}
