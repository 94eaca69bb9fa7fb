// Package auth implements password policy, hashing, and random tokens.
package auth

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the fixed bcrypt cost factor for new password hashes.
const HashCost = 10

// PasswordMinLength is the minimum accepted password length.
const PasswordMinLength = 8

var (
	lowerRe = regexp.MustCompile(`[a-z]`)
	upperRe = regexp.MustCompile(`[A-Z]`)
	digitRe = regexp.MustCompile(`\d`)
	// Any non-word character or underscore counts as a symbol.
	symbolRe = regexp.MustCompile(`[\W_]`)
)

// IsStrong reports whether a password meets the registration policy:
// at least PasswordMinLength characters with one lowercase letter, one
// uppercase letter, one digit, and one symbol.
func IsStrong(password string) bool {
	return len(password) >= PasswordMinLength &&
		lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		digitRe.MatchString(password) &&
		symbolRe.MatchString(password)
}

// HashPassword returns the bcrypt hash of a password at HashCost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether the password matches the stored hash.
// The comparison is delegated to bcrypt and is constant-time.
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
