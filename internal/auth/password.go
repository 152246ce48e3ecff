package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/Tammyv123/SwachhBuddy-sub000/internal/apperr"
)

// PasswordHasher is the minimal hashing surface the identity service
// depends on, abstract so the algorithm can be swapped without touching
// business logic.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher is the default implementation. Cost 0 falls back to the
// library default.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

const passwordMinLength = 8

// passwordSymbols is the punctuation set at least one character must
// come from.
const passwordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

// ValidatePassword enforces the strength policy applied at registration
// and password change. It reports every unmet rule, not just the first.
func ValidatePassword(password string) error {
	var unmet []string
	if len(password) < passwordMinLength {
		unmet = append(unmet, "must be at least 8 characters long")
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
		if strings.ContainsRune(passwordSymbols, r) {
			symbol = true
		}
	}
	if !lower {
		unmet = append(unmet, "must contain a lowercase letter")
	}
	if !upper {
		unmet = append(unmet, "must contain an uppercase letter")
	}
	if !digit {
		unmet = append(unmet, "must contain a digit")
	}
	if !symbol {
		unmet = append(unmet, "must contain a symbol")
	}
	if len(unmet) > 0 {
		return apperr.WeakPassword(unmet)
	}
	return nil
}
