package sge

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// Character classes for temporary credentials. The filler set drops
// visually ambiguous characters (I, l, O, 0, 1) so a password read
// over the phone to a delegation office survives the trip.
const (
	passwordUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordLowercase = "abcdefghijklmnopqrstuvwxyz"
	passwordDigits    = "0123456789"
	passwordSymbols   = "!@#$%^&*"
	passwordFiller    = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789!@#$%^&*"
)

// MinPasswordLength is the policy minimum for every password in the
// system, generated or user-chosen.
const MinPasswordLength = 12

// GenerateTemporaryPassword produces a one-time credential of at
// least MinPasswordLength characters containing one character of each
// class, shuffled so no class sits at a fixed position. Randomness
// comes from crypto/rand; exhaustion of the source is unexpected and
// panics.
func GenerateTemporaryPassword(length int) string {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}

	chars := make([]byte, 0, length)
	chars = append(chars,
		passwordUppercase[randomIndex(len(passwordUppercase))],
		passwordLowercase[randomIndex(len(passwordLowercase))],
		passwordDigits[randomIndex(len(passwordDigits))],
		passwordSymbols[randomIndex(len(passwordSymbols))],
	)

	for len(chars) < length {
		chars = append(chars, passwordFiller[randomIndex(len(passwordFiller))])
	}

	// Fisher-Yates so the guaranteed-class characters land anywhere
	for i := len(chars) - 1; i > 0; i-- {
		j := randomIndex(i + 1)
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars)
}

func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("sge: crypto/rand unavailable: " + err.Error())
	}
	return int(v.Int64())
}

// ValidatePasswordPolicy checks a password against the complexity
// policy shared by the generator and the change-password flow:
// MinPasswordLength characters, at least one uppercase, one
// lowercase, one digit, and one punctuation character.
func ValidatePasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordPolicyViolation.WithMetadata(map[string]any{
			"reason": "too short",
			"min":    MinPasswordLength,
		})
	}

	checks := []struct {
		class string
		ok    bool
	}{
		{"uppercase", strings.ContainsAny(password, passwordUppercase)},
		{"lowercase", strings.ContainsAny(password, passwordLowercase)},
		{"digit", strings.ContainsAny(password, passwordDigits)},
		{"symbol", strings.ContainsAny(password, `!@#$%^&*(),.?":{}|<>`)},
	}

	for _, c := range checks {
		if !c.ok {
			return ErrPasswordPolicyViolation.WithMetadata(map[string]any{
				"reason": "missing " + c.class,
			})
		}
	}

	return nil
}

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", goerrors.New("password must not be empty", goerrors.CategoryValidation)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(h), nil
}

// ComparePasswordAndHash will validate the given cleartext password
// matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password hash")
	}
	return nil
}
