package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/safetyfirst/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// Password rule violations. Each wraps models.ErrValidation.
var (
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, MinPasswordLength)
	ErrPasswordSpaces   = fmt.Errorf("%w: password must not contain spaces", models.ErrValidation)
	ErrPasswordCharset  = fmt.Errorf("%w: password must contain only English letters and digits", models.ErrValidation)
)

// ValidatePassword enforces the admin panel rules: at least eight
// characters, no whitespace, ASCII letters and digits only.
func ValidatePassword(p string) error {
	if len(p) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if strings.IndexFunc(p, unicode.IsSpace) >= 0 {
		return ErrPasswordSpaces
	}
	for _, r := range p {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ErrPasswordCharset
		}
	}
	return nil
}

func HashPassword(p string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether p matches hash.
func CheckPassword(hash, p string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(p))
	return err == nil
}
