package identity

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordManager hashes and verifies credentials with bcrypt
type PasswordManager struct {
	cost int
}

// NewPasswordManager creates a password manager at the default bcrypt cost
func NewPasswordManager() *PasswordManager {
	return &PasswordManager{cost: bcrypt.DefaultCost}
}

// HashPassword returns the bcrypt hash of the given password
func (pm *PasswordManager) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), pm.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether the password matches the stored hash.
// A mismatch is not an error.
func (pm *PasswordManager) VerifyPassword(hashedPassword, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
	return true, nil
}
