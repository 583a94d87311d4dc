package domain

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

// SupportAgent is a staff account allowed to act on behalf of users.
type SupportAgent struct {
	ID             string
	Email          string
	FullName       string
	HashedPassword string
	IsActive       bool
	CreatedAt      time.Time
}

// CheckPassword compares a plaintext password with the stored hash.
func (a *SupportAgent) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.HashedPassword), []byte(password)) == nil
}

// HashPassword hashes a plaintext password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", apperrors.ErrPasswordRequired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
