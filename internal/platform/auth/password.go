package auth

import (
	"crypto/subtle"
	"errors"

	"umnico/internal/platform/config"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckAdmin verifies credentials against the configured admin account.
func CheckAdmin(cfg config.AdminConfig, username, password string) error {
	if cfg.PasswordHash == "" {
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) != 1 {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
