package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const hashCost = bcrypt.DefaultCost

var ErrEmptyPassword = errors.New("empty password")

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword returns nil only when password matches hash.
func ComparePassword(hash, password string) error {
	if hash == "" || password == "" {
		return ErrEmptyPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
