package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrOperatorLoginDisabled is returned when no operator key hash is configured.
var ErrOperatorLoginDisabled = errors.New("operator login disabled")

// HashOperatorKey hashes a key for AUTH_OPERATOR_KEY_HASH.
func HashOperatorKey(key string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareOperatorKey verifies a presented key against the configured hash.
func CompareOperatorKey(hashed, plain string) error {
	if hashed == "" {
		return ErrOperatorLoginDisabled
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
