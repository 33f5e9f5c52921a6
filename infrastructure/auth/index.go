package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
	"shiftguard.io/infrastructure/cryptography"
	"shiftguard.io/infrastructure/database/repository/cache"
	"shiftguard.io/infrastructure/logger"
)

func DecodeAuthToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SIGNING_KEY")), nil
	})
	if err != nil {
		if err == jwt.ErrSignatureInvalid {
			return nil, errors.New("invalid token signature used")
		}
		logger.Error("error decoding jwt", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	if !token.Valid {
		err := errors.New("invalid token used")
		logger.Error(err.Error())
		return nil, err
	}
	return token, nil
}

// codeStore is the slice of the redis cache the override codes need; tests
// swap in an in-memory implementation.
type codeStore interface {
	CreateEntry(key string, payload interface{}, ttl time.Duration) bool
	FindOne(key string) *string
}

var overrideCodes codeStore = &cache.Cache

func overrideCodeKey(managerID string) string {
	return fmt.Sprintf("%s-override-code", managerID)
}

// SetManagerOverrideCode stores the argon hash of a manager's override code.
// The plaintext code is never persisted.
func SetManagerOverrideCode(managerID string, code string) error {
	hashed, err := cryptography.CryptoHasher.HashString(code, nil)
	if err != nil {
		return err
	}
	if !overrideCodes.CreateEntry(overrideCodeKey(managerID), string(hashed), 0) {
		return errors.New("could not save override code")
	}
	return nil
}

// VerifyManagerOverrideCode checks a supplied override code against the
// stored hash. Geofence overrides are refused without a valid code.
func VerifyManagerOverrideCode(managerID string, code string) bool {
	stored := overrideCodes.FindOne(overrideCodeKey(managerID))
	if stored == nil {
		logger.Warning("override attempted with no code on file", logger.LoggerOptions{
			Key:  "managerID",
			Data: managerID,
		})
		return false
	}
	return cryptography.CryptoHasher.VerifyHashData(*stored, code)
}
