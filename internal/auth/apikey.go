package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	// APIKeyPrefix is the prefix for all API keys
	APIKeyPrefix = "okd_"
	// APIKeyLength is the number of random bytes in an API key
	APIKeyLength = 32
	// displayPrefixLength is how many random characters stay visible in listings
	displayPrefixLength = 8
)

var (
	// ErrAPIKeyNotFound is returned when an API key is not found
	ErrAPIKeyNotFound = errors.New("api key not found")
	// ErrAPIKeyRevoked is returned when an API key has been revoked or expired
	ErrAPIKeyRevoked = errors.New("api key has been revoked")
	// ErrAPIKeyInvalid is returned when an API key format is invalid
	ErrAPIKeyInvalid = errors.New("invalid api key format")
)

// GenerateAPIKey generates a secure random API key
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, APIKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(bytes), nil
}

// HashAPIKey creates a SHA-256 hash of an API key.
// Keys carry 256 bits of entropy, so an unsalted fast hash is enough for lookup.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// DisplayPrefix returns the non-secret part of a key shown in listings.
func DisplayPrefix(key string) string {
	n := len(APIKeyPrefix) + displayPrefixLength
	if len(key) < n {
		return key
	}
	return key[:n]
}

// ValidateAPIKeyFormat checks the prefix and length of a presented key.
func ValidateAPIKeyFormat(key string) error {
	if !strings.HasPrefix(key, APIKeyPrefix) || len(key) != len(APIKeyPrefix)+2*APIKeyLength {
		return ErrAPIKeyInvalid
	}
	if _, err := hex.DecodeString(key[len(APIKeyPrefix):]); err != nil {
		return ErrAPIKeyInvalid
	}
	return nil
}
