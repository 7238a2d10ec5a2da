package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	tokenBytes = 32

	// BcryptCost matches the cost of hashes already in the users table.
	BcryptCost = 10

	// APIKeyPrefix marks product API keys so they can be told apart from session tokens.
	APIKeyPrefix = "tm_live_sk_"
)

func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateAPIKey returns a new product API key in plaintext.
func GenerateAPIKey() (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + token, nil
}

func IsAPIKey(token string) bool {
	return strings.HasPrefix(token, APIKeyPrefix)
}

// HashToken fingerprints an opaque high-entropy token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash is false for accounts without a password, e.g. OAuth-only users.
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
