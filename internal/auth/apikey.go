package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const maxKeyLength = 72 // bcrypt limit

// ErrInvalidKey is returned for keys that do not match the configured hash.
var ErrInvalidKey = errors.New("invalid api key")

// KeyVerifier checks presented API keys against a bcrypt hash.
// The digest of the last accepted key is remembered so repeat requests skip bcrypt.
type KeyVerifier struct {
	hash []byte

	mu       sync.RWMutex
	accepted []byte
}

// NewKeyVerifier builds a verifier for hash. The hash must be a bcrypt hash.
func NewKeyVerifier(hash string) (*KeyVerifier, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("parse api key hash: %w", err)
	}
	return &KeyVerifier{hash: []byte(hash)}, nil
}

// Verify reports whether key matches the configured hash.
func (v *KeyVerifier) Verify(key string) error {
	if key == "" || len(key) > maxKeyLength {
		return ErrInvalidKey
	}

	digest := sha256.Sum256([]byte(key))
	v.mu.RLock()
	cached := v.accepted
	v.mu.RUnlock()
	if cached != nil && subtle.ConstantTimeCompare(cached, digest[:]) == 1 {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidKey
	}

	v.mu.Lock()
	v.accepted = digest[:]
	v.mu.Unlock()
	return nil
}

// HashKey returns the bcrypt hash to configure for key.
func HashKey(key string, cost int) (string, error) {
	if len(key) > maxKeyLength {
		return "", fmt.Errorf("api key exceeds maximum length of %d characters", maxKeyLength)
	}
	if len(key) < 16 {
		return "", errors.New("api key must be at least 16 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
