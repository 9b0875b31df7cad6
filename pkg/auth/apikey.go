package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// KeyPrefix identifies agent API keys
	KeyPrefix = "gk_"
	// KeyLength is the number of random bytes in a key (32 bytes = 256 bits)
	KeyLength = 32

	saltLength = 16
	hashLength = 64
)

// ScryptParams are the cost parameters for key hashing
type ScryptParams struct {
	N int
	R int
	P int
}

// DefaultScryptParams are the interactive-login parameters recommended by
// the scrypt package documentation.
var DefaultScryptParams = ScryptParams{N: 1 << 14, R: 8, P: 1}

// deriveFunc matches scrypt.Key
type deriveFunc func(password, salt []byte, n, r, p, keyLen int) ([]byte, error)

// dummySalt stands in for an unparseable stored salt so malformed values
// still pay for a full derivation
var dummySalt = make([]byte, saltLength)

// CredentialHasher generates, hashes and verifies agent API keys
type CredentialHasher struct {
	params ScryptParams
	derive deriveFunc
}

// NewCredentialHasher creates a hasher with the default scrypt parameters
func NewCredentialHasher() *CredentialHasher {
	return NewCredentialHasherWithParams(DefaultScryptParams)
}

// NewCredentialHasherWithParams creates a hasher with custom scrypt parameters
func NewCredentialHasherWithParams(params ScryptParams) *CredentialHasher {
	return &CredentialHasher{params: params, derive: scrypt.Key}
}

// GenerateKey creates a new API key
// Format: gk_<base64url(32 random bytes)>
func (h *CredentialHasher) GenerateKey() (string, error) {
	randomBytes := make([]byte, KeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// Hash derives a storable "<salt>:<hash>" value for key using a fresh salt
func (h *CredentialHasher) Hash(key string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	derived, err := h.derive([]byte(key), salt, h.params.N, h.params.R, h.params.P, hashLength)
	if err != nil {
		return "", fmt.Errorf("failed to derive key hash: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(salt) + ":" + base64.RawURLEncoding.EncodeToString(derived), nil
}

// Verify reports whether key matches a stored hash. Every input, including a
// malformed stored value, runs one full derivation and a constant-time
// comparison. A malformed stored value never matches.
func (h *CredentialHasher) Verify(key, stored string) bool {
	salt, expected, wellFormed := parseStoredHash(stored)
	if !wellFormed {
		salt = dummySalt
		expected = make([]byte, hashLength)
	}

	derived, err := h.derive([]byte(key), salt, h.params.N, h.params.R, h.params.P, hashLength)
	if err != nil {
		return false
	}

	match := subtle.ConstantTimeCompare(derived, expected) == 1
	return wellFormed && match
}

// parseStoredHash splits "<salt>:<hash>". The hash must be hashLength bytes.
func parseStoredHash(stored string) (salt, expected []byte, ok bool) {
	saltPart, hashPart, found := strings.Cut(stored, ":")
	if !found || saltPart == "" || hashPart == "" {
		return nil, nil, false
	}

	salt, err := base64.RawURLEncoding.DecodeString(saltPart)
	if err != nil {
		return nil, nil, false
	}
	expected, err = base64.RawURLEncoding.DecodeString(hashPart)
	if err != nil || len(expected) != hashLength {
		return nil, nil, false
	}
	return salt, expected, true
}

// ValidateKeyFormat checks if a key has the correct format
func (h *CredentialHasher) ValidateKeyFormat(key string) error {
	if !HasKeyPrefix(key) {
		return fmt.Errorf("key must start with %q", KeyPrefix)
	}

	encodedPart := strings.TrimPrefix(key, KeyPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("key is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid key encoding: %w", err)
	}

	return nil
}

// HasKeyPrefix reports whether key carries the API key prefix
func HasKeyPrefix(key string) bool {
	return strings.HasPrefix(key, KeyPrefix)
}

// DisplayPrefix returns a loggable identifier for a key
func DisplayPrefix(key string) string {
	if !HasKeyPrefix(key) {
		return ""
	}
	encodedPart := strings.TrimPrefix(key, KeyPrefix)
	if len(encodedPart) >= 8 {
		return KeyPrefix + encodedPart[:8]
	}
	return KeyPrefix
}
