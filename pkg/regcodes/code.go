package regcodes

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"regexp"
	"time"
)

// CodePrefix begins every registration code
const CodePrefix = "RC-"

var codePattern = regexp.MustCompile(`^RC-[A-F0-9]{8}-[A-F0-9]{8}$`)

// GenerateCode creates a new registration code
// Format: RC-XXXXXXXX-XXXXXXXX (uppercase hex of 8 random bytes)
func GenerateCode() (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return fmt.Sprintf("%s%08X-%08X", CodePrefix,
		binary.BigEndian.Uint32(randomBytes[:4]),
		binary.BigEndian.Uint32(randomBytes[4:]),
	), nil
}

// ValidateCodeFormat reports whether code is a well-formed registration code
func ValidateCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}

// EffectiveStatus derives the status shown to callers. An active code past
// its expiry is expired; used and revoked are reported as stored.
func EffectiveStatus(c *RegistrationCode, now time.Time) Status {
	if c.StoredStatus == StatusActive && !now.Before(c.ExpiresAt) {
		return StatusExpired
	}
	return c.StoredStatus
}

// CanUseCode reports whether a code may be redeemed at now
func CanUseCode(c *RegistrationCode, now time.Time) bool {
	return c.StoredStatus == StatusActive && c.UsedAt == nil && now.Before(c.ExpiresAt)
}

// normalizeExpiry applies the default and bounds to a requested lifetime
func normalizeExpiry(hours int) (int, error) {
	if hours == 0 {
		return DefaultExpiryHours, nil
	}
	if hours < MinExpiryHours || hours > MaxExpiryHours {
		return 0, fmt.Errorf("expires_in_hours must be between %d and %d", MinExpiryHours, MaxExpiryHours)
	}
	return hours, nil
}
