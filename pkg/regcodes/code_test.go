package regcodes

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_FormatAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.True(t, ValidateCodeFormat(code), "generated code %q has invalid format", code)

		_, dup := seen[code]
		require.False(t, dup, "duplicate code %q", code)
		seen[code] = struct{}{}
	}
}

func TestValidateCodeFormat(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"RC-1A2B3C4D-5E6F7A8B", true},
		{"RC-00000000-FFFFFFFF", true},
		{"RC-1a2b3c4d-5e6f7a8b", false},
		{"RC-1A2B3C4D5E6F7A8B", false},
		{"RC-1A2B3C4-5E6F7A8B", false},
		{"RC-1A2B3C4D-5E6F7A8G", false},
		{"XX-1A2B3C4D-5E6F7A8B", false},
		{" RC-1A2B3C4D-5E6F7A8B", false},
		{"RC-1A2B3C4D-5E6F7A8B\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateCodeFormat(tt.code))
		})
	}
}

func TestCanUseCode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	usedAt := now.Add(-time.Hour)

	for _, active := range []bool{true, false} {
		for _, unused := range []bool{true, false} {
			for _, future := range []bool{true, false} {
				name := fmt.Sprintf("active=%v unused=%v future=%v", active, unused, future)
				t.Run(name, func(t *testing.T) {
					rc := &RegistrationCode{StoredStatus: StatusUsed, ExpiresAt: now.Add(-time.Minute)}
					if active {
						rc.StoredStatus = StatusActive
					}
					if !unused {
						rc.UsedAt = &usedAt
					}
					if future {
						rc.ExpiresAt = now.Add(time.Minute)
					}

					assert.Equal(t, active && unused && future, CanUseCode(rc, now))
				})
			}
		}
	}
}

func TestCanUseCode_ExpiryBoundary(t *testing.T) {
	now := time.Now()
	rc := &RegistrationCode{StoredStatus: StatusActive, ExpiresAt: now}
	assert.False(t, CanUseCode(rc, now))
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		stored    Status
		expiresAt time.Time
		want      Status
	}{
		{"active and valid", StatusActive, future, StatusActive},
		{"active past expiry", StatusActive, past, StatusExpired},
		{"used past expiry stays used", StatusUsed, past, StatusUsed},
		{"revoked past expiry stays revoked", StatusRevoked, past, StatusRevoked},
		{"revoked", StatusRevoked, future, StatusRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &RegistrationCode{StoredStatus: tt.stored, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, EffectiveStatus(rc, now))
			assert.Equal(t, tt.want, rc.View(now).Status)
			assert.Equal(t, tt.stored, rc.StoredStatus, "derivation must not write back")
		})
	}
}

func TestNormalizeExpiry(t *testing.T) {
	tests := []struct {
		hours   int
		want    int
		wantErr bool
	}{
		{0, 24, false},
		{1, 1, false},
		{168, 168, false},
		{169, 0, true},
		{-1, 0, true},
	}

	for _, tt := range tests {
		got, err := normalizeExpiry(tt.hours)
		if tt.wantErr {
			assert.Error(t, err, "hours=%d", tt.hours)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
