package regcodes

import "time"

// Status is a registration code status
type Status string

const (
	StatusActive  Status = "active"
	StatusUsed    Status = "used"
	StatusRevoked Status = "revoked"
	// StatusExpired is derived by EffectiveStatus and never stored
	StatusExpired Status = "expired"
)

const (
	// DefaultExpiryHours is used when an issue request does not set one
	DefaultExpiryHours = 24
	// MinExpiryHours is the shortest allowed lifetime
	MinExpiryHours = 1
	// MaxExpiryHours is the longest allowed lifetime (one week)
	MaxExpiryHours = 168
	// MaxGenerationAttempts bounds the uniqueness retry loop
	MaxGenerationAttempts = 10
)

// RegistrationCode is a stored registration code row. StoredStatus is the
// persisted value; present codes to callers through View.
type RegistrationCode struct {
	ID            string
	Code          string
	CreatedBy     string
	StoredStatus  Status
	Description   string
	ExpiresAt     time.Time
	UsedByAgentID *string
	UsedAt        *time.Time
	CreatedAt     time.Time
}

// CodeView is the caller-facing representation of a code
type CodeView struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	CreatedBy     string     `json:"created_by"`
	Status        Status     `json:"status"`
	Description   string     `json:"description,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	UsedByAgentID *string    `json:"used_by_agent_id,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// View presents the code with its effective status at now
func (c *RegistrationCode) View(now time.Time) *CodeView {
	return &CodeView{
		ID:            c.ID,
		Code:          c.Code,
		CreatedBy:     c.CreatedBy,
		Status:        EffectiveStatus(c, now),
		Description:   c.Description,
		ExpiresAt:     c.ExpiresAt,
		UsedByAgentID: c.UsedByAgentID,
		UsedAt:        c.UsedAt,
		CreatedAt:     c.CreatedAt,
	}
}

// IssueRequest represents a request to issue a registration code
type IssueRequest struct {
	ExpiresInHours int    `json:"expires_in_hours,omitempty"`
	Description    string `json:"description,omitempty"`
}
