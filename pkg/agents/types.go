package agents

import "time"

// Status is the lifecycle status of an agent
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusRevoked  Status = "revoked"
)

// Agent is a registered machine caller
type Agent struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agent_id"`
	Name        string     `json:"name"`
	OwnerUserID *string    `json:"owner_user_id,omitempty"`
	DeviceID    *string    `json:"device_id,omitempty"`
	APIKeyHash  string     `json:"-"`
	Status      Status     `json:"status"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AgentContext is the authenticated agent attached to a request
type AgentContext struct {
	ID          string  `json:"id"`
	AgentID     string  `json:"agent_id"`
	Name        string  `json:"name"`
	OwnerUserID *string `json:"owner_user_id,omitempty"`
	DeviceID    *string `json:"device_id,omitempty"`
}

// Context builds the request-scoped view of a
func (a *Agent) Context() *AgentContext {
	return &AgentContext{
		ID:          a.ID,
		AgentID:     a.AgentID,
		Name:        a.Name,
		OwnerUserID: a.OwnerUserID,
		DeviceID:    a.DeviceID,
	}
}

// ProvisionRequest registers a new agent with a registration code
type ProvisionRequest struct {
	Code     string `json:"code"`
	AgentID  string `json:"agent_id"`
	Name     string `json:"name"`
	DeviceID string `json:"device_id,omitempty"`
}

// ProvisionResult carries the new agent and its plaintext API key. The key
// is never retrievable again.
type ProvisionResult struct {
	Agent  *Agent `json:"agent"`
	APIKey string `json:"api_key"`
}
