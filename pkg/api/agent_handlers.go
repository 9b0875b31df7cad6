package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/agents"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/middleware"
)

// AgentHandlers handles agent provisioning and lookup
type AgentHandlers struct {
	provisioner AgentProvisioner
	agents      AgentLookup
}

// NewAgentHandlers creates agent handlers
func NewAgentHandlers(provisioner AgentProvisioner, lookup AgentLookup) *AgentHandlers {
	return &AgentHandlers{provisioner: provisioner, agents: lookup}
}

// Register redeems a registration code and returns the new agent's API key.
// The key is only ever returned here.
func (h *AgentHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req agents.ProvisionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.provisioner.Provision(r.Context(), req)
	if err != nil {
		httputil.WriteAPIError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	_ = httputil.WriteCreated(w, result)
}

// Self returns the authenticated agent
func (h *AgentHandlers) Self(w http.ResponseWriter, r *http.Request) {
	agent := middleware.GetAgent(r)
	if agent == nil {
		httputil.WriteAPIError(w, r, errx.ErrMissingCredential)
		return
	}

	_ = httputil.WriteSuccess(w, agent)
}

// Get returns an agent to its owner, agents and admins
func (h *AgentHandlers) Get(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httputil.ParsePathStringOrError(w, r, "agent_id")
	if !ok {
		return
	}

	agent, err := h.agents.GetByAgentID(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, agents.ErrNotFound) {
			httputil.WriteAPIError(w, r, errx.New(errx.CodeResourceNotFound, "agent not found").
				WithDetail("agent_id", agentID))
			return
		}
		httputil.WriteAPIError(w, r, errx.Wrap(errx.ErrInternalLookupFailure, err))
		return
	}

	owner := func(*http.Request) (*string, error) { return agent.OwnerUserID, nil }
	middleware.RequireOwnership(owner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteSuccess(w, agent)
	})).ServeHTTP(w, r)
}
