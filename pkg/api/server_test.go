package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatekeeper/pkg/agents"
	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/middleware"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
	"github.com/platinummonkey/gatekeeper/pkg/orgs"
	"github.com/platinummonkey/gatekeeper/pkg/regcodes"
)

const (
	ownerID    = "11111111-1111-1111-1111-111111111111"
	strangerID = "22222222-2222-2222-2222-222222222222"
	orgAlpha   = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	orgBeta    = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

// memCodeStore is an in-memory regcodes.Store
type memCodeStore struct {
	mu    sync.Mutex
	codes map[string]*regcodes.RegistrationCode
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{codes: map[string]*regcodes.RegistrationCode{}}
}

func (s *memCodeStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *memCodeStore) Create(_ context.Context, c *regcodes.RegistrationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	cp := *c
	s.codes[c.ID] = &cp
	return nil
}

func (s *memCodeStore) List(_ context.Context, createdBy string) ([]*regcodes.RegistrationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*regcodes.RegistrationCode
	for _, c := range s.codes {
		if createdBy == "" || c.CreatedBy == createdBy {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memCodeStore) GetByID(_ context.Context, id string) (*regcodes.RegistrationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[id]
	if !ok {
		return nil, regcodes.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memCodeStore) GetByCode(_ context.Context, code string) (*regcodes.RegistrationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, regcodes.ErrNotFound
}

func (s *memCodeStore) Revoke(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[id]
	if !ok || c.StoredStatus != regcodes.StatusActive {
		return false, nil
	}
	c.StoredStatus = regcodes.StatusRevoked
	return true, nil
}

func (s *memCodeStore) Redeem(_ context.Context, code, agentID string, now time.Time) (*regcodes.RegistrationCode, error) {
	return nil, nil
}

type stubMemberships map[string][]*orgs.Membership

func (s stubMemberships) ListUserMemberships(_ context.Context, userID string) ([]*orgs.Membership, error) {
	return s[userID], nil
}

type stubOrgStore struct {
	defaults map[string]string
}

func (s *stubOrgStore) ListOrganizations(_ context.Context, ids []string) ([]*orgs.Organization, error) {
	names := map[string]string{orgAlpha: "Alpha", orgBeta: "Beta"}
	out := make([]*orgs.Organization, 0, len(ids))
	for _, id := range ids {
		out = append(out, &orgs.Organization{ID: id, Name: names[id], Status: orgs.OrgStatusActive})
	}
	return out, nil
}

func (s *stubOrgStore) SetDefaultOrganization(_ context.Context, userID, orgID string) error {
	s.defaults[userID] = orgID
	return nil
}

type stubProvisioner struct {
	req agents.ProvisionRequest
}

func (p *stubProvisioner) Provision(_ context.Context, req agents.ProvisionRequest) (*agents.ProvisionResult, error) {
	p.req = req
	if req.Code == "" {
		return nil, errx.New(errx.CodeValidationFailed, "code is required")
	}
	owner := ownerID
	return &agents.ProvisionResult{
		Agent:  &agents.Agent{ID: uuid.New().String(), AgentID: req.AgentID, Name: req.Name, OwnerUserID: &owner, Status: agents.StatusActive},
		APIKey: "gk_plaintext",
	}, nil
}

type stubGate struct{}

func (stubGate) Authenticate(_ context.Context, creds agents.Credentials) (*agents.AgentContext, error) {
	if creds.APIKey == "" {
		return nil, errx.ErrMissingCredential
	}
	if creds.APIKey != "gk_valid" {
		return nil, errx.ErrAgentNotFound
	}
	return &agents.AgentContext{ID: "row-1", AgentID: "edge-01", Name: "Edge 01"}, nil
}

type stubAgents map[string]*agents.Agent

func (s stubAgents) GetByAgentID(_ context.Context, agentID string) (*agents.Agent, error) {
	if a, ok := s[agentID]; ok {
		return a, nil
	}
	return nil, agents.ErrNotFound
}

type fixture struct {
	server    *Server
	codes     *memCodeStore
	orgStore  *stubOrgStore
	provision *stubProvisioner
	hook      *test.Hook
}

func newFixture(t *testing.T, rateLimit func(http.Handler) http.Handler) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	owner := ownerID
	memberships := stubMemberships{
		ownerID: {
			{UserID: ownerID, OrganizationID: orgAlpha, OrganizationName: "Alpha", IsDefault: true},
			{UserID: ownerID, OrganizationID: orgBeta, OrganizationName: "Beta"},
		},
	}

	f := &fixture{
		codes:     newMemCodeStore(),
		orgStore:  &stubOrgStore{defaults: map[string]string{}},
		provision: &stubProvisioner{},
		hook:      hook,
	}
	f.server = NewServer(Dependencies{
		Log:           log,
		Identity:      auth.NewIdentityExtractor(log, auth.GatewayHeaderStrategy{}),
		Resolver:      orgs.NewResolver(memberships, log),
		Organizations: f.orgStore,
		Codes:         regcodes.NewManager(f.codes, log),
		Gate:          stubGate{},
		Provisioner:   f.provision,
		Agents: stubAgents{
			"edge-01": {ID: "row-1", AgentID: "edge-01", Name: "Edge 01", OwnerUserID: &owner, Status: agents.StatusActive},
		},
		Health:       observability.NewHealthChecker(nil, nil, nil),
		Metrics:      observability.NewMetrics(nil),
		RateLimit:    rateLimit,
		MaxBodyBytes: 1 << 16,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, req)
	return rr
}

func asUser(id, roles string) map[string]string {
	return map[string]string{auth.HeaderUserID: id, auth.HeaderUserRoles: roles}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httputil.APIError {
	t.Helper()
	var env httputil.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env), rr.Body.String())
	return env.Error
}

func TestMe(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("unauthenticated", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		apiErr := decodeError(t, rr)
		assert.Equal(t, errx.CodeMissingCredential, apiErr.Code)
		assert.NotEmpty(t, apiErr.RequestID)
		assert.Equal(t, apiErr.RequestID, rr.Header().Get(httputil.HeaderRequestID))
	})

	t.Run("default organization", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/me", "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, orgAlpha, rr.Header().Get(orgs.HeaderOrganizationID))
		assert.Equal(t, string(orgs.SourceDefault), rr.Header().Get(middleware.HeaderOrganizationSource))

		var resp MeResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, ownerID, resp.User.UserID)
		require.NotNil(t, resp.Organization.OrganizationID)
		assert.Equal(t, orgAlpha, *resp.Organization.OrganizationID)
		assert.ElementsMatch(t, []string{orgAlpha, orgBeta}, resp.Organization.AccessibleOrganizations)
	})

	t.Run("explicit organization", func(t *testing.T) {
		headers := asUser(ownerID, "user")
		headers[orgs.HeaderOrganizationID] = orgBeta
		rr := f.do(t, http.MethodGet, "/api/v1/me", "", headers)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, orgBeta, rr.Header().Get(orgs.HeaderOrganizationID))
		assert.Equal(t, string(orgs.SourceExplicit), rr.Header().Get(middleware.HeaderOrganizationSource))
	})

	t.Run("inaccessible organization", func(t *testing.T) {
		headers := asUser(strangerID, "user")
		headers[orgs.HeaderOrganizationID] = orgAlpha
		rr := f.do(t, http.MethodGet, "/api/v1/me", "", headers)
		require.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, errx.CodeOrganizationAccessDenied, decodeError(t, rr).Code)
	})
}

func TestOrganizations(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, http.MethodGet, "/api/v1/organizations", "", asUser(ownerID, "user"))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp OrganizationListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Organizations, 2)
	for _, o := range resp.Organizations {
		assert.Equal(t, o.ID == orgAlpha, o.Current, o.ID)
	}

	t.Run("set default for a member", func(t *testing.T) {
		rr := f.do(t, http.MethodPut, "/api/v1/organizations/"+orgBeta+"/default", "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, orgBeta, f.orgStore.defaults[ownerID])
	})

	t.Run("set default for a non-member leaves the store untouched", func(t *testing.T) {
		rr := f.do(t, http.MethodPut, "/api/v1/organizations/"+orgAlpha+"/default", "", asUser(strangerID, "user"))
		require.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, errx.CodeOrganizationAccessDenied, decodeError(t, rr).Code)
		_, touched := f.orgStore.defaults[strangerID]
		assert.False(t, touched)
	})
}

func TestCurrentOrganizationRequiresTenant(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("unauthenticated", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/organizations/current", "", nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, errx.CodeMissingCredential, decodeError(t, rr).Code)
	})

	t.Run("no memberships", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/organizations/current", "", asUser(strangerID, "user"))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, errx.CodeOrganizationRequired, decodeError(t, rr).Code)
		assert.Empty(t, rr.Header().Get(orgs.HeaderOrganizationID))
	})

	t.Run("default organization", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/organizations/current", "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp CurrentOrganizationResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, orgAlpha, resp.Organization.ID)
		assert.Equal(t, "Alpha", resp.Organization.Name)
		assert.True(t, resp.Organization.Current)
		assert.Equal(t, orgs.SourceDefault, resp.Source)
	})

	t.Run("explicit organization", func(t *testing.T) {
		headers := asUser(ownerID, "user")
		headers[orgs.HeaderOrganizationID] = orgBeta
		rr := f.do(t, http.MethodGet, "/api/v1/organizations/current", "", headers)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp CurrentOrganizationResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, orgBeta, resp.Organization.ID)
		assert.Equal(t, orgs.SourceExplicit, resp.Source)
	})

	t.Run("optional routes still serve callers without a tenant", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/me", "", asUser(strangerID, "user"))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestRegistrationCodes(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("plain users cannot issue", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/registration-codes", `{}`, asUser(ownerID, "user"))
		require.Equal(t, http.StatusForbidden, rr.Code)
		apiErr := decodeError(t, rr)
		assert.Equal(t, errx.CodeInsufficientRole, apiErr.Code)
		assert.Equal(t, "agent", apiErr.Details["required_role"])
	})

	rr := f.do(t, http.MethodPost, "/api/v1/registration-codes", `{"expires_in_hours":2,"description":"rack 4"}`, asUser(ownerID, "agent"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var issued regcodes.CodeView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&issued))
	assert.True(t, regcodes.ValidateCodeFormat(issued.Code))
	assert.Equal(t, regcodes.StatusActive, issued.Status)
	assert.Equal(t, ownerID, issued.CreatedBy)

	t.Run("invalid expiry", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/registration-codes", `{"expires_in_hours":500}`, asUser(ownerID, "agent"))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, errx.CodeValidationFailed, decodeError(t, rr).Code)
	})

	t.Run("creator lists and fetches", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/registration-codes", "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusOK, rr.Code)
		var list RegistrationCodeListResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
		assert.Equal(t, 1, list.Count)

		rr = f.do(t, http.MethodGet, "/api/v1/registration-codes/"+issued.Code, "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("others see nothing", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/registration-codes", "", asUser(strangerID, "user"))
		require.Equal(t, http.StatusOK, rr.Code)
		var list RegistrationCodeListResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
		assert.Equal(t, 0, list.Count)

		rr = f.do(t, http.MethodGet, "/api/v1/registration-codes/"+issued.Code, "", asUser(strangerID, "user"))
		require.Equal(t, http.StatusForbidden, rr.Code)

		rr = f.do(t, http.MethodDelete, "/api/v1/registration-codes/"+issued.ID, "", asUser(strangerID, "user"))
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("malformed code", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/registration-codes/not-a-code", "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, errx.CodeInvalidCodeFormat, decodeError(t, rr).Code)
	})

	t.Run("revoke twice", func(t *testing.T) {
		rr := f.do(t, http.MethodDelete, "/api/v1/registration-codes/"+issued.ID, "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusOK, rr.Code)

		rr = f.do(t, http.MethodDelete, "/api/v1/registration-codes/"+issued.ID, "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, errx.CodeAlreadyRevoked, decodeError(t, rr).Code)
	})

	t.Run("revoke with a malformed id", func(t *testing.T) {
		for _, id := range []string{"abc", issued.Code, "not-a-uuid-at-all"} {
			rr := f.do(t, http.MethodDelete, "/api/v1/registration-codes/"+id, "", asUser(ownerID, "user"))
			require.Equal(t, http.StatusNotFound, rr.Code, id)
			assert.Equal(t, errx.CodeNotFound, decodeError(t, rr).Code, id)
		}
	})

	t.Run("admin lists everything", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/registration-codes", "", asUser(strangerID, "admin"))
		require.Equal(t, http.StatusOK, rr.Code)
		var list RegistrationCodeListResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
		assert.Equal(t, 1, list.Count)
	})
}

func TestAgentRoutes(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("register is public", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/agents/register",
			`{"code":"RC-0A1B2C3D-4E5F6071","agent_id":"edge-02","name":"Edge 02"}`, nil)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

		var result agents.ProvisionResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&result))
		assert.Equal(t, "gk_plaintext", result.APIKey)
		assert.Equal(t, "edge-02", f.provision.req.AgentID)
	})

	t.Run("register rejects bad json", func(t *testing.T) {
		rr := f.do(t, http.MethodPost, "/api/v1/agents/register", `{"code":`, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("self requires a key", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/agents/self", "", nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, errx.CodeMissingCredential, decodeError(t, rr).Code)

		rr = f.do(t, http.MethodGet, "/api/v1/agents/self", "", map[string]string{agents.HeaderAPIKey: "gk_other"})
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, errx.CodeAgentNotFound, decodeError(t, rr).Code)
	})

	t.Run("self", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/agents/self", "", map[string]string{agents.HeaderAPIKey: "gk_valid"})
		require.Equal(t, http.StatusOK, rr.Code)
		var agentCtx agents.AgentContext
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&agentCtx))
		assert.Equal(t, "edge-01", agentCtx.AgentID)
	})

	t.Run("owner reads agent", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/agents/edge-01", "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "api_key_hash")
	})

	t.Run("non-owner is refused", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/agents/edge-01", "", asUser(strangerID, "user"))
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown agent", func(t *testing.T) {
		rr := f.do(t, http.MethodGet, "/api/v1/agents/ghost", "", asUser(ownerID, "user"))
		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, errx.CodeResourceNotFound, decodeError(t, rr).Code)
	})
}

func TestRateLimitedRoutes(t *testing.T) {
	limiter := middleware.NewRateLimitMiddleware(middleware.RateLimitPolicy{
		Anonymous: &middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute},
		User:      &middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute},
		Agent:     &middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute},
	})
	f := newFixture(t, limiter.Handler)

	rr := f.do(t, http.MethodGet, "/api/v1/me", "", asUser(ownerID, "user"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/v1/me", "", asUser(ownerID, "user"))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, errx.CodeRateLimited, decodeError(t, rr).Code)

	// Limits are per caller
	rr = f.do(t, http.MethodGet, "/api/v1/me", "", asUser(strangerID, "user"))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestServerMiscRoutes(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, errx.CodeResourceNotFound, decodeError(t, rr).Code)

	rr = f.do(t, http.MethodPatch, "/api/v1/me", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestServerMethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPatch, "/api/v1/me"},
		{http.MethodDelete, "/api/v1/organizations"},
		{http.MethodGet, "/api/v1/organizations/" + orgAlpha + "/default"},
		{http.MethodPut, "/api/v1/registration-codes"},
		{http.MethodPatch, "/api/v1/registration-codes/RC-ABCDEFGH-JKLMNPQR"},
		{http.MethodGet, "/api/v1/agents/register"},
		{http.MethodPost, "/api/v1/agents/self"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := f.do(t, tt.method, tt.path, "", asUser(ownerID, "user"))
			require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, errx.CodeValidationFailed, decodeError(t, rr).Code)
		})
	}

	rr := f.do(t, http.MethodGet, "/api/v1/organizations/"+orgAlpha+"/members", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequestLogCarriesCaller(t *testing.T) {
	f := newFixture(t, nil)

	f.do(t, http.MethodGet, "/api/v1/me", "", asUser(ownerID, "user"))

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, ownerID, entry.Data["user_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}
