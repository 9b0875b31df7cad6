package agents

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
)

// Agent credential headers
const (
	HeaderAPIKey  = "X-Api-Key"
	HeaderAgentID = "X-Agent-Id"
)

// DefaultTouchTimeout bounds the background last-seen update
const DefaultTouchTimeout = 5 * time.Second

// KeyVerifier checks a presented key against a stored hash in constant time
type KeyVerifier interface {
	Verify(key, stored string) bool
}

// Recorder receives agent authentication outcomes
type Recorder interface {
	RecordAgentAuth(outcome string)
}

// Credentials are the agent credentials presented on a request
type Credentials struct {
	APIKey      string
	AgentIDHint string
}

// CredentialsFromRequest reads the API key from x-api-key, else from the
// bearer header, and the optional x-agent-id hint
func CredentialsFromRequest(r *http.Request) Credentials {
	key := strings.TrimSpace(r.Header.Get(HeaderAPIKey))
	if key == "" {
		key, _ = auth.BearerToken(r)
	}
	return Credentials{
		APIKey:      key,
		AgentIDHint: strings.TrimSpace(r.Header.Get(HeaderAgentID)),
	}
}

// Gate authenticates agents by API key
type Gate struct {
	store        Store
	verifier     KeyVerifier
	log          *logrus.Logger
	recorder     Recorder
	now          func() time.Time
	touchTimeout time.Duration
	touched      func(agentID string, err error)
}

// GateOption customizes a Gate
type GateOption func(*Gate)

// WithGateRecorder reports authentication outcomes to r
func WithGateRecorder(r Recorder) GateOption {
	return func(g *Gate) { g.recorder = r }
}

// WithGateClock overrides the time source used for last-seen updates
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithTouchTimeout overrides DefaultTouchTimeout
func WithTouchTimeout(d time.Duration) GateOption {
	return func(g *Gate) { g.touchTimeout = d }
}

// WithTouchHook is called after every background last-seen update
func WithTouchHook(fn func(agentID string, err error)) GateOption {
	return func(g *Gate) { g.touched = fn }
}

// NewGate creates an agent credential gate
func NewGate(store Store, verifier KeyVerifier, log *logrus.Logger, opts ...GateOption) *Gate {
	if log == nil {
		log = logrus.New()
	}
	g := &Gate{
		store:        store,
		verifier:     verifier,
		log:          log,
		now:          time.Now,
		touchTimeout: DefaultTouchTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate resolves the agent owning creds.APIKey
func (g *Gate) Authenticate(ctx context.Context, creds Credentials) (*AgentContext, error) {
	if creds.APIKey == "" {
		g.record("missing")
		return nil, errx.ErrMissingCredential
	}
	if !auth.HasKeyPrefix(creds.APIKey) {
		g.record("invalid_format")
		return nil, errx.ErrInvalidCredentialFormat
	}

	var (
		agent *Agent
		err   error
	)
	if creds.AgentIDHint != "" {
		agent, err = g.scoped(ctx, creds)
	} else {
		agent, err = g.scan(ctx, creds.APIKey)
	}
	if err != nil {
		g.record(outcomeOf(err))
		g.log.WithFields(logrus.Fields{
			"key_prefix": auth.DisplayPrefix(creds.APIKey),
			"agent_id":   creds.AgentIDHint,
			"reason":     errx.CodeOf(err),
		}).Info("Agent authentication failed")
		return nil, err
	}

	g.touch(ctx, agent)
	g.record("success")
	return agent.Context(), nil
}

func (g *Gate) scoped(ctx context.Context, creds Credentials) (*Agent, error) {
	agent, err := g.store.GetByAgentID(ctx, creds.AgentIDHint)
	if errors.Is(err, ErrNotFound) {
		return nil, errx.ErrAgentNotFound
	}
	if err != nil {
		return nil, errx.Wrap(errx.ErrInternalLookupFailure, err)
	}

	if !g.verifier.Verify(creds.APIKey, agent.APIKeyHash) {
		return nil, errx.ErrInvalidCredential
	}
	if agent.Status != StatusActive {
		return nil, errx.ErrAgentInactive.WithDetail("status", string(agent.Status))
	}
	return agent, nil
}

// scan compares key against every active agent's hash. Cost grows with the
// number of active agents.
func (g *Gate) scan(ctx context.Context, key string) (*Agent, error) {
	candidates, err := g.store.ListActive(ctx)
	if err != nil {
		return nil, errx.Wrap(errx.ErrInternalLookupFailure, err)
	}

	for _, candidate := range candidates {
		if g.verifier.Verify(key, candidate.APIKeyHash) {
			return candidate, nil
		}
	}
	return nil, errx.ErrAgentNotFound
}

// touch updates last-seen without holding up the response
func (g *Gate) touch(ctx context.Context, agent *Agent) {
	at := g.now()
	touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.touchTimeout)
	go func() {
		defer cancel()
		err := g.store.TouchLastSeen(touchCtx, agent.ID, at)
		if err != nil {
			g.log.WithError(err).WithField("agent_id", agent.AgentID).Warn("Failed to update agent last seen")
		}
		if g.touched != nil {
			g.touched(agent.AgentID, err)
		}
	}()
}

func (g *Gate) record(outcome string) {
	if g.recorder != nil {
		g.recorder.RecordAgentAuth(outcome)
	}
}

func outcomeOf(err error) string {
	switch errx.CodeOf(err) {
	case errx.CodeAgentNotFound:
		return "not_found"
	case errx.CodeInvalidCredential:
		return "invalid_key"
	case errx.CodeAgentInactive:
		return "inactive"
	default:
		return "error"
	}
}
