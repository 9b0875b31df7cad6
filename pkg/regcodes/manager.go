package regcodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
)

// Recorder receives registration code operation outcomes
type Recorder interface {
	RecordRegistrationCode(operation, outcome string)
}

// Manager implements the registration code lifecycle
type Manager struct {
	store    Store
	log      *logrus.Logger
	now      func() time.Time
	generate func() (string, error)
	recorder Recorder
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithGenerator overrides the code generator
func WithGenerator(generate func() (string, error)) Option {
	return func(m *Manager) { m.generate = generate }
}

// WithRecorder reports operation outcomes to r
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// NewManager creates a registration code manager
func NewManager(store Store, log *logrus.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logrus.New()
	}
	m := &Manager{
		store:    store,
		log:      log,
		now:      time.Now,
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithStore returns a copy of the manager bound to another store, typically
// one running inside a transaction
func (m *Manager) WithStore(store Store) *Manager {
	cp := *m
	cp.store = store
	return &cp
}

// Issue creates a new code owned by caller
func (m *Manager) Issue(ctx context.Context, caller *auth.UserContext, req IssueRequest) (*CodeView, error) {
	if caller == nil {
		return nil, errx.ErrMissingCredential
	}

	hours, err := normalizeExpiry(req.ExpiresInHours)
	if err != nil {
		m.record("issue", "invalid")
		return nil, errx.New(errx.CodeValidationFailed, err.Error())
	}

	now := m.now()
	for attempt := 1; attempt <= MaxGenerationAttempts; attempt++ {
		code, err := m.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate registration code: %w", err)
		}

		exists, err := m.store.CodeExists(ctx, code)
		if err != nil {
			return nil, errx.Wrap(errx.ErrInternalLookupFailure, err)
		}
		if exists {
			m.log.WithField("attempt", attempt).Debug("Registration code collision, retrying")
			continue
		}

		rc := &RegistrationCode{
			Code:         code,
			CreatedBy:    caller.UserID,
			StoredStatus: StatusActive,
			Description:  req.Description,
			ExpiresAt:    now.Add(time.Duration(hours) * time.Hour),
		}
		if err := m.store.Create(ctx, rc); err != nil {
			if errors.Is(err, ErrDuplicateCode) {
				continue
			}
			return nil, errx.Wrap(errx.ErrInternalLookupFailure, err)
		}

		m.log.WithFields(logrus.Fields{
			"code_id":    rc.ID,
			"created_by": rc.CreatedBy,
			"expires_at": rc.ExpiresAt,
		}).Info("Registration code issued")
		m.record("issue", "success")
		return rc.View(now), nil
	}

	m.log.WithField("attempts", MaxGenerationAttempts).Error("Failed to generate a unique registration code")
	m.record("issue", "exhausted")
	return nil, errx.ErrCodeGenerationExhausted
}

// List returns every code for admins and the caller's own codes otherwise
func (m *Manager) List(ctx context.Context, caller *auth.UserContext) ([]*CodeView, error) {
	if caller == nil {
		return nil, errx.ErrMissingCredential
	}

	createdBy := caller.UserID
	if caller.IsAdmin() {
		createdBy = ""
	}

	codes, err := m.store.List(ctx, createdBy)
	if err != nil {
		return nil, errx.Wrap(errx.ErrInternalLookupFailure, err)
	}

	now := m.now()
	views := make([]*CodeView, len(codes))
	for i, c := range codes {
		views[i] = c.View(now)
	}
	return views, nil
}

// Get returns a single code by value if the caller created it or is an admin
func (m *Manager) Get(ctx context.Context, caller *auth.UserContext, code string) (*CodeView, error) {
	if !ValidateCodeFormat(code) {
		return nil, errx.ErrInvalidCodeFormat
	}

	rc, err := m.store.GetByCode(ctx, code)
	if err != nil {
		return nil, m.lookupError(err)
	}
	if !canManage(caller, rc) {
		return nil, errx.ErrInsufficientRole
	}

	return rc.View(m.now()), nil
}

// Revoke revokes an active code. Only its creator or an admin may revoke.
func (m *Manager) Revoke(ctx context.Context, caller *auth.UserContext, id string) (*CodeView, error) {
	if _, err := uuid.Parse(id); err != nil {
		m.record("revoke", "not_found")
		return nil, errx.ErrCodeNotFound
	}

	rc, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, m.lookupError(err)
	}
	if !canManage(caller, rc) {
		m.record("revoke", "forbidden")
		return nil, errx.ErrInsufficientRole
	}

	if err := statusError(rc.StoredStatus); err != nil {
		m.record("revoke", string(rc.StoredStatus))
		return nil, err
	}

	revoked, err := m.store.Revoke(ctx, id)
	if err != nil {
		return nil, errx.Wrap(errx.ErrInternalLookupFailure, err)
	}
	if !revoked {
		// Lost a race with a redemption or another revoke
		current, err := m.store.GetByID(ctx, id)
		if err != nil {
			return nil, m.lookupError(err)
		}
		if err := statusError(current.StoredStatus); err != nil {
			return nil, err
		}
		return nil, errx.ErrCodeAlreadyUsed
	}

	rc.StoredStatus = StatusRevoked
	m.log.WithFields(logrus.Fields{
		"code_id":    rc.ID,
		"revoked_by": caller.UserID,
	}).Info("Registration code revoked")
	m.record("revoke", "success")
	return rc.View(m.now()), nil
}

// Redeem marks code as used by agentID. Exactly one concurrent caller can
// succeed for a given code.
func (m *Manager) Redeem(ctx context.Context, code, agentID string) (*RegistrationCode, error) {
	if !ValidateCodeFormat(code) {
		m.record("redeem", "invalid_format")
		return nil, errx.ErrInvalidCodeFormat
	}

	now := m.now()
	rc, err := m.store.Redeem(ctx, code, agentID, now)
	if err != nil {
		return nil, errx.Wrap(errx.ErrInternalLookupFailure, err)
	}
	if rc != nil {
		m.log.WithFields(logrus.Fields{
			"code_id":  rc.ID,
			"agent_id": agentID,
		}).Info("Registration code redeemed")
		m.record("redeem", "success")
		return rc, nil
	}

	existing, err := m.store.GetByCode(ctx, code)
	if err != nil {
		m.record("redeem", "not_found")
		return nil, m.lookupError(err)
	}

	if err := statusError(existing.StoredStatus); err != nil {
		m.record("redeem", string(existing.StoredStatus))
		return nil, err
	}
	if EffectiveStatus(existing, now) == StatusExpired {
		m.record("redeem", "expired")
		return nil, errx.ErrCodeExpired
	}

	m.record("redeem", "conflict")
	return nil, errx.ErrCodeAlreadyUsed
}

func (m *Manager) lookupError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return errx.ErrCodeNotFound
	}
	return errx.Wrap(errx.ErrInternalLookupFailure, err)
}

func (m *Manager) record(operation, outcome string) {
	if m.recorder != nil {
		m.recorder.RecordRegistrationCode(operation, outcome)
	}
}

// statusError maps terminal stored statuses to their errors
func statusError(status Status) error {
	switch status {
	case StatusUsed:
		return errx.ErrCodeAlreadyUsed
	case StatusRevoked:
		return errx.ErrCodeAlreadyRevoked
	}
	return nil
}

func canManage(caller *auth.UserContext, rc *RegistrationCode) bool {
	if caller == nil {
		return false
	}
	return caller.IsAdmin() || caller.UserID == rc.CreatedBy
}
