package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
	"github.com/platinummonkey/gatekeeper/pkg/regcodes"
	"github.com/platinummonkey/gatekeeper/pkg/storage"
)

var agentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// KeyIssuer mints API keys and their storable hashes
type KeyIssuer interface {
	GenerateKey() (string, error)
	Hash(key string) (string, error)
}

// Provisioner registers new agents from registration codes
type Provisioner struct {
	db    storage.TxBeginner
	codes *regcodes.Manager
	keys  KeyIssuer
	log   *logrus.Logger
}

// NewProvisioner creates a provisioner. codes is rebound to each transaction.
func NewProvisioner(db storage.TxBeginner, codes *regcodes.Manager, keys KeyIssuer, log *logrus.Logger) *Provisioner {
	if log == nil {
		log = logrus.New()
	}
	return &Provisioner{db: db, codes: codes, keys: keys, log: log}
}

// Validate checks a provisioning request
func (r *ProvisionRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	r.AgentID = strings.TrimSpace(r.AgentID)
	r.Name = strings.TrimSpace(r.Name)
	r.DeviceID = strings.TrimSpace(r.DeviceID)

	if r.Code == "" {
		return errx.New(errx.CodeValidationFailed, "code is required")
	}
	if !regcodes.ValidateCodeFormat(r.Code) {
		return errx.ErrInvalidCodeFormat
	}
	if !agentIDPattern.MatchString(r.AgentID) {
		return errx.New(errx.CodeValidationFailed, "agent_id must be 1-128 letters, digits, '.', '_' or '-'").
			WithDetail("field", "agent_id")
	}
	if r.Name == "" {
		r.Name = r.AgentID
	}
	return nil
}

// Provision redeems req.Code and creates the agent in one transaction. The
// agent is owned by the code's creator.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key, err := p.keys.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}
	hash, err := p.keys.Hash(key)
	if err != nil {
		return nil, fmt.Errorf("failed to hash api key: %w", err)
	}

	agent := &Agent{
		ID:         uuid.New().String(),
		AgentID:    req.AgentID,
		Name:       req.Name,
		APIKeyHash: hash,
		Status:     StatusActive,
	}
	if req.DeviceID != "" {
		device := req.DeviceID
		agent.DeviceID = &device
	}

	err = storage.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		rc, err := p.codes.WithStore(regcodes.NewPostgresStore(tx)).Redeem(ctx, req.Code, agent.ID)
		if err != nil {
			return err
		}
		owner := rc.CreatedBy
		agent.OwnerUserID = &owner

		if err := NewPostgresStore(tx).Create(ctx, agent); err != nil {
			if errors.Is(err, ErrAgentExists) {
				return errx.ErrAgentAlreadyExists.WithDetail("agent_id", req.AgentID)
			}
			return errx.Wrap(errx.ErrInternalLookupFailure, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"agent_id":   agent.AgentID,
		"owner":      *agent.OwnerUserID,
		"key_prefix": auth.DisplayPrefix(key),
	}).Info("Agent provisioned")

	return &ProvisionResult{Agent: agent, APIKey: key}, nil
}
