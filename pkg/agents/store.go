package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/platinummonkey/gatekeeper/pkg/storage"
)

var (
	// ErrNotFound is returned when no agent matches
	ErrNotFound = errors.New("agent not found")
	// ErrAgentExists is returned when the public agent id is taken
	ErrAgentExists = errors.New("agent id already registered")
)

const uniqueViolation = "23505"

// Store persists agents
type Store interface {
	GetByAgentID(ctx context.Context, agentID string) (*Agent, error)
	ListActive(ctx context.Context) ([]*Agent, error)
	Create(ctx context.Context, a *Agent) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db storage.DBTX
}

// NewPostgresStore creates a store on a pool or a transaction
func NewPostgresStore(db storage.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

const agentColumns = `id, agent_id, name, owner_user_id, device_id, api_key_hash, status, last_seen_at, created_at`

// GetByAgentID retrieves an agent by its public identifier regardless of status
func (s *PostgresStore) GetByAgentID(ctx context.Context, agentID string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE agent_id = $1`, agentID)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return a, nil
}

// ListActive returns every active agent including its key hash
func (s *PostgresStore) ListActive(ctx context.Context) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE status = $1 ORDER BY created_at`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := []*Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}
	return agents, nil
}

// Create inserts a new agent
func (s *PostgresStore) Create(ctx context.Context, a *Agent) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = StatusActive
	}

	query := `
		INSERT INTO agents (id, agent_id, name, owner_user_id, device_id, api_key_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		a.ID, a.AgentID, a.Name, nullString(a.OwnerUserID), nullString(a.DeviceID), a.APIKeyHash, a.Status,
	).Scan(&a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAgentExists
		}
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// TouchLastSeen records activity for an agent
func (s *PostgresStore) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE agents SET last_seen_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row scanner) (*Agent, error) {
	var (
		a        Agent
		owner    sql.NullString
		device   sql.NullString
		lastSeen sql.NullTime
	)
	err := row.Scan(&a.ID, &a.AgentID, &a.Name, &owner, &device, &a.APIKeyHash, &a.Status, &lastSeen, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if owner.Valid {
		a.OwnerUserID = &owner.String
	}
	if device.Valid {
		a.DeviceID = &device.String
	}
	if lastSeen.Valid {
		a.LastSeenAt = &lastSeen.Time
	}
	return &a, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
