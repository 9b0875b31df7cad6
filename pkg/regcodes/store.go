package regcodes

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
	// ErrNotFound is returned when no code matches
	ErrNotFound = errors.New("registration code not found")
	// ErrDuplicateCode is returned when an insert collides with an existing code
	ErrDuplicateCode = errors.New("registration code already exists")
)

// uniqueViolation is the PostgreSQL unique_violation error code
const uniqueViolation = "23505"

// Store persists registration codes
type Store interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, c *RegistrationCode) error
	List(ctx context.Context, createdBy string) ([]*RegistrationCode, error)
	GetByID(ctx context.Context, id string) (*RegistrationCode, error)
	GetByCode(ctx context.Context, code string) (*RegistrationCode, error)
	Revoke(ctx context.Context, id string) (bool, error)
	Redeem(ctx context.Context, code, agentID string, now time.Time) (*RegistrationCode, error)
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db storage.DBTX
}

// NewPostgresStore creates a store on a pool or a transaction
func NewPostgresStore(db storage.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

const codeColumns = `id, code, created_by, status, description, expires_at, used_by_agent_id, used_at, created_at`

// CodeExists reports whether a code value is already taken
func (s *PostgresStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM registration_codes WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return exists, nil
}

// Create inserts a new code
func (s *PostgresStore) Create(ctx context.Context, c *RegistrationCode) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.StoredStatus == "" {
		c.StoredStatus = StatusActive
	}

	query := `
		INSERT INTO registration_codes (id, code, created_by, status, description, expires_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query, c.ID, c.Code, c.CreatedBy, c.StoredStatus, c.Description, c.ExpiresAt).
		Scan(&c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to create registration code: %w", err)
	}

	return nil
}

// List returns codes newest first. An empty createdBy lists every code.
func (s *PostgresStore) List(ctx context.Context, createdBy string) ([]*RegistrationCode, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if createdBy == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+codeColumns+` FROM registration_codes ORDER BY created_at DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+codeColumns+` FROM registration_codes WHERE created_by = $1 ORDER BY created_at DESC`, createdBy)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list registration codes: %w", err)
	}
	defer rows.Close()

	codes := []*RegistrationCode{}
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration code: %w", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registration codes: %w", err)
	}

	return codes, nil
}

// GetByID retrieves a code by row ID
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*RegistrationCode, error) {
	return s.getOne(ctx, `SELECT `+codeColumns+` FROM registration_codes WHERE id = $1`, id)
}

// GetByCode retrieves a code by its value
func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*RegistrationCode, error) {
	return s.getOne(ctx, `SELECT `+codeColumns+` FROM registration_codes WHERE code = $1`, code)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg string) (*RegistrationCode, error) {
	c, err := scanCode(s.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration code: %w", err)
	}
	return c, nil
}

// Revoke marks an active code revoked. It reports false when the code was
// not active.
func (s *PostgresStore) Revoke(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE registration_codes SET status = 'revoked' WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke registration code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Redeem atomically marks a usable code as used by agentID. It returns
// (nil, nil) when no usable code matched.
func (s *PostgresStore) Redeem(ctx context.Context, code, agentID string, now time.Time) (*RegistrationCode, error) {
	query := `
		UPDATE registration_codes
		SET status = 'used', used_by_agent_id = $2, used_at = $3
		WHERE code = $1 AND status = 'active' AND used_at IS NULL AND expires_at > $3
		RETURNING ` + codeColumns

	c, err := scanCode(s.db.QueryRowContext(ctx, query, code, agentID, now))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to redeem registration code: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*RegistrationCode, error) {
	c := &RegistrationCode{}
	var description, usedBy sql.NullString
	var usedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.Code, &c.CreatedBy, &c.StoredStatus, &description,
		&c.ExpiresAt, &usedBy, &usedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		c.Description = description.String
	}
	if usedBy.Valid {
		id := usedBy.String
		c.UsedByAgentID = &id
	}
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedAt = &t
	}
	return c, nil
}
