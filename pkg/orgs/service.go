package orgs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrOrganizationNotFound is returned when no active organization matches
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrNotMember is returned when a user has no membership in an organization
	ErrNotMember = errors.New("user is not a member of the organization")
	// ErrMemberExists is returned when adding a duplicate membership
	ErrMemberExists = errors.New("member already exists")
	// ErrUserNotFound is returned when no user matches an email
	ErrUserNotFound = errors.New("user not found")
)

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateOrganization creates a new organization
func (s *PostgresService) CreateOrganization(ctx context.Context, org *Organization) error {
	if org.Status == "" {
		org.Status = OrgStatusActive
	}

	metadata := org.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO organizations (name, domain, status, metadata)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query, org.Name, org.Domain, org.Status, string(metadataJSON)).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetOrganization retrieves an active organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, domain, status, metadata, created_at, updated_at
		FROM organizations
		WHERE id = $1 AND status = 'active'
	`
	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// ListOrganizations retrieves the active organizations among ids
func (s *PostgresService) ListOrganizations(ctx context.Context, ids []string) ([]*Organization, error) {
	if len(ids) == 0 {
		return []*Organization{}, nil
	}

	query := `
		SELECT id, name, domain, status, metadata, created_at, updated_at
		FROM organizations
		WHERE id = ANY($1) AND status = 'active'
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]*Organization, 0, len(ids))
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}

	return orgs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*Organization, error) {
	org := &Organization{}
	var domain sql.NullString
	var metadata []byte
	if err := row.Scan(&org.ID, &org.Name, &domain, &org.Status, &metadata, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	if domain.Valid {
		org.Domain = domain.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &org.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return org, nil
}
