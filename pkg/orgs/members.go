package orgs

import (
	"context"
	"fmt"
)

// ListUserMemberships retrieves a user's memberships in active
// organizations, default first, then by organization name
func (s *PostgresService) ListUserMemberships(ctx context.Context, userID string) ([]*Membership, error) {
	query := `
		SELECT m.user_id, m.organization_id, o.name, m.is_default, m.created_at
		FROM organization_members m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND o.status = 'active'
		ORDER BY m.is_default DESC, o.name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	memberships := []*Membership{}
	for rows.Next() {
		m := &Membership{}
		if err := rows.Scan(&m.UserID, &m.OrganizationID, &m.OrganizationName, &m.IsDefault, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}

	return memberships, nil
}

// AddMember adds a user to an organization
func (s *PostgresService) AddMember(ctx context.Context, orgID, userID string, isDefault bool) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id, is_default)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, orgID, userID, isDefault)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberExists
	}

	return nil
}

// SetDefaultOrganization makes orgID the user's default organization.
//
// The previous default is cleared first and the new one set second, as two
// independent statements. If the second statement fails the user is left
// without a default. Concurrent calls for the same user may interleave.
func (s *PostgresService) SetDefaultOrganization(ctx context.Context, userID, orgID string) error {
	clearQuery := `UPDATE organization_members SET is_default = false WHERE user_id = $1 AND is_default = true`
	if _, err := s.db.ExecContext(ctx, clearQuery, userID); err != nil {
		return fmt.Errorf("failed to clear default organization: %w", err)
	}

	setQuery := `UPDATE organization_members SET is_default = true WHERE user_id = $1 AND organization_id = $2`
	result, err := s.db.ExecContext(ctx, setQuery, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to set default organization: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotMember
	}

	return nil
}
