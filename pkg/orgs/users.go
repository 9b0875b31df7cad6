package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
)

// FindUserByEmail resolves a user record for development demo tokens
func (s *PostgresService) FindUserByEmail(ctx context.Context, email string) (*auth.DirectoryUser, error) {
	query := `
		SELECT id, email, name, role
		FROM users
		WHERE lower(email) = lower($1)
	`
	user := &auth.DirectoryUser{}
	var name, role sql.NullString
	err := s.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &name, &role)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if name.Valid {
		user.Name = name.String
	}
	if role.Valid && role.String != "" {
		user.Roles = []string{role.String}
	}

	return user, nil
}
