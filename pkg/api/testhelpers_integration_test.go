//go:build integration

package api

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContainerCleanupOption configures container cleanup behavior
type TestContainerCleanupOption func(*testContainerCleanupConfig)

type testContainerCleanupConfig struct {
	removeVolumes  bool
	cleanupTimeout time.Duration
}

// WithRemoveVolumes removes the container's volumes on cleanup (default: true)
func WithRemoveVolumes(remove bool) TestContainerCleanupOption {
	return func(c *testContainerCleanupConfig) {
		c.removeVolumes = remove
	}
}

// WithCleanupTimeout bounds container termination (default: 30s)
func WithCleanupTimeout(timeout time.Duration) TestContainerCleanupOption {
	return func(c *testContainerCleanupConfig) {
		c.cleanupTimeout = timeout
	}
}

// SetupPostgresContainer starts PostgreSQL with the gatekeeper schema applied.
// The test is skipped when no container runtime is available.
//
//	db, cleanup := SetupPostgresContainer(t)
//	defer cleanup()
func SetupPostgresContainer(t *testing.T, opts ...TestContainerCleanupOption) (*sql.DB, func()) {
	t.Helper()

	config := &testContainerCleanupConfig{
		removeVolumes:  true,
		cleanupTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(config)
	}

	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	containerOpts := []testcontainers.ContainerCustomizer{
		postgres.WithDatabase("gatekeeper_test"),
		postgres.WithUsername("gatekeeper"),
		postgres.WithPassword("gatekeeper_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second)),
	}
	if config.removeVolumes {
		containerOpts = append(containerOpts,
			testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
				ContainerRequest: testcontainers.ContainerRequest{AutoRemove: true},
			}),
		)
	}

	container, err := postgres.Run(ctx, "postgres:15-alpine", containerOpts...)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, runMigrations(db), "Failed to run migrations")

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close database: %v", err)
		}

		// The test context may already be cancelled
		cleanupCtx, cancel := context.WithTimeout(context.Background(), config.cleanupTimeout)
		defer cancel()

		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

// runMigrations applies the up migrations from the repository root
func runMigrations(db *sql.DB) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	migrationsDir := filepath.Join(wd, "..", "..", "migrations")
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory not found at %s", migrationsDir)
	}

	migrationFiles := []string{
		"001_create_identity_schema.up.sql",
		"002_create_agent_schema.up.sql",
	}

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	return nil
}
