package agents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var agentColumnNames = []string{"id", "agent_id", "name", "owner_user_id", "device_id", "api_key_hash", "status", "last_seen_at", "created_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresStore(db), mock, db
}

func TestPostgresStore_GetByAgentID(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM agents WHERE agent_id = \$1`).
			WithArgs("build-01").
			WillReturnRows(sqlmock.NewRows(agentColumnNames).
				AddRow("row-1", "build-01", "Build runner", "user-1", nil, "salt:hash", "revoked", now, now))

		agent, err := store.GetByAgentID(ctx, "build-01")
		require.NoError(t, err)
		assert.Equal(t, "row-1", agent.ID)
		assert.Equal(t, StatusRevoked, agent.Status)
		require.NotNil(t, agent.OwnerUserID)
		assert.Equal(t, "user-1", *agent.OwnerUserID)
		assert.Nil(t, agent.DeviceID)
		require.NotNil(t, agent.LastSeenAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM agents WHERE agent_id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(agentColumnNames))

		_, err := store.GetByAgentID(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_ListActive(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM agents WHERE status = \$1 ORDER BY created_at`).
		WithArgs(StatusActive).
		WillReturnRows(sqlmock.NewRows(agentColumnNames).
			AddRow("row-1", "a1", "A1", nil, nil, "h1", "active", nil, now).
			AddRow("row-2", "a2", "A2", "user-2", "device-2", "h2", "active", nil, now))

	agents, err := store.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Nil(t, agents[0].OwnerUserID)
	assert.Nil(t, agents[0].LastSeenAt)
	require.NotNil(t, agents[1].DeviceID)
	assert.Equal(t, "device-2", *agents[1].DeviceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()
	owner := "user-1"

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`INSERT INTO agents`).
			WithArgs(sqlmock.AnyArg(), "a1", "Agent 1", "user-1", nil, "salt:hash", StatusActive).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

		agent := &Agent{AgentID: "a1", Name: "Agent 1", OwnerUserID: &owner, APIKeyHash: "salt:hash"}
		require.NoError(t, store.Create(ctx, agent))
		assert.NotEmpty(t, agent.ID)
		assert.Equal(t, StatusActive, agent.Status)
		assert.Equal(t, now, agent.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate agent id", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO agents`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := store.Create(ctx, &Agent{AgentID: "a1", Name: "Agent 1", APIKeyHash: "salt:hash"})
		assert.True(t, errors.Is(err, ErrAgentExists))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_TouchLastSeen(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	at := time.Now()

	mock.ExpectExec(`UPDATE agents SET last_seen_at = \$1 WHERE id = \$2`).
		WithArgs(at, "row-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.TouchLastSeen(context.Background(), "row-1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}
