//go:build integration

package crash

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("kestrel_test"),
		tcpostgres.WithUsername("kestrel_test"),
		tcpostgres.WithPassword("kestrel_test"),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &StoreConfig{
		Type: DatabaseTypePostgres,
		Postgres: PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: "kestrel_test",
			User:     "kestrel_test",
			Password: "kestrel_test",
		},
	}
	store, err := OpenStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	r := NewReporter(store, "kestrel", "dev")
	r.Install(true)
	id, err := r.Record(ctx, KindFatal, assert.AnError, nil, true)
	require.NoError(t, err)

	// Read the row back through a plain pgx pool to check the schema.
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	var kind string
	require.NoError(t, pool.QueryRow(ctx, "SELECT kind FROM crash_reports WHERE crash_id = $1", id).Scan(&kind))
	assert.Equal(t, KindFatal, kind)
}
