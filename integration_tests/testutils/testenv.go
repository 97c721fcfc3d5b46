package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/Black-And-White-Club/rota-badges/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

// TestEnvironment holds the resources shared by integration tests.
type TestEnvironment struct {
	Ctx         context.Context
	Cancel      context.CancelFunc
	PgContainer *postgres.PostgresContainer
	ConnStr     string
	DB          *bun.DB
}

// NewTestEnvironment starts Postgres and applies all migrations.
func NewTestEnvironment(t *testing.T) (*TestEnvironment, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	pgContainer, connStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	db, err := OpenBunDB(connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		cancel()
		return nil, err
	}

	if err := RunMigrations(ctx, db, connStr); err != nil {
		db.Close()
		_ = pgContainer.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestEnvironment{
		Ctx:         ctx,
		Cancel:      cancel,
		PgContainer: pgContainer,
		ConnStr:     connStr,
		DB:          db,
	}, nil
}

// Reset truncates roster and award tables.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	return CleanBadgeTables(ctx, env.DB)
}

// CreateEmptyDatabase creates a database without any badge schema and
// returns its connection string.
func (env *TestEnvironment) CreateEmptyDatabase(ctx context.Context, name string) (string, error) {
	if _, err := env.DB.ExecContext(ctx, "DROP DATABASE IF EXISTS "+name); err != nil {
		return "", err
	}
	if _, err := env.DB.ExecContext(ctx, "CREATE DATABASE "+name); err != nil {
		return "", err
	}
	return containers.WithDatabase(env.ConnStr, name)
}

// Cleanup closes the connection and terminates the container.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.PgContainer != nil {
		_ = env.PgContainer.Terminate(context.Background())
	}
	env.Cancel()
}
