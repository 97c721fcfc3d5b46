package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	badgemigrations "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"
)

// OpenBunDB opens a bun handle over the pgx stdlib driver.
func OpenBunDB(connStr string) (*bun.DB, error) {
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql DB connection: %w", err)
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// RunMigrations applies the River schema and the badge migrations.
func RunMigrations(ctx context.Context, db *bun.DB, connStr string) error {
	migrator := migrate.NewMigrator(db, badgemigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	if err := runRiverMigrations(ctx, connStr); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run badge migrations: %w", err)
	}
	if !group.IsZero() {
		log.Printf("Migrated badge module to %s", group)
	}
	return nil
}

func runRiverMigrations(ctx context.Context, connStr string) error {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

// CleanBadgeTables removes all roster and award rows.
func CleanBadgeTables(ctx context.Context, db bun.IDB) error {
	_, err := db.ExecContext(ctx, `TRUNCATE user_badges, availability, members, teams CASCADE`)
	return err
}

// CountAwards returns the number of persisted awards for a member.
func CountAwards(ctx context.Context, db bun.IDB, memberID uuid.UUID) (int, error) {
	return db.NewSelect().Table("user_badges").Where("member_id = ?", memberID).Count(ctx)
}
