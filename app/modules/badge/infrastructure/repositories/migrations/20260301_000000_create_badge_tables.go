package badgemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating badge tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			// Roster and availability tables belong to other subsystems; they are
			// created here only when missing so a fresh database is usable.
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS teams (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS members (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					auth_user_id UUID,
					email TEXT NOT NULL DEFAULT '',
					first_name TEXT NOT NULL DEFAULT '',
					last_name TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'active',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_members_team_id ON members(team_id);
				CREATE INDEX IF NOT EXISTS idx_members_email_lower ON members(lower(email));

				CREATE TABLE IF NOT EXISTS availability (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					member_id UUID NOT NULL REFERENCES members(id) ON DELETE CASCADE,
					date DATE NOT NULL,
					status TEXT NOT NULL DEFAULT 'office',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					created_by UUID,
					UNIQUE (member_id, date)
				);
				CREATE INDEX IF NOT EXISTS idx_availability_member_date ON availability(member_id, date);
				CREATE INDEX IF NOT EXISTS idx_availability_created_by ON availability(created_by, created_at);
			`); err != nil {
				return fmt.Errorf("failed to create roster tables: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS user_badges (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL,
					member_id UUID NOT NULL REFERENCES members(id) ON DELETE CASCADE,
					team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					badge_type TEXT NOT NULL,
					week_year TEXT NOT NULL,
					earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					metadata JSONB,
					CONSTRAINT user_badges_award_unique UNIQUE (user_id, member_id, team_id, badge_type, week_year)
				);
				CREATE INDEX IF NOT EXISTS idx_user_badges_member ON user_badges(member_id, earned_at DESC);
				CREATE INDEX IF NOT EXISTS idx_user_badges_team_type ON user_badges(team_id, badge_type);
			`); err != nil {
				return fmt.Errorf("failed to create user_badges table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping badge tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			// Only the table this module owns is dropped.
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS user_badges;`); err != nil {
				return fmt.Errorf("failed to drop user_badges table: %w", err)
			}
			return nil
		})
	})
}
