package badgemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating badge store functions...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE OR REPLACE FUNCTION get_user_badges(
					p_user_email TEXT,
					p_team_id UUID DEFAULT NULL,
					p_limit INT DEFAULT 50
				)
				RETURNS TABLE (
					id UUID,
					user_id UUID,
					member_id UUID,
					team_id UUID,
					team_name TEXT,
					badge_type TEXT,
					week_year TEXT,
					earned_at TIMESTAMPTZ,
					metadata JSONB
				)
				LANGUAGE sql STABLE AS $$
					SELECT ub.id, ub.user_id, ub.member_id, ub.team_id,
					       COALESCE(t.name, '')::text,
					       ub.badge_type, ub.week_year, ub.earned_at, ub.metadata
					FROM user_badges ub
					JOIN members m ON m.id = ub.member_id
					LEFT JOIN teams t ON t.id = ub.team_id
					WHERE lower(m.email) = lower(p_user_email)
					  AND (p_team_id IS NULL OR ub.team_id = p_team_id)
					ORDER BY ub.earned_at DESC
					LIMIT GREATEST(COALESCE(p_limit, 50), 1);
				$$;
			`); err != nil {
				return fmt.Errorf("failed to create get_user_badges: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE OR REPLACE FUNCTION get_badge_leaderboard(
					p_team_id UUID,
					p_limit INT DEFAULT 10
				)
				RETURNS TABLE (
					member_id UUID,
					member_name TEXT,
					total_badges INT,
					timely_badges INT,
					helper_badges INT,
					streak_badges INT,
					rank INT
				)
				LANGUAGE sql STABLE AS $$
					WITH counts AS (
						SELECT m.id AS mid,
						       COALESCE(NULLIF(trim(concat_ws(' ', m.first_name, m.last_name)), ''), m.email) AS mname,
						       COUNT(ub.id)::int AS total,
						       (COUNT(ub.id) FILTER (WHERE ub.badge_type = 'timely_completion'))::int AS timely,
						       (COUNT(ub.id) FILTER (WHERE ub.badge_type = 'helped_other'))::int AS helper,
						       (COUNT(ub.id) FILTER (WHERE ub.badge_type LIKE 'streak\_%'))::int AS streak
						FROM members m
						JOIN user_badges ub ON ub.member_id = m.id AND ub.team_id = p_team_id
						WHERE m.team_id = p_team_id
						GROUP BY m.id, m.first_name, m.last_name, m.email
					)
					SELECT c.mid, c.mname, c.total, c.timely, c.helper, c.streak,
					       (RANK() OVER (ORDER BY c.total DESC))::int
					FROM counts c
					ORDER BY 7 ASC, 2 ASC
					LIMIT GREATEST(COALESCE(p_limit, 10), 1);
				$$;
			`); err != nil {
				return fmt.Errorf("failed to create get_badge_leaderboard: %w", err)
			}

			// A week is timely when all five weekdays were recorded before the
			// week started.
			if _, err := tx.ExecContext(ctx, `
				CREATE OR REPLACE FUNCTION check_timely_completion(
					p_member_id UUID,
					p_team_id UUID,
					p_week_start DATE
				)
				RETURNS BOOLEAN
				LANGUAGE sql STABLE AS $$
					SELECT COUNT(DISTINCT a.date) = 5
					FROM availability a
					JOIN members m ON m.id = a.member_id
					WHERE a.member_id = p_member_id
					  AND m.team_id = p_team_id
					  AND a.date BETWEEN p_week_start AND p_week_start + 4
					  AND a.created_at < (p_week_start::timestamp AT TIME ZONE 'UTC');
				$$;
			`); err != nil {
				return fmt.Errorf("failed to create check_timely_completion: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE OR REPLACE FUNCTION check_helped_others(
					p_member_id UUID,
					p_team_id UUID,
					p_week_start DATE
				)
				RETURNS TABLE (helped_member_id UUID)
				LANGUAGE sql STABLE AS $$
					SELECT DISTINCT a.member_id
					FROM availability a
					JOIN members helper ON helper.id = p_member_id
					JOIN members target ON target.id = a.member_id
					WHERE helper.auth_user_id IS NOT NULL
					  AND a.created_by = helper.auth_user_id
					  AND a.member_id <> p_member_id
					  AND target.team_id = p_team_id
					  AND a.created_at >= (p_week_start::timestamp AT TIME ZONE 'UTC')
					  AND a.created_at < ((p_week_start + 7)::timestamp AT TIME ZONE 'UTC');
				$$;
			`); err != nil {
				return fmt.Errorf("failed to create check_helped_others: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping badge store functions...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP FUNCTION IF EXISTS check_helped_others(UUID, UUID, DATE);
				DROP FUNCTION IF EXISTS check_timely_completion(UUID, UUID, DATE);
				DROP FUNCTION IF EXISTS get_badge_leaderboard(UUID, INT);
				DROP FUNCTION IF EXISTS get_user_badges(TEXT, UUID, INT);
			`); err != nil {
				return fmt.Errorf("failed to drop badge functions: %w", err)
			}
			return nil
		})
	})
}
