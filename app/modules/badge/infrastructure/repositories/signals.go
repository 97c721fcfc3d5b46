package badgedb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TimelyWeeks evaluates check_timely_completion once per week in a single
// round trip.
func (r *Impl) TimelyWeeks(ctx context.Context, db bun.IDB, memberID, teamID uuid.UUID, from, to time.Time) ([]TimelyWeekRow, error) {
	db = r.resolveDB(db)
	var rows []TimelyWeekRow
	err := db.NewRaw(`
		SELECT w::date AS week_start,
		       COALESCE(check_timely_completion(?, ?, w::date), false) AS timely
		FROM generate_series(?::date, ?::date, interval '7 days') AS w
		ORDER BY w ASC`,
		memberID, teamID, from.Format(time.DateOnly), to.Format(time.DateOnly),
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("badgedb.TimelyWeeks: %w", err)
	}
	return rows, nil
}

// HelpedMembers returns the teammates whose schedule the member filled in
// during the week starting at weekStart.
func (r *Impl) HelpedMembers(ctx context.Context, db bun.IDB, memberID, teamID uuid.UUID, weekStart time.Time) ([]uuid.UUID, error) {
	db = r.resolveDB(db)
	var ids []uuid.UUID
	err := db.NewRaw(
		"SELECT helped_member_id FROM check_helped_others(?, ?, ?::date)",
		memberID, teamID, weekStart.Format(time.DateOnly),
	).Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("badgedb.HelpedMembers: %w", err)
	}
	return ids, nil
}
