package badgedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a member row does not exist.
var ErrNotFound = errors.New("not found")

// MemberStatusRemoved marks members that left the team.
const MemberStatusRemoved = "removed"

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new badge repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetMember retrieves a roster member by id.
func (r *Impl) GetMember(ctx context.Context, db bun.IDB, memberID uuid.UUID) (*Member, error) {
	db = r.resolveDB(db)
	member := new(Member)
	err := db.NewSelect().
		Model(member).
		Where("m.id = ?", memberID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("badgedb.GetMember: %w", err)
	}
	return member, nil
}

// ListActiveMembers returns every non-removed member, optionally limited to a team.
func (r *Impl) ListActiveMembers(ctx context.Context, db bun.IDB, teamID *uuid.UUID) ([]Member, error) {
	db = r.resolveDB(db)
	var members []Member
	q := db.NewSelect().
		Model(&members).
		Where("COALESCE(m.status, '') <> ?", MemberStatusRemoved).
		OrderExpr("m.team_id ASC, m.id ASC")
	if teamID != nil {
		q = q.Where("m.team_id = ?", *teamID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("badgedb.ListActiveMembers: %w", err)
	}
	return members, nil
}

// ListActivityDates returns the distinct activity dates of a member, ascending.
func (r *Impl) ListActivityDates(ctx context.Context, db bun.IDB, memberID uuid.UUID) ([]time.Time, error) {
	db = r.resolveDB(db)
	var dates []time.Time
	err := db.NewSelect().
		Model((*AvailabilityRecord)(nil)).
		ColumnExpr("DISTINCT a.date").
		Where("a.member_id = ?", memberID).
		OrderExpr("a.date ASC").
		Scan(ctx, &dates)
	if err != nil {
		return nil, fmt.Errorf("badgedb.ListActivityDates: %w", err)
	}
	return dates, nil
}

// ListAwards returns the awards held in scope, restricted to types when given.
func (r *Impl) ListAwards(ctx context.Context, db bun.IDB, scope badgedomain.Scope, types []badgedomain.BadgeType) ([]UserBadge, error) {
	db = r.resolveDB(db)
	var badges []UserBadge
	q := db.NewSelect().
		Model(&badges).
		Where("ub.user_id = ?", scope.AccountID).
		Where("ub.member_id = ?", scope.MemberID).
		Where("ub.team_id = ?", scope.TeamID)
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		q = q.Where("ub.badge_type IN (?)", bun.In(names))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("badgedb.ListAwards: %w", err)
	}
	return badges, nil
}

// AwardExists reports whether the award identified by badge is persisted.
func (r *Impl) AwardExists(ctx context.Context, db bun.IDB, badge *UserBadge) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		Model((*UserBadge)(nil)).
		Where("ub.user_id = ?", badge.UserID).
		Where("ub.member_id = ?", badge.MemberID).
		Where("ub.team_id = ?", badge.TeamID).
		Where("ub.badge_type = ?", badge.BadgeType).
		Where("ub.week_year = ?", badge.WeekYear).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("badgedb.AwardExists: %w", err)
	}
	return exists, nil
}

// InsertAward persists badge. A conflict on the award identity leaves the
// existing row untouched and returns badgedomain.ErrDuplicateIgnored.
func (r *Impl) InsertAward(ctx context.Context, db bun.IDB, badge *UserBadge) error {
	db = r.resolveDB(db)
	if badge.ID == uuid.Nil {
		badge.ID = uuid.New()
	}
	if badge.EarnedAt.IsZero() {
		badge.EarnedAt = time.Now().UTC()
	}
	res, err := db.NewInsert().
		Model(badge).
		On("CONFLICT (user_id, member_id, team_id, badge_type, week_year) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("badgedb.InsertAward: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("badgedb.InsertAward: rows affected: %w", err)
	}
	if rows == 0 {
		return badgedomain.ErrDuplicateIgnored
	}
	return nil
}

// ListAwardsByMember lists a member's awards, newest first.
func (r *Impl) ListAwardsByMember(ctx context.Context, db bun.IDB, memberID uuid.UUID, teamID *uuid.UUID, limit int) ([]BadgeRow, error) {
	db = r.resolveDB(db)
	var rows []BadgeRow
	q := db.NewSelect().
		TableExpr("user_badges AS ub").
		ColumnExpr("ub.id, ub.user_id, ub.member_id, ub.team_id, ub.badge_type, ub.week_year, ub.earned_at, ub.metadata").
		ColumnExpr("COALESCE(t.name, '') AS team_name").
		Join("LEFT JOIN teams AS t ON t.id = ub.team_id").
		Where("ub.member_id = ?", memberID).
		OrderExpr("ub.earned_at DESC").
		Limit(limit)
	if teamID != nil {
		q = q.Where("ub.team_id = ?", *teamID)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("badgedb.ListAwardsByMember: %w", err)
	}
	return rows, nil
}

// ListAwardsByEmail lists the awards of every member sharing email.
func (r *Impl) ListAwardsByEmail(ctx context.Context, db bun.IDB, email string, teamID *uuid.UUID, limit int) ([]BadgeRow, error) {
	db = r.resolveDB(db)
	var rows []BadgeRow
	err := db.NewRaw(
		"SELECT * FROM get_user_badges(?, ?, ?)",
		email, teamID, limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("badgedb.ListAwardsByEmail: %w", err)
	}
	return rows, nil
}

// Leaderboard ranks a team's members by award count.
func (r *Impl) Leaderboard(ctx context.Context, db bun.IDB, teamID uuid.UUID, limit int) ([]LeaderboardRow, error) {
	db = r.resolveDB(db)
	var rows []LeaderboardRow
	err := db.NewRaw(
		"SELECT * FROM get_badge_leaderboard(?, ?)",
		teamID, limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("badgedb.Leaderboard: %w", err)
	}
	return rows, nil
}

// Ping checks the connection.
func (r *Impl) Ping(ctx context.Context, db bun.IDB) error {
	db = r.resolveDB(db)
	var one int
	if err := db.NewRaw("SELECT 1").Scan(ctx, &one); err != nil {
		return fmt.Errorf("badgedb.Ping: %w", err)
	}
	return nil
}
