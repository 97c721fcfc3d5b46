package badgedb

import (
	"context"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for badge persistence. Every method takes
// the bun.IDB of the channel chosen by the caller; nil falls back to the
// repository default.
type Repository interface {
	// GetMember retrieves a roster member by id.
	GetMember(ctx context.Context, db bun.IDB, memberID uuid.UUID) (*Member, error)

	// ListActiveMembers returns every non-removed member, optionally limited to a team.
	ListActiveMembers(ctx context.Context, db bun.IDB, teamID *uuid.UUID) ([]Member, error)

	// ListActivityDates returns the distinct activity dates of a member, ascending.
	ListActivityDates(ctx context.Context, db bun.IDB, memberID uuid.UUID) ([]time.Time, error)

	// ListAwards returns the awards held in scope, restricted to types when given.
	ListAwards(ctx context.Context, db bun.IDB, scope badgedomain.Scope, types []badgedomain.BadgeType) ([]UserBadge, error)

	// AwardExists reports whether the award identified by badge is persisted.
	AwardExists(ctx context.Context, db bun.IDB, badge *UserBadge) (bool, error)

	// InsertAward persists badge. It returns badgedomain.ErrDuplicateIgnored
	// when the unique constraint already holds the award.
	InsertAward(ctx context.Context, db bun.IDB, badge *UserBadge) error

	// ListAwardsByMember lists a member's awards, newest first.
	ListAwardsByMember(ctx context.Context, db bun.IDB, memberID uuid.UUID, teamID *uuid.UUID, limit int) ([]BadgeRow, error)

	// ListAwardsByEmail lists the awards of every member sharing email via get_user_badges.
	ListAwardsByEmail(ctx context.Context, db bun.IDB, email string, teamID *uuid.UUID, limit int) ([]BadgeRow, error)

	// Leaderboard ranks a team's members by award count via get_badge_leaderboard.
	Leaderboard(ctx context.Context, db bun.IDB, teamID uuid.UUID, limit int) ([]LeaderboardRow, error)

	// TimelyWeeks evaluates check_timely_completion for each week starting
	// between from and to inclusive.
	TimelyWeeks(ctx context.Context, db bun.IDB, memberID, teamID uuid.UUID, from, to time.Time) ([]TimelyWeekRow, error)

	// HelpedMembers returns the teammates whose schedule the member filled in during the week.
	HelpedMembers(ctx context.Context, db bun.IDB, memberID, teamID uuid.UUID, weekStart time.Time) ([]uuid.UUID, error)

	// Ping checks the connection.
	Ping(ctx context.Context, db bun.IDB) error
}
