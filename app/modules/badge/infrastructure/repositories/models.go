package badgedb

import (
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Member is a team roster row. The table is owned by the roster subsystem.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid"`
	TeamID     uuid.UUID  `bun:"team_id,type:uuid,notnull"`
	AuthUserID *uuid.UUID `bun:"auth_user_id,type:uuid"`
	Email      string     `bun:"email"`
	FirstName  string     `bun:"first_name"`
	LastName   string     `bun:"last_name"`
	Status     string     `bun:"status"`
}

// ToDomain converts the row to the domain member.
func (m *Member) ToDomain() badgedomain.Member {
	return badgedomain.Member{
		ID:        m.ID,
		TeamID:    m.TeamID,
		AccountID: m.AuthUserID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Status:    m.Status,
	}
}

// AvailabilityRecord is one activity entry. Written by the availability
// subsystem; read-only here.
type AvailabilityRecord struct {
	bun.BaseModel `bun:"table:availability,alias:a"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid"`
	MemberID  uuid.UUID  `bun:"member_id,type:uuid,notnull"`
	Date      time.Time  `bun:"date,type:date,notnull"`
	Status    string     `bun:"status"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	CreatedBy *uuid.UUID `bun:"created_by,type:uuid"`
}

// UserBadge is a persisted award. Unique per
// (user_id, member_id, team_id, badge_type, week_year).
type UserBadge struct {
	bun.BaseModel `bun:"table:user_badges,alias:ub"`

	ID        uuid.UUID      `bun:"id,pk,type:uuid"`
	UserID    uuid.UUID      `bun:"user_id,type:uuid,notnull"`
	MemberID  uuid.UUID      `bun:"member_id,type:uuid,notnull"`
	TeamID    uuid.UUID      `bun:"team_id,type:uuid,notnull"`
	BadgeType string         `bun:"badge_type,notnull"`
	WeekYear  string         `bun:"week_year,notnull"`
	EarnedAt  time.Time      `bun:"earned_at,notnull"`
	Metadata  map[string]any `bun:"metadata,type:jsonb"`
}

// NewUserBadge builds an award row for scope and key.
func NewUserBadge(scope badgedomain.Scope, key badgedomain.AwardKey, earnedAt time.Time, metadata map[string]any) *UserBadge {
	return &UserBadge{
		ID:        uuid.New(),
		UserID:    scope.AccountID,
		MemberID:  scope.MemberID,
		TeamID:    scope.TeamID,
		BadgeType: string(key.Type),
		WeekYear:  string(key.Period),
		EarnedAt:  earnedAt.UTC(),
		Metadata:  metadata,
	}
}

// ToDomain converts the row to the domain award.
func (b *UserBadge) ToDomain() badgedomain.Award {
	return badgedomain.Award{
		ID: b.ID,
		Scope: badgedomain.Scope{
			AccountID: b.UserID,
			MemberID:  b.MemberID,
			TeamID:    b.TeamID,
		},
		Type:     badgedomain.BadgeType(b.BadgeType),
		Period:   badgedomain.PeriodKey(b.WeekYear),
		EarnedAt: b.EarnedAt,
		Metadata: b.Metadata,
	}
}

// BadgeRow is a listed award joined with its team name.
type BadgeRow struct {
	ID        uuid.UUID      `bun:"id"`
	UserID    uuid.UUID      `bun:"user_id"`
	MemberID  uuid.UUID      `bun:"member_id"`
	TeamID    uuid.UUID      `bun:"team_id"`
	TeamName  string         `bun:"team_name"`
	BadgeType string         `bun:"badge_type"`
	WeekYear  string         `bun:"week_year"`
	EarnedAt  time.Time      `bun:"earned_at"`
	Metadata  map[string]any `bun:"metadata,type:jsonb"`
}

// ToDomain converts the row to the domain award.
func (r *BadgeRow) ToDomain() badgedomain.Award {
	return badgedomain.Award{
		ID: r.ID,
		Scope: badgedomain.Scope{
			AccountID: r.UserID,
			MemberID:  r.MemberID,
			TeamID:    r.TeamID,
		},
		Type:     badgedomain.BadgeType(r.BadgeType),
		Period:   badgedomain.PeriodKey(r.WeekYear),
		EarnedAt: r.EarnedAt,
		Metadata: r.Metadata,
		TeamName: r.TeamName,
	}
}

// LeaderboardRow is one row of get_badge_leaderboard.
type LeaderboardRow struct {
	MemberID     uuid.UUID `bun:"member_id"`
	MemberName   string    `bun:"member_name"`
	TotalBadges  int       `bun:"total_badges"`
	TimelyBadges int       `bun:"timely_badges"`
	HelperBadges int       `bun:"helper_badges"`
	StreakBadges int       `bun:"streak_badges"`
	Rank         int       `bun:"rank"`
}

// TimelyWeekRow is the timeliness verdict for one week.
type TimelyWeekRow struct {
	WeekStart time.Time `bun:"week_start"`
	Timely    bool      `bun:"timely"`
}
