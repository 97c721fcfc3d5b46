package badgeservice

import (
	"context"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/google/uuid"
)

// WarningNotConfigured is reported instead of an error when the store lacks
// the badge tables or functions.
const WarningNotConfigured = "not configured"

// SkipNoAccount is the skip reason for members without a linked account.
const SkipNoAccount = "member has no linked account"

// ActivitySummary is the aggregated activity history of a member.
type ActivitySummary struct {
	DistinctDayCount int
	// Dates are distinct UTC calendar days, ascending.
	Dates           []time.Time
	LongestDailyRun int
}

// WeekStatus is the timeliness verdict of one ISO week.
type WeekStatus struct {
	Start  time.Time
	Timely bool
}

// TimelinessSignal lists consecutive weeks, oldest first, ending with the
// week of the evaluation date.
type TimelinessSignal struct {
	Weeks []WeekStatus
}

// HelpSignal counts teammates helped during the current week.
type HelpSignal struct {
	WeekStart   time.Time
	HelpedCount int
}

// Signals is the evaluator input. A nil signal is unavailable and its rules
// are skipped.
type Signals struct {
	AsOf       time.Time
	Activity   ActivitySummary
	Timeliness *TimelinessSignal
	Help       *HelpSignal
}

// SignalAvailability reports which optional signals were read.
type SignalAvailability struct {
	Timeliness bool `json:"timeliness"`
	Help       bool `json:"help"`
}

// AwardFailure is an award that could not be persisted.
type AwardFailure struct {
	Key badgedomain.AwardKey
	Err error
}

// ReconcileResult is the outcome of persisting a qualifying set.
type ReconcileResult struct {
	NewlyAwarded      []badgedomain.Award
	AlreadyHeld       []badgedomain.AwardKey
	DuplicatesIgnored int
	Failures          []AwardFailure
}

// Stats summarises a CheckAndAward run.
type Stats struct {
	DistinctDayCount  int `json:"distinctDays"`
	LongestDailyRun   int `json:"longestDailyRun"`
	Eligible          int `json:"eligible"`
	New               int `json:"new"`
	AlreadyHeld       int `json:"alreadyHeld"`
	DuplicatesIgnored int `json:"duplicatesIgnored"`
	Failed            int `json:"failed"`
}

// CheckAndAwardResult is returned by CheckAndAward.
type CheckAndAwardResult struct {
	MemberID    uuid.UUID
	TeamID      uuid.UUID
	AsOf        time.Time
	NewBadges   []badgedomain.Award
	AlreadyHeld []badgedomain.AwardKey
	Failures    []AwardFailure
	Stats       Stats
	Signals     SignalAvailability
	// Skipped is set when the member was not evaluated.
	Skipped string
}

// EligibilityPreview is the qualifying set of a member without awarding it.
type EligibilityPreview struct {
	MemberID    uuid.UUID
	TeamID      uuid.UUID
	AsOf        time.Time
	Qualifying  []badgedomain.AwardKey
	AlreadyHeld []badgedomain.AwardKey
	Pending     []badgedomain.AwardKey
	Activity    ActivitySummary
	HelpedCount int
	Signals     SignalAvailability
	Skipped     string
}

// BadgeQuery selects the awards to list. Exactly one of MemberID or Email is set.
type BadgeQuery struct {
	MemberID *uuid.UUID
	Email    string
	TeamID   *uuid.UUID
	Limit    int
}

// BadgeView is a listed award enriched from the catalog.
type BadgeView struct {
	ID          uuid.UUID              `json:"id"`
	MemberID    uuid.UUID              `json:"memberId"`
	TeamID      uuid.UUID              `json:"teamId"`
	TeamName    string                 `json:"teamName,omitempty"`
	Type        badgedomain.BadgeType  `json:"badgeType"`
	Discipline  badgedomain.Discipline `json:"discipline"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Period      badgedomain.PeriodKey  `json:"period"`
	EarnedAt    time.Time              `json:"earnedAt"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}

// BadgeGroup holds the awards of one discipline.
type BadgeGroup struct {
	Discipline badgedomain.Discipline `json:"discipline"`
	Badges     []BadgeView            `json:"badges"`
}

// BadgeList is the result of ListBadges.
type BadgeList struct {
	Badges  []BadgeView  `json:"badges"`
	Groups  []BadgeGroup `json:"groups"`
	Count   int          `json:"count"`
	Warning string       `json:"warning,omitempty"`
}

// LeaderboardEntry is one ranked member.
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	MemberID     uuid.UUID `json:"memberId"`
	MemberName   string    `json:"memberName"`
	TotalBadges  int       `json:"totalBadges"`
	TimelyBadges int       `json:"timelyBadges"`
	HelperBadges int       `json:"helperBadges"`
	StreakBadges int       `json:"streakBadges"`
}

// LeaderboardResult is the result of Leaderboard.
type LeaderboardResult struct {
	TeamID  uuid.UUID          `json:"teamId"`
	Entries []LeaderboardEntry `json:"entries"`
	Warning string             `json:"warning,omitempty"`
}

// MemberFailure records a member that failed during a backfill.
type MemberFailure struct {
	MemberID uuid.UUID
	Err      error
}

// BackfillSummary is the result of BackfillAll.
type BackfillSummary struct {
	AsOf      time.Time
	Members   int
	Processed int
	Skipped   int
	Awarded   int
	Failures  []MemberFailure
}

// ChannelHealth is the ping result of one data channel.
type ChannelHealth struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Notifier is told about newly persisted awards.
type Notifier interface {
	AwardsGranted(ctx context.Context, member badgedomain.Member, awards []badgedomain.Award) error
}
