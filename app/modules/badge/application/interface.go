package badgeservice

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Service defines the badge engine operations.
type Service interface {
	// CheckAndAward evaluates a member as of now and persists new awards.
	CheckAndAward(ctx context.Context, memberID, teamID uuid.UUID) (CheckAndAwardResult, error)
	// CheckAndAwardAt evaluates a member as of asOf and persists new awards.
	CheckAndAwardAt(ctx context.Context, memberID, teamID uuid.UUID, asOf time.Time) (CheckAndAwardResult, error)
	// PreviewEligibility evaluates a member without awarding.
	PreviewEligibility(ctx context.Context, memberID, teamID uuid.UUID) (EligibilityPreview, error)

	// ListBadges lists awards grouped by discipline.
	ListBadges(ctx context.Context, query BadgeQuery) (BadgeList, error)
	// Leaderboard ranks a team's members by award count.
	Leaderboard(ctx context.Context, teamID uuid.UUID, limit int) (LeaderboardResult, error)
	// LeaderboardChart renders the leaderboard as a PNG bar chart.
	LeaderboardChart(ctx context.Context, teamID uuid.UUID, limit int) ([]byte, error)
	// ExportLeaderboard writes the leaderboard and catalog as an XLSX workbook.
	ExportLeaderboard(ctx context.Context, teamID uuid.UUID, w io.Writer) error

	// BackfillAll runs CheckAndAwardAt for every active member.
	BackfillAll(ctx context.Context, teamID *uuid.UUID, asOf time.Time) (BackfillSummary, error)
	// Ping checks every configured data channel.
	Ping(ctx context.Context) ([]ChannelHealth, error)
}
