package badgehandlers

import (
	"context"
	"io"
	"time"

	badgeservice "github.com/Black-And-White-Club/rota-badges/app/modules/badge/application"
	"github.com/google/uuid"
)

// ------------------------
// Fake Service
// ------------------------

type FakeService struct {
	CheckAndAwardFunc      func(ctx context.Context, memberID, teamID uuid.UUID) (badgeservice.CheckAndAwardResult, error)
	CheckAndAwardAtFunc    func(ctx context.Context, memberID, teamID uuid.UUID, asOf time.Time) (badgeservice.CheckAndAwardResult, error)
	PreviewEligibilityFunc func(ctx context.Context, memberID, teamID uuid.UUID) (badgeservice.EligibilityPreview, error)
	ListBadgesFunc         func(ctx context.Context, query badgeservice.BadgeQuery) (badgeservice.BadgeList, error)
	LeaderboardFunc        func(ctx context.Context, teamID uuid.UUID, limit int) (badgeservice.LeaderboardResult, error)
	LeaderboardChartFunc   func(ctx context.Context, teamID uuid.UUID, limit int) ([]byte, error)
	ExportLeaderboardFunc  func(ctx context.Context, teamID uuid.UUID, w io.Writer) error
	BackfillAllFunc        func(ctx context.Context, teamID *uuid.UUID, asOf time.Time) (badgeservice.BackfillSummary, error)
	PingFunc               func(ctx context.Context) ([]badgeservice.ChannelHealth, error)

	trace []string
}

func (f *FakeService) Trace() []string { return f.trace }

func (f *FakeService) CheckAndAward(ctx context.Context, memberID, teamID uuid.UUID) (badgeservice.CheckAndAwardResult, error) {
	f.trace = append(f.trace, "CheckAndAward")
	if f.CheckAndAwardFunc != nil {
		return f.CheckAndAwardFunc(ctx, memberID, teamID)
	}
	return badgeservice.CheckAndAwardResult{MemberID: memberID, TeamID: teamID}, nil
}

func (f *FakeService) CheckAndAwardAt(ctx context.Context, memberID, teamID uuid.UUID, asOf time.Time) (badgeservice.CheckAndAwardResult, error) {
	f.trace = append(f.trace, "CheckAndAwardAt")
	if f.CheckAndAwardAtFunc != nil {
		return f.CheckAndAwardAtFunc(ctx, memberID, teamID, asOf)
	}
	return badgeservice.CheckAndAwardResult{MemberID: memberID, TeamID: teamID, AsOf: asOf}, nil
}

func (f *FakeService) PreviewEligibility(ctx context.Context, memberID, teamID uuid.UUID) (badgeservice.EligibilityPreview, error) {
	f.trace = append(f.trace, "PreviewEligibility")
	if f.PreviewEligibilityFunc != nil {
		return f.PreviewEligibilityFunc(ctx, memberID, teamID)
	}
	return badgeservice.EligibilityPreview{MemberID: memberID, TeamID: teamID}, nil
}

func (f *FakeService) ListBadges(ctx context.Context, query badgeservice.BadgeQuery) (badgeservice.BadgeList, error) {
	f.trace = append(f.trace, "ListBadges")
	if f.ListBadgesFunc != nil {
		return f.ListBadgesFunc(ctx, query)
	}
	return badgeservice.BadgeList{Badges: []badgeservice.BadgeView{}, Groups: []badgeservice.BadgeGroup{}}, nil
}

func (f *FakeService) Leaderboard(ctx context.Context, teamID uuid.UUID, limit int) (badgeservice.LeaderboardResult, error) {
	f.trace = append(f.trace, "Leaderboard")
	if f.LeaderboardFunc != nil {
		return f.LeaderboardFunc(ctx, teamID, limit)
	}
	return badgeservice.LeaderboardResult{TeamID: teamID, Entries: []badgeservice.LeaderboardEntry{}}, nil
}

func (f *FakeService) LeaderboardChart(ctx context.Context, teamID uuid.UUID, limit int) ([]byte, error) {
	f.trace = append(f.trace, "LeaderboardChart")
	if f.LeaderboardChartFunc != nil {
		return f.LeaderboardChartFunc(ctx, teamID, limit)
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (f *FakeService) ExportLeaderboard(ctx context.Context, teamID uuid.UUID, w io.Writer) error {
	f.trace = append(f.trace, "ExportLeaderboard")
	if f.ExportLeaderboardFunc != nil {
		return f.ExportLeaderboardFunc(ctx, teamID, w)
	}
	return nil
}

func (f *FakeService) BackfillAll(ctx context.Context, teamID *uuid.UUID, asOf time.Time) (badgeservice.BackfillSummary, error) {
	f.trace = append(f.trace, "BackfillAll")
	if f.BackfillAllFunc != nil {
		return f.BackfillAllFunc(ctx, teamID, asOf)
	}
	return badgeservice.BackfillSummary{AsOf: asOf}, nil
}

func (f *FakeService) Ping(ctx context.Context) ([]badgeservice.ChannelHealth, error) {
	f.trace = append(f.trace, "Ping")
	if f.PingFunc != nil {
		return f.PingFunc(ctx)
	}
	return []badgeservice.ChannelHealth{{Channel: "restricted", OK: true}}, nil
}

var _ badgeservice.Service = (*FakeService)(nil)

// ------------------------
// Fake Queue
// ------------------------

type FakeQueue struct {
	EnqueueCheckFunc func(ctx context.Context, memberID, teamID uuid.UUID) error
	Enqueued         []uuid.UUID
}

func (f *FakeQueue) EnqueueCheck(ctx context.Context, memberID, teamID uuid.UUID) error {
	if f.EnqueueCheckFunc != nil {
		if err := f.EnqueueCheckFunc(ctx, memberID, teamID); err != nil {
			return err
		}
	}
	f.Enqueued = append(f.Enqueued, memberID)
	return nil
}
