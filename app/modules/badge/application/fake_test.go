package badgeservice

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeaccess "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/access"
	badgemetrics "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/metrics"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

// ------------------------
// Fake Badge Repo
// ------------------------

// FakeBadgeRepo is an in-memory badgedb.Repository. Each method can be
// overridden through its Func field; otherwise it serves the seeded data and
// enforces the award unique constraint.
type FakeBadgeRepo struct {
	mu    sync.Mutex
	trace []string

	Members  map[uuid.UUID]badgedb.Member
	Activity map[uuid.UUID][]time.Time
	// TimelyWeekStarts holds the Mondays a member completed on time.
	TimelyWeekStarts map[uuid.UUID]map[time.Time]bool
	Helped           map[uuid.UUID][]uuid.UUID
	Awards           map[string]badgedb.UserBadge

	GetMemberFunc          func(ctx context.Context, db bun.IDB, memberID uuid.UUID) (*badgedb.Member, error)
	ListActiveMembersFunc  func(ctx context.Context, db bun.IDB, teamID *uuid.UUID) ([]badgedb.Member, error)
	ListActivityDatesFunc  func(ctx context.Context, db bun.IDB, memberID uuid.UUID) ([]time.Time, error)
	ListAwardsFunc         func(ctx context.Context, db bun.IDB, scope badgedomain.Scope, types []badgedomain.BadgeType) ([]badgedb.UserBadge, error)
	AwardExistsFunc        func(ctx context.Context, db bun.IDB, badge *badgedb.UserBadge) (bool, error)
	InsertAwardFunc        func(ctx context.Context, db bun.IDB, badge *badgedb.UserBadge) error
	ListAwardsByMemberFunc func(ctx context.Context, db bun.IDB, memberID uuid.UUID, teamID *uuid.UUID, limit int) ([]badgedb.BadgeRow, error)
	ListAwardsByEmailFunc  func(ctx context.Context, db bun.IDB, email string, teamID *uuid.UUID, limit int) ([]badgedb.BadgeRow, error)
	LeaderboardFunc        func(ctx context.Context, db bun.IDB, teamID uuid.UUID, limit int) ([]badgedb.LeaderboardRow, error)
	TimelyWeeksFunc        func(ctx context.Context, db bun.IDB, memberID, teamID uuid.UUID, from, to time.Time) ([]badgedb.TimelyWeekRow, error)
	HelpedMembersFunc      func(ctx context.Context, db bun.IDB, memberID, teamID uuid.UUID, weekStart time.Time) ([]uuid.UUID, error)
	PingFunc               func(ctx context.Context, db bun.IDB) error
}

var _ badgedb.Repository = (*FakeBadgeRepo)(nil)

// NewFakeBadgeRepo initializes an empty FakeBadgeRepo.
func NewFakeBadgeRepo() *FakeBadgeRepo {
	return &FakeBadgeRepo{
		trace:            []string{},
		Members:          map[uuid.UUID]badgedb.Member{},
		Activity:         map[uuid.UUID][]time.Time{},
		TimelyWeekStarts: map[uuid.UUID]map[time.Time]bool{},
		Helped:           map[uuid.UUID][]uuid.UUID{},
		Awards:           map[string]badgedb.UserBadge{},
	}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeBadgeRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeBadgeRepo) record(step string) {
	f.mu.Lock()
	f.trace = append(f.trace, step)
	f.mu.Unlock()
}

// AwardCount returns the number of persisted awards.
func (f *FakeBadgeRepo) AwardCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Awards)
}

func awardKey(b *badgedb.UserBadge) string {
	return b.UserID.String() + "|" + b.MemberID.String() + "|" + b.TeamID.String() + "|" + b.BadgeType + "|" + b.WeekYear
}

// --- Repository Interface Implementation ---

func (f *FakeBadgeRepo) GetMember(ctx context.Context, db bun.IDB, memberID uuid.UUID) (*badgedb.Member, error) {
	f.record("GetMember")
	if f.GetMemberFunc != nil {
		return f.GetMemberFunc(ctx, db, memberID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Members[memberID]
	if !ok {
		return nil, badgedb.ErrNotFound
	}
	return &m, nil
}

func (f *FakeBadgeRepo) ListActiveMembers(ctx context.Context, db bun.IDB, teamID *uuid.UUID) ([]badgedb.Member, error) {
	f.record("ListActiveMembers")
	if f.ListActiveMembersFunc != nil {
		return f.ListActiveMembersFunc(ctx, db, teamID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []badgedb.Member
	for _, m := range f.Members {
		if m.Status == badgedb.MemberStatusRemoved {
			continue
		}
		if teamID != nil && m.TeamID != *teamID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *FakeBadgeRepo) ListActivityDates(ctx context.Context, db bun.IDB, memberID uuid.UUID) ([]time.Time, error) {
	f.record("ListActivityDates")
	if f.ListActivityDatesFunc != nil {
		return f.ListActivityDatesFunc(ctx, db, memberID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.Activity[memberID]...), nil
}

func (f *FakeBadgeRepo) ListAwards(ctx context.Context, db bun.IDB, scope badgedomain.Scope, types []badgedomain.BadgeType) ([]badgedb.UserBadge, error) {
	f.record("ListAwards")
	if f.ListAwardsFunc != nil {
		return f.ListAwardsFunc(ctx, db, scope, types)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, t := range types {
		want[string(t)] = true
	}
	var out []badgedb.UserBadge
	for _, b := range f.Awards {
		if b.UserID != scope.AccountID || b.MemberID != scope.MemberID || b.TeamID != scope.TeamID {
			continue
		}
		if len(want) > 0 && !want[b.BadgeType] {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *FakeBadgeRepo) AwardExists(ctx context.Context, db bun.IDB, badge *badgedb.UserBadge) (bool, error) {
	f.record("AwardExists")
	if f.AwardExistsFunc != nil {
		return f.AwardExistsFunc(ctx, db, badge)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Awards[awardKey(badge)]
	return ok, nil
}

func (f *FakeBadgeRepo) InsertAward(ctx context.Context, db bun.IDB, badge *badgedb.UserBadge) error {
	f.record("InsertAward")
	if f.InsertAwardFunc != nil {
		return f.InsertAwardFunc(ctx, db, badge)
	}
	return f.insert(badge)
}

func (f *FakeBadgeRepo) insert(badge *badgedb.UserBadge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := awardKey(badge)
	if _, ok := f.Awards[k]; ok {
		return badgedomain.ErrDuplicateIgnored
	}
	f.Awards[k] = *badge
	return nil
}

func (f *FakeBadgeRepo) ListAwardsByMember(ctx context.Context, db bun.IDB, memberID uuid.UUID, teamID *uuid.UUID, limit int) ([]badgedb.BadgeRow, error) {
	f.record("ListAwardsByMember")
	if f.ListAwardsByMemberFunc != nil {
		return f.ListAwardsByMemberFunc(ctx, db, memberID, teamID, limit)
	}
	return nil, nil
}

func (f *FakeBadgeRepo) ListAwardsByEmail(ctx context.Context, db bun.IDB, email string, teamID *uuid.UUID, limit int) ([]badgedb.BadgeRow, error) {
	f.record("ListAwardsByEmail")
	if f.ListAwardsByEmailFunc != nil {
		return f.ListAwardsByEmailFunc(ctx, db, email, teamID, limit)
	}
	return nil, nil
}

func (f *FakeBadgeRepo) Leaderboard(ctx context.Context, db bun.IDB, teamID uuid.UUID, limit int) ([]badgedb.LeaderboardRow, error) {
	f.record("Leaderboard")
	if f.LeaderboardFunc != nil {
		return f.LeaderboardFunc(ctx, db, teamID, limit)
	}
	return nil, nil
}

func (f *FakeBadgeRepo) TimelyWeeks(ctx context.Context, db bun.IDB, memberID, teamID uuid.UUID, from, to time.Time) ([]badgedb.TimelyWeekRow, error) {
	f.record("TimelyWeeks")
	if f.TimelyWeeksFunc != nil {
		return f.TimelyWeeksFunc(ctx, db, memberID, teamID, from, to)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []badgedb.TimelyWeekRow
	for w := from; !w.After(to); w = w.AddDate(0, 0, 7) {
		rows = append(rows, badgedb.TimelyWeekRow{WeekStart: w, Timely: f.TimelyWeekStarts[memberID][w]})
	}
	return rows, nil
}

func (f *FakeBadgeRepo) HelpedMembers(ctx context.Context, db bun.IDB, memberID, teamID uuid.UUID, weekStart time.Time) ([]uuid.UUID, error) {
	f.record("HelpedMembers")
	if f.HelpedMembersFunc != nil {
		return f.HelpedMembersFunc(ctx, db, memberID, teamID, weekStart)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.Helped[memberID]...), nil
}

func (f *FakeBadgeRepo) Ping(ctx context.Context, db bun.IDB) error {
	f.record("Ping")
	if f.PingFunc != nil {
		return f.PingFunc(ctx, db)
	}
	return nil
}

// ------------------------
// Fake Notifier
// ------------------------

type FakeNotifier struct {
	mu      sync.Mutex
	Granted []badgedomain.Award
	Err     error
}

func (n *FakeNotifier) AwardsGranted(_ context.Context, _ badgedomain.Member, awards []badgedomain.Award) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Granted = append(n.Granted, awards...)
	return n.Err
}

// ------------------------
// Helpers
// ------------------------

var (
	testTeamID = uuid.MustParse("6a0b4c2e-2f1d-4c8e-9a57-0d3c8b1f2e11")
	// testNow is Wednesday of ISO week 2026-W42.
	testNow = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSelector returns a real selector whose channels carry no connection;
// the fake repository ignores the handle.
func testSelector() badgeaccess.Selector {
	return badgeaccess.NewSelector(badgeaccess.Config{
		Privileged: (*bun.DB)(nil),
		Restricted: (*bun.DB)(nil),
	}, testLogger(), nil)
}

func newTestService(repo *FakeBadgeRepo, notifier Notifier) *BadgeService {
	return NewBadgeService(
		repo,
		testSelector(),
		notifier,
		testLogger(),
		badgemetrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		Settings{Now: func() time.Time { return testNow }},
	)
}

// seedMember adds a member with a linked account to the fake.
func seedMember(repo *FakeBadgeRepo, withAccount bool) badgedb.Member {
	m := badgedb.Member{
		ID:        uuid.New(),
		TeamID:    testTeamID,
		Email:     "member@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Status:    "active",
	}
	if withAccount {
		acc := uuid.New()
		m.AuthUserID = &acc
	}
	repo.Members[m.ID] = m
	return m
}

// consecutiveDays returns n consecutive days ending the day before end.
func consecutiveDays(end time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	start := badgedomain.Day(end).AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}

// spacedDays returns n days two days apart ending before end.
func spacedDays(end time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	start := badgedomain.Day(end).AddDate(0, 0, -2*n)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, 2*i))
	}
	return out
}

func keysOf(awards []badgedomain.Award) []badgedomain.AwardKey {
	set := badgedomain.NewAwardSet()
	for _, a := range awards {
		set.Add(a.Key())
	}
	return set.Sorted()
}
