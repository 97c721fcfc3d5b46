package badgeintegrationtests

import (
	"context"
	"sync"
	"testing"
	"time"

	badgeservice "github.com/Black-And-White-Club/rota-badges/app/modules/badge/application"
	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/Black-And-White-Club/rota-badges/integration_tests/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(awards []badgedomain.Award) map[badgedomain.AwardKey]bool {
	out := make(map[badgedomain.AwardKey]bool, len(awards))
	for _, a := range awards {
		out[a.Key()] = true
	}
	return out
}

func TestCheckAndAward_Integration(t *testing.T) {
	deps := SetupTestBadgeService(t)
	ctx := context.Background()

	t.Run("milestone is persisted once", func(t *testing.T) {
		require.NoError(t, deps.Env.Reset(ctx))
		team := deps.Data.InsertTeam(t, ctx, deps.BunDB)
		m := deps.Data.InsertMember(t, ctx, deps.BunDB, team, true)
		deps.Data.InsertAvailability(t, ctx, deps.BunDB, m.ID, testutils.ConsecutiveDays(testNow.AddDate(0, 0, -20), 12), testNow, nil)

		first, err := deps.Service.CheckAndAward(ctx, m.ID, team)
		require.NoError(t, err)
		assert.True(t, keys(first.NewBadges)[badgedomain.AwardKey{Type: badgedomain.BadgeActivity10, Period: badgedomain.LifetimePeriod}])

		second, err := deps.Service.CheckAndAward(ctx, m.ID, team)
		require.NoError(t, err)
		assert.Empty(t, second.NewBadges)
		assert.Len(t, second.AlreadyHeld, len(first.NewBadges))

		count, err := testutils.CountAwards(ctx, deps.BunDB, m.ID)
		require.NoError(t, err)
		assert.Equal(t, len(first.NewBadges), count)
	})

	t.Run("timely week and helping a teammate", func(t *testing.T) {
		require.NoError(t, deps.Env.Reset(ctx))
		team := deps.Data.InsertTeam(t, ctx, deps.BunDB)
		helper := deps.Data.InsertMember(t, ctx, deps.BunDB, team, true)
		teammate := deps.Data.InsertMember(t, ctx, deps.BunDB, team, true)

		weekStart := badgedomain.WeekStart(testNow)
		weekdays := testutils.ConsecutiveDays(weekStart.AddDate(0, 0, 4), 5)
		deps.Data.InsertAvailability(t, ctx, deps.BunDB, helper.ID, weekdays, weekStart.AddDate(0, 0, -3), nil)
		deps.Data.InsertAvailability(t, ctx, deps.BunDB, teammate.ID,
			[]time.Time{weekStart.AddDate(0, 0, 8)}, weekStart.Add(30*time.Hour), helper.AuthUserID)

		got, err := deps.Service.CheckAndAward(ctx, helper.ID, team)
		require.NoError(t, err)
		assert.True(t, got.Signals.Timeliness)
		assert.True(t, got.Signals.Help)

		week := badgedomain.WeekPeriod(testNow)
		awarded := keys(got.NewBadges)
		assert.True(t, awarded[badgedomain.AwardKey{Type: badgedomain.BadgeTimelyCompletion, Period: week}])
		assert.True(t, awarded[badgedomain.AwardKey{Type: badgedomain.BadgeHelpedOther, Period: week}])
		assert.Len(t, got.NewBadges, 2)
	})

	t.Run("member without account is skipped", func(t *testing.T) {
		require.NoError(t, deps.Env.Reset(ctx))
		team := deps.Data.InsertTeam(t, ctx, deps.BunDB)
		m := deps.Data.InsertMember(t, ctx, deps.BunDB, team, false)
		deps.Data.InsertAvailability(t, ctx, deps.BunDB, m.ID, testutils.ConsecutiveDays(testNow, 15), testNow, nil)

		got, err := deps.Service.CheckAndAward(ctx, m.ID, team)
		require.NoError(t, err)
		assert.Equal(t, badgeservice.SkipNoAccount, got.Skipped)
		count, err := testutils.CountAwards(ctx, deps.BunDB, m.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("unknown member", func(t *testing.T) {
		require.NoError(t, deps.Env.Reset(ctx))
		team := deps.Data.InsertTeam(t, ctx, deps.BunDB)
		_, err := deps.Service.CheckAndAward(ctx, uuid.New(), team)
		assert.ErrorIs(t, err, badgedomain.ErrMemberNotFound)
	})
}

func TestCheckAndAward_ConcurrentCallers_Integration(t *testing.T) {
	deps := SetupTestBadgeService(t)
	ctx := context.Background()

	team := deps.Data.InsertTeam(t, ctx, deps.BunDB)
	m := deps.Data.InsertMember(t, ctx, deps.BunDB, team, true)
	deps.Data.InsertAvailability(t, ctx, deps.BunDB, m.ID, testutils.ConsecutiveDays(testNow, 100), testNow, nil)

	const callers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		newTotal int
		errs     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := deps.Service.CheckAndAward(ctx, m.ID, team)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			newTotal += len(res.NewBadges)
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	preview, err := deps.Service.PreviewEligibility(ctx, m.ID, team)
	require.NoError(t, err)
	require.NotEmpty(t, preview.Qualifying)
	assert.Empty(t, preview.Pending)

	count, err := testutils.CountAwards(ctx, deps.BunDB, m.ID)
	require.NoError(t, err)
	assert.Equal(t, len(preview.Qualifying), count, "each qualifying award persisted exactly once")
	assert.Equal(t, count, newTotal, "each award reported as new exactly once")
}

func TestBackfillAll_Integration(t *testing.T) {
	deps := SetupTestBadgeService(t)
	ctx := context.Background()

	team := deps.Data.InsertTeam(t, ctx, deps.BunDB)
	other := deps.Data.InsertTeam(t, ctx, deps.BunDB)
	active := deps.Data.InsertMember(t, ctx, deps.BunDB, team, true)
	deps.Data.InsertAvailability(t, ctx, deps.BunDB, active.ID, testutils.ConsecutiveDays(testNow, 10), testNow, nil)
	_ = deps.Data.InsertMember(t, ctx, deps.BunDB, team, false)
	elsewhere := deps.Data.InsertMember(t, ctx, deps.BunDB, other, true)
	deps.Data.InsertAvailability(t, ctx, deps.BunDB, elsewhere.ID, testutils.ConsecutiveDays(testNow, 10), testNow, nil)

	summary, err := deps.Service.BackfillAll(ctx, &team, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Members)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Awarded)
	assert.Empty(t, summary.Failures)

	count, err := testutils.CountAwards(ctx, deps.BunDB, elsewhere.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "other teams are untouched")
}
