package badgeservice

import (
	"context"
	"fmt"
	"sort"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeaccess "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/access"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AggregateActivity reads a member's activity history up to the day of asOf
// and summarises it. Any read failure is reported as ErrDataUnavailable.
func (s *BadgeService) AggregateActivity(ctx context.Context, memberID uuid.UUID, asOf time.Time) (ActivitySummary, error) {
	var dates []time.Time
	err := s.selector.Do(ctx, badgeaccess.OpReadActivity, func(ctx context.Context, db bun.IDB) error {
		var err error
		dates, err = s.repo.ListActivityDates(ctx, db, memberID)
		return err
	})
	if err != nil {
		return ActivitySummary{}, fmt.Errorf("%w: %w", badgedomain.ErrDataUnavailable, err)
	}
	return Summarize(until(dates, asOf)), nil
}

// until drops the dates that fall after the day of asOf.
func until(dates []time.Time, asOf time.Time) []time.Time {
	cutoff := badgedomain.Day(asOf)
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !badgedomain.Day(d).After(cutoff) {
			out = append(out, d)
		}
	}
	return out
}

// Summarize collapses raw activity timestamps into distinct UTC days.
func Summarize(dates []time.Time) ActivitySummary {
	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := badgedomain.Day(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	return ActivitySummary{
		DistinctDayCount: len(days),
		Dates:            days,
		LongestDailyRun:  longestRun(days),
	}
}

// longestRun returns the longest run of consecutive days in sorted, distinct days.
func longestRun(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	best, cur := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
			cur++
		} else {
			cur = 1
		}
		if cur > best {
			best = cur
		}
	}
	return best
}
