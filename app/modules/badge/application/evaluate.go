package badgeservice

import (
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
)

// Evaluate returns every award key the signals qualify for. It is pure:
// identical signals always yield the identical set.
func Evaluate(sig Signals) badgedomain.AwardSet {
	set, _ := evaluate(sig)
	return set
}

// evaluate returns the qualifying set together with per-award metadata.
func evaluate(sig Signals) (badgedomain.AwardSet, map[badgedomain.AwardKey]map[string]any) {
	set := badgedomain.NewAwardSet()
	meta := make(map[badgedomain.AwardKey]map[string]any)
	grant := func(key badgedomain.AwardKey, m map[string]any) {
		set.Add(key)
		meta[key] = m
	}

	for _, e := range badgedomain.EntriesByRule(badgedomain.RuleMilestone) {
		if sig.Activity.DistinctDayCount >= e.Threshold {
			grant(badgedomain.AwardKey{Type: e.Type, Period: badgedomain.LifetimePeriod},
				map[string]any{"total_activities": sig.Activity.DistinctDayCount})
		}
	}

	for _, e := range badgedomain.EntriesByRule(badgedomain.RuleDailyRun) {
		if sig.Activity.LongestDailyRun >= e.Threshold {
			grant(badgedomain.AwardKey{Type: e.Type, Period: badgedomain.LifetimePeriod},
				map[string]any{"longest_run_days": sig.Activity.LongestDailyRun})
		}
	}

	for _, month := range perfectMonths(sig.Activity.Dates, sig.AsOf) {
		grant(badgedomain.AwardKey{Type: badgedomain.BadgePerfectMonth, Period: badgedomain.MonthPeriod(month.Year(), month.Month())},
			map[string]any{"days": daysIn(month)})
	}

	if sig.Timeliness != nil {
		for _, w := range sig.Timeliness.Weeks {
			if w.Timely {
				grant(badgedomain.AwardKey{Type: badgedomain.BadgeTimelyCompletion, Period: badgedomain.WeekPeriod(w.Start)},
					map[string]any{"week_start": w.Start.Format(time.DateOnly)})
			}
		}
		streaks := badgedomain.EntriesByRule(badgedomain.RuleStreak)
		for _, run := range timelyRuns(sig.Timeliness.Weeks) {
			for _, e := range streaks {
				if run.length < e.Threshold {
					continue
				}
				reached := run.weeks[e.Threshold-1].Start
				grant(badgedomain.AwardKey{Type: e.Type, Period: badgedomain.WeekPeriod(reached)},
					map[string]any{"streak_weeks": e.Threshold})
			}
		}
	}

	if sig.Help != nil && sig.Help.HelpedCount > 0 {
		for _, e := range badgedomain.EntriesByRule(badgedomain.RuleHelper) {
			if sig.Help.HelpedCount >= e.Threshold {
				grant(badgedomain.AwardKey{Type: e.Type, Period: badgedomain.WeekPeriod(sig.Help.WeekStart)},
					map[string]any{"helped_count": sig.Help.HelpedCount})
			}
		}
	}

	return set, meta
}

type weekRun struct {
	weeks  []WeekStatus
	length int
}

// timelyRuns returns the maximal runs of consecutive timely weeks. A run that
// begins at the first week is keyed from that week, so callers widen the
// window until its first week is not timely.
func timelyRuns(weeks []WeekStatus) []weekRun {
	var runs []weekRun
	start := -1
	flush := func(end int) {
		if start >= 0 {
			runs = append(runs, weekRun{weeks: weeks[start:end], length: end - start})
		}
		start = -1
	}
	for i, w := range weeks {
		consecutive := i > 0 && w.Start.Equal(weeks[i-1].Start.AddDate(0, 0, 7))
		switch {
		case !w.Timely:
			flush(i)
		case start >= 0 && !consecutive:
			flush(i)
			start = i
		case start < 0:
			start = i
		}
	}
	flush(len(weeks))
	return runs
}

// perfectMonths returns the first day of every month that ended by the day of
// asOf and whose days are all in dates.
func perfectMonths(dates []time.Time, asOf time.Time) []time.Time {
	cutoff := badgedomain.Day(asOf)
	counts := make(map[time.Time]int)
	var order []time.Time
	for _, d := range dates {
		first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		if _, ok := counts[first]; !ok {
			order = append(order, first)
		}
		counts[first]++
	}
	var out []time.Time
	for _, first := range order {
		last := first.AddDate(0, 1, -1)
		if !last.After(cutoff) && counts[first] == daysIn(first) {
			out = append(out, first)
		}
	}
	return out
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
