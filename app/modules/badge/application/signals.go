package badgeservice

import (
	"context"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeaccess "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/access"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	signalTimeliness = "timeliness"
	signalHelp       = "help"
)

// collectSignals assembles the evaluator input. Timeliness and help are
// best effort: a failed read leaves the signal nil so its rules are skipped.
func (s *BadgeService) collectSignals(ctx context.Context, member badgedomain.Member, asOf time.Time, activity ActivitySummary) Signals {
	sig := Signals{AsOf: asOf, Activity: activity}
	week := badgedomain.WeekStart(asOf)

	if weeks, err := s.timeliness(ctx, member, week); err != nil {
		s.signalUnavailable(ctx, member, signalTimeliness, err)
	} else {
		sig.Timeliness = &TimelinessSignal{Weeks: weeks}
	}

	if helped, err := s.helped(ctx, member, week); err != nil {
		s.signalUnavailable(ctx, member, signalHelp, err)
	} else {
		sig.Help = &HelpSignal{WeekStart: week, HelpedCount: len(helped)}
	}

	return sig
}

// timeliness returns one verdict per week ending at week. It starts with the
// lookback window and reads further back while the earliest week is timely,
// so a streak's first week is always inside the result.
func (s *BadgeService) timeliness(ctx context.Context, member badgedomain.Member, week time.Time) ([]WeekStatus, error) {
	from := week.AddDate(0, 0, -7*(s.lookbackWeeks-1))
	weeks, err := s.timelyWeeks(ctx, member, from, week)
	if err != nil {
		return nil, err
	}

	for len(weeks) > 0 && weeks[0].Timely && len(weeks) < MaxTimelinessWeeks {
		to := from.AddDate(0, 0, -7)
		from = to.AddDate(0, 0, -7*(s.lookbackWeeks-1))
		earlier, err := s.timelyWeeks(ctx, member, from, to)
		if err != nil {
			return nil, err
		}
		weeks = append(earlier, weeks...)
	}
	return weeks, nil
}

func (s *BadgeService) timelyWeeks(ctx context.Context, member badgedomain.Member, from, to time.Time) ([]WeekStatus, error) {
	var rows []badgedb.TimelyWeekRow
	err := s.selector.Do(ctx, badgeaccess.OpInvokeFunction, func(ctx context.Context, db bun.IDB) error {
		var err error
		rows, err = s.repo.TimelyWeeks(ctx, db, member.ID, member.TeamID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	verdicts := make(map[time.Time]bool, len(rows))
	for _, r := range rows {
		verdicts[badgedomain.WeekStart(r.WeekStart)] = r.Timely
	}
	weeks := make([]WeekStatus, 0, len(rows))
	for w := from; !w.After(to); w = w.AddDate(0, 0, 7) {
		weeks = append(weeks, WeekStatus{Start: w, Timely: verdicts[w]})
	}
	return weeks, nil
}

func (s *BadgeService) helped(ctx context.Context, member badgedomain.Member, week time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.selector.Do(ctx, badgeaccess.OpInvokeFunction, func(ctx context.Context, db bun.IDB) error {
		var err error
		ids, err = s.repo.HelpedMembers(ctx, db, member.ID, member.TeamID, week)
		return err
	})
	return ids, err
}

func (s *BadgeService) signalUnavailable(ctx context.Context, member badgedomain.Member, signal string, err error) {
	s.logger.WarnContext(ctx, "Signal unavailable, skipping its badges",
		attr.String("signal", signal),
		attr.MemberID(member.ID),
		attr.TeamID(member.TeamID),
		attr.ExtractCorrelationID(ctx),
		attr.Error(err),
	)
	s.metrics.RecordSignalUnavailable(ctx, signal)
}
