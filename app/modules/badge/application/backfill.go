package badgeservice

import (
	"context"
	"errors"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeaccess "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/access"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BackfillAll evaluates every active member, optionally limited to one team.
// A failing member is recorded and the run continues; a store that is not
// configured stops the run.
func (s *BadgeService) BackfillAll(ctx context.Context, teamID *uuid.UUID, asOf time.Time) (BackfillSummary, error) {
	identifier := "all"
	if teamID != nil {
		identifier = teamID.String()
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	result, err := withTelemetry(s, ctx, "BackfillAll", identifier, func(ctx context.Context) (results.OperationResult[BackfillSummary, error], error) {
		summary := BackfillSummary{AsOf: asOf.UTC()}

		var members []badgedb.Member
		err := s.selector.Do(ctx, badgeaccess.OpReadMembers, func(ctx context.Context, db bun.IDB) error {
			var err error
			members, err = s.repo.ListActiveMembers(ctx, db, teamID)
			return err
		})
		if err != nil {
			return results.OperationResult[BackfillSummary, error]{}, err
		}
		summary.Members = len(members)

		for i := range members {
			if err := ctx.Err(); err != nil {
				return results.SuccessResult[BackfillSummary, error](summary), err
			}
			m := members[i].ToDomain()
			if !m.HasAccount() {
				summary.Skipped++
				continue
			}

			out, err := s.checkAndAward(ctx, m.ID, m.TeamID, summary.AsOf)
			summary.Awarded += len(out.NewBadges)
			if err != nil {
				if errors.Is(err, badgedomain.ErrNotConfigured) {
					return results.SuccessResult[BackfillSummary, error](summary), err
				}
				summary.Failures = append(summary.Failures, MemberFailure{MemberID: m.ID, Err: err})
				s.logger.WarnContext(ctx, "Backfill failed for member",
					attr.MemberID(m.ID),
					attr.TeamID(m.TeamID),
					attr.Error(err),
				)
				continue
			}
			summary.Processed++
		}

		s.logger.InfoContext(ctx, "Backfill finished",
			attr.Int("members", summary.Members),
			attr.Int("processed", summary.Processed),
			attr.Int("skipped", summary.Skipped),
			attr.Int("awarded", summary.Awarded),
			attr.Int("failed", len(summary.Failures)),
		)
		return results.SuccessResult[BackfillSummary, error](summary), nil
	})
	return unwrap(result, err)
}

// Ping checks every configured data channel directly, without fallback.
func (s *BadgeService) Ping(ctx context.Context) ([]ChannelHealth, error) {
	channels := s.selector.Channels()
	if len(channels) == 0 {
		return nil, badgedomain.ErrChannelUnavailable
	}
	out := make([]ChannelHealth, 0, len(channels))
	healthy := 0
	for _, ch := range channels {
		pingCtx, cancel := context.WithTimeout(ctx, badgeaccess.DefaultTimeout)
		err := s.repo.Ping(pingCtx, ch.DB)
		cancel()
		h := ChannelHealth{Channel: string(ch.Name), OK: err == nil}
		if err != nil {
			h.Error = err.Error()
		} else {
			healthy++
		}
		out = append(out, h)
	}
	if healthy == 0 {
		return out, badgedomain.ErrChannelUnavailable
	}
	return out, nil
}
