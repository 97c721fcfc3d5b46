package badgeservice

import (
	"context"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/results"
	"github.com/google/uuid"
)

// CheckAndAward evaluates a member as of now and persists new awards.
func (s *BadgeService) CheckAndAward(ctx context.Context, memberID, teamID uuid.UUID) (CheckAndAwardResult, error) {
	return s.CheckAndAwardAt(ctx, memberID, teamID, s.now())
}

// CheckAndAwardAt runs aggregate, evaluate and reconcile for one member.
// It is idempotent: repeated calls with unchanged activity award nothing new.
func (s *BadgeService) CheckAndAwardAt(ctx context.Context, memberID, teamID uuid.UUID, asOf time.Time) (CheckAndAwardResult, error) {
	result, err := withTelemetry(s, ctx, "CheckAndAward", memberID.String(), func(ctx context.Context) (results.OperationResult[CheckAndAwardResult, error], error) {
		out, err := s.checkAndAward(ctx, memberID, teamID, asOf.UTC())
		if err != nil {
			if isDomainFailure(err) {
				return results.FailureResult[CheckAndAwardResult, error](err), nil
			}
			// Awards inserted before the error are still reported.
			return results.SuccessResult[CheckAndAwardResult, error](out), err
		}
		return results.SuccessResult[CheckAndAwardResult, error](out), nil
	})
	return unwrap(result, err)
}

func (s *BadgeService) checkAndAward(ctx context.Context, memberID, teamID uuid.UUID, asOf time.Time) (CheckAndAwardResult, error) {
	out := CheckAndAwardResult{MemberID: memberID, TeamID: teamID, AsOf: asOf}

	member, err := s.loadMember(ctx, memberID, teamID)
	if err != nil {
		return out, err
	}
	if !member.HasAccount() {
		out.Skipped = SkipNoAccount
		s.logger.InfoContext(ctx, "Skipping badge check",
			attr.MemberID(memberID),
			attr.String("reason", SkipNoAccount),
		)
		return out, nil
	}

	activity, err := s.AggregateActivity(ctx, member.ID, asOf)
	if err != nil {
		return out, err
	}
	sig := s.collectSignals(ctx, member, asOf, activity)
	qualifying, metadata := evaluate(sig)

	scope := badgedomain.Scope{AccountID: *member.AccountID, MemberID: member.ID, TeamID: member.TeamID}
	rec, err := s.Reconcile(ctx, scope, qualifying, metadata)
	out.NewBadges = rec.NewlyAwarded
	if err != nil {
		s.publishAwards(ctx, member, rec.NewlyAwarded)
		return out, err
	}

	out.AlreadyHeld = rec.AlreadyHeld
	out.Failures = rec.Failures
	out.Signals = SignalAvailability{Timeliness: sig.Timeliness != nil, Help: sig.Help != nil}
	out.Stats = Stats{
		DistinctDayCount:  activity.DistinctDayCount,
		LongestDailyRun:   activity.LongestDailyRun,
		Eligible:          len(qualifying),
		New:               len(rec.NewlyAwarded),
		AlreadyHeld:       len(rec.AlreadyHeld),
		DuplicatesIgnored: rec.DuplicatesIgnored,
		Failed:            len(rec.Failures),
	}

	s.publishAwards(ctx, member, rec.NewlyAwarded)
	return out, nil
}

// publishAwards notifies about newly persisted awards. Publish failures are
// logged only; the awards are already stored.
func (s *BadgeService) publishAwards(ctx context.Context, member badgedomain.Member, awards []badgedomain.Award) {
	if len(awards) == 0 {
		return
	}
	if err := s.notifier.AwardsGranted(ctx, member, awards); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish awarded badges",
			attr.MemberID(member.ID),
			attr.Int("count", len(awards)),
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
	}
}

// PreviewEligibility evaluates a member as of now and reports which awards
// would be new, without writing anything.
func (s *BadgeService) PreviewEligibility(ctx context.Context, memberID, teamID uuid.UUID) (EligibilityPreview, error) {
	result, err := withTelemetry(s, ctx, "PreviewEligibility", memberID.String(), func(ctx context.Context) (results.OperationResult[EligibilityPreview, error], error) {
		asOf := s.now().UTC()
		out := EligibilityPreview{MemberID: memberID, TeamID: teamID, AsOf: asOf}

		member, err := s.loadMember(ctx, memberID, teamID)
		if err != nil {
			if isDomainFailure(err) {
				return results.FailureResult[EligibilityPreview, error](err), nil
			}
			return results.OperationResult[EligibilityPreview, error]{}, err
		}
		if !member.HasAccount() {
			out.Skipped = SkipNoAccount
			return results.SuccessResult[EligibilityPreview, error](out), nil
		}

		activity, err := s.AggregateActivity(ctx, member.ID, asOf)
		if err != nil {
			return results.OperationResult[EligibilityPreview, error]{}, err
		}
		sig := s.collectSignals(ctx, member, asOf, activity)
		qualifying := Evaluate(sig)

		scope := badgedomain.Scope{AccountID: *member.AccountID, MemberID: member.ID, TeamID: member.TeamID}
		held, err := s.heldAwards(ctx, scope, qualifying)
		if err != nil {
			return results.OperationResult[EligibilityPreview, error]{}, err
		}

		out.Activity = activity
		out.Qualifying = qualifying.Sorted()
		out.AlreadyHeld = qualifying.Intersect(held).Sorted()
		out.Pending = qualifying.Difference(held).Sorted()
		out.Signals = SignalAvailability{Timeliness: sig.Timeliness != nil, Help: sig.Help != nil}
		if sig.Help != nil {
			out.HelpedCount = sig.Help.HelpedCount
		}
		return results.SuccessResult[EligibilityPreview, error](out), nil
	})
	return unwrap(result, err)
}
