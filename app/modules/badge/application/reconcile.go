package badgeservice

import (
	"context"
	"errors"
	"fmt"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeaccess "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/access"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/uptrace/bun"
)

// Reconcile persists every key of qualifying not yet held in scope. Each
// insert is independent: one failure is recorded and the rest still run.
// Losing an insert race to a concurrent caller counts as already held.
// ErrNotConfigured stops the loop; the result still lists what was inserted.
func (s *BadgeService) Reconcile(
	ctx context.Context,
	scope badgedomain.Scope,
	qualifying badgedomain.AwardSet,
	metadata map[badgedomain.AwardKey]map[string]any,
) (ReconcileResult, error) {
	var result ReconcileResult
	if len(qualifying) == 0 {
		return result, nil
	}

	held, err := s.heldAwards(ctx, scope, qualifying)
	if err != nil {
		return result, err
	}
	result.AlreadyHeld = qualifying.Intersect(held).Sorted()

	for _, key := range qualifying.Difference(held).Sorted() {
		row := badgedb.NewUserBadge(scope, key, s.now(), metadata[key])
		err := s.selector.Do(ctx, badgeaccess.OpWriteAwards, func(ctx context.Context, db bun.IDB) error {
			exists, err := s.repo.AwardExists(ctx, db, row)
			if err != nil {
				return err
			}
			if exists {
				return badgedomain.ErrDuplicateIgnored
			}
			return s.repo.InsertAward(ctx, db, row)
		})

		switch {
		case err == nil:
			result.NewlyAwarded = append(result.NewlyAwarded, row.ToDomain())
			s.metrics.RecordAwardGranted(ctx, string(key.Type))
		case errors.Is(err, badgedomain.ErrDuplicateIgnored):
			result.DuplicatesIgnored++
			result.AlreadyHeld = append(result.AlreadyHeld, key)
			s.metrics.RecordDuplicateIgnored(ctx, string(key.Type))
			s.logger.DebugContext(ctx, "Award already held, insert ignored",
				attr.String("award", key.String()),
				attr.MemberID(scope.MemberID),
			)
		case errors.Is(err, badgedomain.ErrNotConfigured):
			return result, err
		default:
			result.Failures = append(result.Failures, AwardFailure{Key: key, Err: err})
			s.metrics.RecordAwardFailure(ctx, string(key.Type))
			s.logger.ErrorContext(ctx, "Failed to persist award",
				attr.String("award", key.String()),
				attr.MemberID(scope.MemberID),
				attr.TeamID(scope.TeamID),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
		}
	}

	return result, nil
}

// heldAwards returns the keys of qualifying's types already persisted in scope.
func (s *BadgeService) heldAwards(ctx context.Context, scope badgedomain.Scope, qualifying badgedomain.AwardSet) (badgedomain.AwardSet, error) {
	typeSet := make(map[badgedomain.BadgeType]struct{})
	var types []badgedomain.BadgeType
	for _, key := range qualifying.Sorted() {
		if _, ok := typeSet[key.Type]; ok {
			continue
		}
		typeSet[key.Type] = struct{}{}
		types = append(types, key.Type)
	}

	var rows []badgedb.UserBadge
	err := s.selector.Do(ctx, badgeaccess.OpReadAwards, func(ctx context.Context, db bun.IDB) error {
		var err error
		rows, err = s.repo.ListAwards(ctx, db, scope, types)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", badgedomain.ErrDataUnavailable, err)
	}

	held := badgedomain.NewAwardSet()
	for i := range rows {
		held.Add(rows[i].ToDomain().Key())
	}
	return held, nil
}
