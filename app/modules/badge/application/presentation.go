package badgeservice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeaccess "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/access"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ListBadges lists awards by member id or by email, grouped by discipline.
func (s *BadgeService) ListBadges(ctx context.Context, query BadgeQuery) (BadgeList, error) {
	identifier := query.Email
	if query.MemberID != nil {
		identifier = query.MemberID.String()
	}

	result, err := withTelemetry(s, ctx, "ListBadges", identifier, func(ctx context.Context) (results.OperationResult[BadgeList, error], error) {
		email := strings.TrimSpace(query.Email)
		if (query.MemberID == nil) == (email == "") {
			return results.FailureResult[BadgeList, error](
				fmt.Errorf("exactly one of member id or email is required: %w", badgedomain.ErrInvalidQuery)), nil
		}
		limit := clampLimit(query.Limit, DefaultListLimit)

		var rows []badgedb.BadgeRow
		var err error
		if query.MemberID != nil {
			err = s.selector.Do(ctx, badgeaccess.OpReadAwards, func(ctx context.Context, db bun.IDB) error {
				var err error
				rows, err = s.repo.ListAwardsByMember(ctx, db, *query.MemberID, query.TeamID, limit)
				return err
			})
		} else {
			err = s.selector.Do(ctx, badgeaccess.OpInvokeFunction, func(ctx context.Context, db bun.IDB) error {
				var err error
				rows, err = s.repo.ListAwardsByEmail(ctx, db, email, query.TeamID, limit)
				return err
			})
		}
		if err != nil {
			if errors.Is(err, badgedomain.ErrNotConfigured) {
				s.logger.WarnContext(ctx, "Badge storage not configured, returning empty list",
					attr.ExtractCorrelationID(ctx),
					attr.Error(err),
				)
				return results.SuccessResult[BadgeList, error](emptyBadgeList(WarningNotConfigured)), nil
			}
			return results.OperationResult[BadgeList, error]{}, err
		}

		awards := make([]badgedomain.Award, 0, len(rows))
		for i := range rows {
			awards = append(awards, rows[i].ToDomain())
		}
		views, groups := Present(awards)
		return results.SuccessResult[BadgeList, error](BadgeList{Badges: views, Groups: groups, Count: len(views)}), nil
	})
	return unwrap(result, err)
}

func emptyBadgeList(warning string) BadgeList {
	return BadgeList{Badges: []BadgeView{}, Groups: []BadgeGroup{}, Warning: warning}
}

// Present enriches awards from the catalog. Views are ordered by discipline
// rank, type name, then newest first; groups follow discipline order and omit
// empty ones.
func Present(awards []badgedomain.Award) ([]BadgeView, []BadgeGroup) {
	views := make([]BadgeView, 0, len(awards))
	for _, a := range awards {
		v := BadgeView{
			ID:         a.ID,
			MemberID:   a.Scope.MemberID,
			TeamID:     a.Scope.TeamID,
			TeamName:   a.TeamName,
			Type:       a.Type,
			Discipline: badgedomain.DisciplineOf(a.Type),
			Title:      string(a.Type),
			Period:     a.Period,
			EarnedAt:   a.EarnedAt,
			Metadata:   a.Metadata,
		}
		if e, ok := badgedomain.Lookup(a.Type); ok {
			v.Title = e.Title
			v.Description = e.Description
		}
		views = append(views, v)
	}

	sort.SliceStable(views, func(i, j int) bool {
		ri, rj := views[i].Discipline.Rank(), views[j].Discipline.Rank()
		if ri != rj {
			return ri < rj
		}
		if views[i].Type != views[j].Type {
			return views[i].Type < views[j].Type
		}
		return views[i].EarnedAt.After(views[j].EarnedAt)
	})

	groups := []BadgeGroup{}
	for _, v := range views {
		if n := len(groups); n > 0 && groups[n-1].Discipline == v.Discipline {
			groups[n-1].Badges = append(groups[n-1].Badges, v)
			continue
		}
		groups = append(groups, BadgeGroup{Discipline: v.Discipline, Badges: []BadgeView{v}})
	}
	return views, groups
}

// Leaderboard ranks a team's members by total awards.
func (s *BadgeService) Leaderboard(ctx context.Context, teamID uuid.UUID, limit int) (LeaderboardResult, error) {
	result, err := withTelemetry(s, ctx, "Leaderboard", teamID.String(), func(ctx context.Context) (results.OperationResult[LeaderboardResult, error], error) {
		out, err := s.leaderboard(ctx, teamID, clampLimit(limit, DefaultLeaderboardLimit))
		if err != nil {
			return results.OperationResult[LeaderboardResult, error]{}, err
		}
		return results.SuccessResult[LeaderboardResult, error](out), nil
	})
	return unwrap(result, err)
}

func (s *BadgeService) leaderboard(ctx context.Context, teamID uuid.UUID, limit int) (LeaderboardResult, error) {
	out := LeaderboardResult{TeamID: teamID, Entries: []LeaderboardEntry{}}

	var rows []badgedb.LeaderboardRow
	err := s.selector.Do(ctx, badgeaccess.OpInvokeFunction, func(ctx context.Context, db bun.IDB) error {
		var err error
		rows, err = s.repo.Leaderboard(ctx, db, teamID, limit)
		return err
	})
	if err != nil {
		if errors.Is(err, badgedomain.ErrNotConfigured) {
			s.logger.WarnContext(ctx, "Badge storage not configured, returning empty leaderboard",
				attr.TeamID(teamID),
				attr.Error(err),
			)
			out.Warning = WarningNotConfigured
			return out, nil
		}
		return out, err
	}

	for _, r := range rows {
		out.Entries = append(out.Entries, LeaderboardEntry{
			Rank:         r.Rank,
			MemberID:     r.MemberID,
			MemberName:   r.MemberName,
			TotalBadges:  r.TotalBadges,
			TimelyBadges: r.TimelyBadges,
			HelperBadges: r.HelperBadges,
			StreakBadges: r.StreakBadges,
		})
	}
	return out, nil
}
