package badgeservice

import (
	"context"
	"errors"
	"testing"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestBadgeService_Reconcile(t *testing.T) {
	scope := badgedomain.Scope{AccountID: uuid.New(), MemberID: uuid.New(), TeamID: testTeamID}
	milestone := lifetime(badgedomain.BadgeActivity10)
	timely := badgedomain.AwardKey{Type: badgedomain.BadgeTimelyCompletion, Period: "2026-W42"}
	helper := badgedomain.AwardKey{Type: badgedomain.BadgeHelpedOther, Period: "2026-W42"}

	tests := []struct {
		name           string
		qualifying     badgedomain.AwardSet
		setupRepo      func(f *FakeBadgeRepo)
		wantNew        []badgedomain.AwardKey
		wantHeld       []badgedomain.AwardKey
		wantDuplicates int
		wantFailed     int
		wantErr        error
	}{
		{
			name:       "empty set does nothing",
			qualifying: badgedomain.NewAwardSet(),
		},
		{
			name:       "inserts what is not held",
			qualifying: badgedomain.NewAwardSet(milestone, timely),
			setupRepo: func(f *FakeBadgeRepo) {
				require.NoError(t, f.insert(badgedb.NewUserBadge(scope, milestone, testNow, nil)))
			},
			wantNew:  []badgedomain.AwardKey{timely},
			wantHeld: []badgedomain.AwardKey{milestone},
		},
		{
			name:       "lost insert race counts as held",
			qualifying: badgedomain.NewAwardSet(timely),
			setupRepo: func(f *FakeBadgeRepo) {
				f.InsertAwardFunc = func(context.Context, bun.IDB, *badgedb.UserBadge) error {
					return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
				}
			},
			wantHeld:       []badgedomain.AwardKey{timely},
			wantDuplicates: 1,
		},
		{
			name:       "failed insert is isolated",
			qualifying: badgedomain.NewAwardSet(timely, helper),
			setupRepo: func(f *FakeBadgeRepo) {
				f.InsertAwardFunc = func(_ context.Context, _ bun.IDB, b *badgedb.UserBadge) error {
					if b.BadgeType == string(badgedomain.BadgeHelpedOther) {
						return errors.New("insert failed")
					}
					return f.insert(b)
				}
			},
			wantNew:    []badgedomain.AwardKey{timely},
			wantFailed: 1,
		},
		{
			name:       "missing table aborts",
			qualifying: badgedomain.NewAwardSet(timely, helper),
			setupRepo: func(f *FakeBadgeRepo) {
				f.InsertAwardFunc = func(context.Context, bun.IDB, *badgedb.UserBadge) error {
					return &pgconn.PgError{Code: "42P01", Message: `relation "user_badges" does not exist`}
				}
			},
			wantErr: badgedomain.ErrNotConfigured,
		},
		{
			name:       "missing table after an insert keeps the insert",
			qualifying: badgedomain.NewAwardSet(milestone, timely),
			setupRepo: func(f *FakeBadgeRepo) {
				f.InsertAwardFunc = func(_ context.Context, _ bun.IDB, b *badgedb.UserBadge) error {
					if b.BadgeType == string(badgedomain.BadgeTimelyCompletion) {
						return &pgconn.PgError{Code: "42P01", Message: `relation "user_badges" does not exist`}
					}
					return f.insert(b)
				}
			},
			wantNew: []badgedomain.AwardKey{milestone},
			wantErr: badgedomain.ErrNotConfigured,
		},
		{
			name:       "unreadable history is data unavailable",
			qualifying: badgedomain.NewAwardSet(milestone),
			setupRepo: func(f *FakeBadgeRepo) {
				f.ListAwardsFunc = func(context.Context, bun.IDB, badgedomain.Scope, []badgedomain.BadgeType) ([]badgedb.UserBadge, error) {
					return nil, errors.New("read timeout")
				}
			},
			wantErr: badgedomain.ErrDataUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeBadgeRepo()
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}
			s := newTestService(repo, nil)

			got, err := s.Reconcile(context.Background(), scope, tt.qualifying, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantNew, nilIfEmpty(keysOf(got.NewlyAwarded)))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNew, nilIfEmpty(keysOf(got.NewlyAwarded)))
			assert.Equal(t, tt.wantHeld, nilIfEmpty(got.AlreadyHeld))
			assert.Equal(t, tt.wantDuplicates, got.DuplicatesIgnored)
			assert.Len(t, got.Failures, tt.wantFailed)
			for _, a := range got.NewlyAwarded {
				assert.Equal(t, scope, a.Scope)
				assert.Equal(t, testNow, a.EarnedAt)
			}
		})
	}
}
