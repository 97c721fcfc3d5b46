package testutils

import (
	"context"
	"strings"
	"testing"
	"time"

	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TestDataGenerator creates roster and availability rows for integration tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(s)), seed: s}
}

// Seed returns the seed, for reproducing a failing run.
func (g *TestDataGenerator) Seed() int64 { return g.seed }

// InsertTeam creates a team and returns its id.
func (g *TestDataGenerator) InsertTeam(t *testing.T, ctx context.Context, db bun.IDB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := db.ExecContext(ctx, `INSERT INTO teams (id, name) VALUES (?, ?)`, id, g.faker.Company()); err != nil {
		t.Fatalf("insert team: %v", err)
	}
	return id
}

// InsertMember creates an active member of teamID, linked to a new account
// when withAccount is set.
func (g *TestDataGenerator) InsertMember(t *testing.T, ctx context.Context, db bun.IDB, teamID uuid.UUID, withAccount bool) badgedb.Member {
	t.Helper()
	first, last := g.faker.FirstName(), g.faker.LastName()
	m := badgedb.Member{
		ID:        uuid.New(),
		TeamID:    teamID,
		Email:     strings.ToLower(first+"."+last+"."+g.faker.LetterN(6)) + "@example.com",
		FirstName: first,
		LastName:  last,
		Status:    "active",
	}
	if withAccount {
		account := uuid.New()
		m.AuthUserID = &account
	}
	if _, err := db.NewInsert().Model(&m).Exec(ctx); err != nil {
		t.Fatalf("insert member: %v", err)
	}
	return m
}

// InsertAvailability records one office day per date. createdAt and
// createdBy are optional.
func (g *TestDataGenerator) InsertAvailability(t *testing.T, ctx context.Context, db bun.IDB, memberID uuid.UUID, dates []time.Time, createdAt time.Time, createdBy *uuid.UUID) {
	t.Helper()
	if len(dates) == 0 {
		return
	}
	rows := make([]badgedb.AvailabilityRecord, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, badgedb.AvailabilityRecord{
			ID:        uuid.New(),
			MemberID:  memberID,
			Date:      d,
			Status:    g.faker.RandomString([]string{"office", "remote"}),
			CreatedAt: createdAt,
			CreatedBy: createdBy,
		})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		t.Fatalf("insert availability: %v", err)
	}
}

// ConsecutiveDays returns n consecutive UTC dates ending at end.
func ConsecutiveDays(end time.Time, n int) []time.Time {
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, end.AddDate(0, 0, -i))
	}
	return out
}
