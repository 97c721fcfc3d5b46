package badgedomain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BadgeType identifies a badge in the catalog.
type BadgeType string

const (
	BadgeTimelyCompletion BadgeType = "timely_completion"
	BadgeHelpedOther      BadgeType = "helped_other"
	BadgeStreak3          BadgeType = "streak_3"
	BadgeStreak10         BadgeType = "streak_10"
	BadgePerfectMonth     BadgeType = "perfect_month"
	BadgePerfectQuarter   BadgeType = "perfect_quarter"
	BadgeActivity10       BadgeType = "activity_10"
	BadgeActivity50       BadgeType = "activity_50"
	BadgeActivity100      BadgeType = "activity_100"
	BadgeActivity500      BadgeType = "activity_500"
	BadgeActivity1000     BadgeType = "activity_1000"
	BadgeTime1h           BadgeType = "time_1h"
	BadgeTime10h          BadgeType = "time_10h"
	BadgeTime50h          BadgeType = "time_50h"
	BadgeTime200h         BadgeType = "time_200h"
	BadgeCollaboration    BadgeType = "collaboration"
	BadgeEarlyBird        BadgeType = "early_bird"
	BadgeNightShift       BadgeType = "night_shift"
	BadgeConsistency30    BadgeType = "consistency_30"
	BadgeConsistency90    BadgeType = "consistency_90"
	BadgeAttendance100    BadgeType = "attendance_100"
	BadgeRemote3Days      BadgeType = "remote_3_days"
	BadgeHoliday5Days     BadgeType = "holiday_5_days"
	BadgeRemoteFullWeek   BadgeType = "remote_full_week"
)

// PeriodKey scopes a repeatable badge. Lifetime badges use LifetimePeriod.
type PeriodKey string

// LifetimePeriod is the period key of cumulative, award-once badges.
const LifetimePeriod PeriodKey = "lifetime"

// WeekPeriod returns the ISO year-week key containing t, e.g. "2026-W42".
func WeekPeriod(t time.Time) PeriodKey {
	year, week := t.ISOWeek()
	return PeriodKey(fmt.Sprintf("%04d-W%02d", year, week))
}

// MonthPeriod returns the calendar month key, e.g. "2026-10".
func MonthPeriod(year int, month time.Month) PeriodKey {
	return PeriodKey(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday (UTC) of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	day := Day(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// AwardKey is the identity of an award within one member scope.
type AwardKey struct {
	Type   BadgeType
	Period PeriodKey
}

func (k AwardKey) String() string {
	return string(k.Type) + "@" + string(k.Period)
}

// AwardSet is an unordered set of award keys.
type AwardSet map[AwardKey]struct{}

// NewAwardSet builds a set from keys.
func NewAwardSet(keys ...AwardKey) AwardSet {
	s := make(AwardSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s AwardSet) Add(k AwardKey) { s[k] = struct{}{} }

func (s AwardSet) Has(k AwardKey) bool {
	_, ok := s[k]
	return ok
}

// Difference returns the keys of s that are not in other.
func (s AwardSet) Difference(other AwardSet) AwardSet {
	out := make(AwardSet)
	for k := range s {
		if !other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Intersect returns the keys present in both sets.
func (s AwardSet) Intersect(other AwardSet) AwardSet {
	out := make(AwardSet)
	for k := range s {
		if other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Sorted returns the keys ordered by type, then period.
func (s AwardSet) Sorted() []AwardKey {
	keys := make([]AwardKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].Period < keys[j].Period
	})
	return keys
}

// Member is a roster entry of a team. AccountID is nil when the member has
// no linked user account.
type Member struct {
	ID        uuid.UUID
	TeamID    uuid.UUID
	AccountID *uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Status    string
}

// HasAccount reports whether the member can receive badges.
func (m Member) HasAccount() bool {
	return m.AccountID != nil && *m.AccountID != uuid.Nil
}

// DisplayName joins first and last name, falling back to the email.
func (m Member) DisplayName() string {
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if name == "" {
		return m.Email
	}
	return name
}

// Scope is the member scope an award is unique within.
type Scope struct {
	AccountID uuid.UUID
	MemberID  uuid.UUID
	TeamID    uuid.UUID
}

// Award is a persisted badge grant.
type Award struct {
	ID       uuid.UUID
	Scope    Scope
	Type     BadgeType
	Period   PeriodKey
	EarnedAt time.Time
	Metadata map[string]any
	TeamName string
}

// Key returns the award's identity within its scope.
func (a Award) Key() AwardKey {
	return AwardKey{Type: a.Type, Period: a.Period}
}
