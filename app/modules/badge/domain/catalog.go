package badgedomain

import "sort"

// Discipline groups badges for presentation.
type Discipline string

const (
	DisciplineTimely        Discipline = "timely"
	DisciplineHelper        Discipline = "helper"
	DisciplineStreak        Discipline = "streak"
	DisciplineActivity      Discipline = "activity"
	DisciplineCollaboration Discipline = "collaboration"
	DisciplineEarlyBird     Discipline = "early_bird"
	DisciplineConsistency   Discipline = "consistency"
	DisciplineAttendance    Discipline = "attendance"
	DisciplineOther         Discipline = "other"
)

var disciplineOrder = []Discipline{
	DisciplineTimely,
	DisciplineHelper,
	DisciplineStreak,
	DisciplineActivity,
	DisciplineCollaboration,
	DisciplineEarlyBird,
	DisciplineConsistency,
	DisciplineAttendance,
	DisciplineOther,
}

// Disciplines returns every discipline in display order.
func Disciplines() []Discipline {
	out := make([]Discipline, len(disciplineOrder))
	copy(out, disciplineOrder)
	return out
}

// Rank is the display position of d. Unknown disciplines sort with other.
func (d Discipline) Rank() int {
	for i, x := range disciplineOrder {
		if x == d {
			return i
		}
	}
	return len(disciplineOrder) - 1
}

// RuleKind says which evaluation rule awards a badge.
type RuleKind int

const (
	// RuleExternal badges are catalogued for display but granted elsewhere.
	RuleExternal RuleKind = iota
	RuleMilestone
	RuleTimely
	RuleHelper
	RuleStreak
	RulePerfectMonth
	RuleDailyRun
)

// CatalogEntry describes one badge type.
type CatalogEntry struct {
	Type        BadgeType
	Discipline  Discipline
	Title       string
	Description string
	Rule        RuleKind
	// Threshold is the milestone count, streak length or daily run length.
	Threshold int
}

var catalog = map[BadgeType]CatalogEntry{
	BadgeTimelyCompletion: {BadgeTimelyCompletion, DisciplineTimely, "Timely Planner", "Completed the week's schedule on time", RuleTimely, 0},
	BadgeHelpedOther:      {BadgeHelpedOther, DisciplineHelper, "Team Helper", "Filled in the schedule for a teammate", RuleHelper, 1},
	BadgeStreak3:          {BadgeStreak3, DisciplineStreak, "3-Week Streak", "Completed the schedule on time 3 weeks in a row", RuleStreak, 3},
	BadgeStreak10:         {BadgeStreak10, DisciplineStreak, "10-Week Streak", "Completed the schedule on time 10 weeks in a row", RuleStreak, 10},
	BadgePerfectQuarter:   {BadgePerfectQuarter, DisciplineConsistency, "Perfect Quarter", "Completed every schedule on time for a full quarter", RuleStreak, 13},
	BadgePerfectMonth:     {BadgePerfectMonth, DisciplineConsistency, "Perfect Month", "Recorded availability for every day of a month", RulePerfectMonth, 0},
	BadgeActivity10:       {BadgeActivity10, DisciplineActivity, "Getting Started", "Recorded availability on 10 days", RuleMilestone, 10},
	BadgeActivity50:       {BadgeActivity50, DisciplineActivity, "Regular", "Recorded availability on 50 days", RuleMilestone, 50},
	BadgeActivity100:      {BadgeActivity100, DisciplineActivity, "Dedicated", "Recorded availability on 100 days", RuleMilestone, 100},
	BadgeActivity500:      {BadgeActivity500, DisciplineActivity, "Veteran", "Recorded availability on 500 days", RuleMilestone, 500},
	BadgeActivity1000:     {BadgeActivity1000, DisciplineActivity, "Legend", "Recorded availability on 1000 days", RuleMilestone, 1000},
	BadgeConsistency30:    {BadgeConsistency30, DisciplineConsistency, "30-Day Consistency", "Recorded availability 30 days in a row", RuleDailyRun, 30},
	BadgeConsistency90:    {BadgeConsistency90, DisciplineConsistency, "90-Day Consistency", "Recorded availability 90 days in a row", RuleDailyRun, 90},
	BadgeCollaboration:    {BadgeCollaboration, DisciplineCollaboration, "Team Player", "Collaborated with teammates on planning", RuleExternal, 0},
	BadgeEarlyBird:        {BadgeEarlyBird, DisciplineEarlyBird, "Early Bird", "Planned well ahead of time", RuleExternal, 0},
	BadgeAttendance100:    {BadgeAttendance100, DisciplineAttendance, "Perfect Attendance", "Maintained full attendance for a milestone period", RuleExternal, 0},
	BadgeNightShift:       {BadgeNightShift, DisciplineOther, "Night Owl", "Planned outside office hours", RuleExternal, 0},
	BadgeTime1h:           {BadgeTime1h, DisciplineOther, "First Hour", "Spent at least 1 hour using the planner", RuleExternal, 0},
	BadgeTime10h:          {BadgeTime10h, DisciplineOther, "Ten Hours", "Accumulated 10 hours of usage", RuleExternal, 0},
	BadgeTime50h:          {BadgeTime50h, DisciplineOther, "Fifty Hours", "Accumulated 50 hours of usage", RuleExternal, 0},
	BadgeTime200h:         {BadgeTime200h, DisciplineOther, "Power User", "Accumulated 200 hours of usage", RuleExternal, 0},
	BadgeRemote3Days:      {BadgeRemote3Days, DisciplineOther, "Remote Worker", "Worked remotely at least 3 days in a week", RuleExternal, 0},
	BadgeHoliday5Days:     {BadgeHoliday5Days, DisciplineOther, "Holiday Tripper", "On holiday at least 5 days in a week", RuleExternal, 0},
	BadgeRemoteFullWeek:   {BadgeRemoteFullWeek, DisciplineOther, "Remote Full Week", "Worked remotely for an entire week", RuleExternal, 0},
}

// Lookup returns the catalog entry of t.
func Lookup(t BadgeType) (CatalogEntry, bool) {
	e, ok := catalog[t]
	return e, ok
}

// DisciplineOf maps a badge type to its discipline. Unknown types map to other.
func DisciplineOf(t BadgeType) Discipline {
	if e, ok := catalog[t]; ok {
		return e.Discipline
	}
	return DisciplineOther
}

// Entries returns the catalog in display order.
func Entries() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Discipline.Rank(), out[j].Discipline.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// EntriesByRule returns the entries evaluated by rule, ordered by ascending
// threshold.
func EntriesByRule(rule RuleKind) []CatalogEntry {
	var out []CatalogEntry
	for _, e := range catalog {
		if e.Rule == rule {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Threshold != out[j].Threshold {
			return out[i].Threshold < out[j].Threshold
		}
		return out[i].Type < out[j].Type
	})
	return out
}
