package badgedomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Complete(t *testing.T) {
	entries := Entries()
	assert.Len(t, entries, 24)

	seen := map[BadgeType]bool{}
	for i, e := range entries {
		assert.False(t, seen[e.Type], "duplicate %s", e.Type)
		seen[e.Type] = true
		assert.NotEmpty(t, e.Title, e.Type)
		assert.NotEmpty(t, e.Description, e.Type)
		if i > 0 {
			assert.LessOrEqual(t, entries[i-1].Discipline.Rank(), e.Discipline.Rank(), "entries in display order")
		}
	}
}

func TestEntriesByRule(t *testing.T) {
	milestones := EntriesByRule(RuleMilestone)
	require.Len(t, milestones, 5)
	want := []int{10, 50, 100, 500, 1000}
	for i, e := range milestones {
		assert.Equal(t, want[i], e.Threshold)
	}

	streaks := EntriesByRule(RuleStreak)
	require.Len(t, streaks, 3)
	assert.Equal(t, BadgeStreak3, streaks[0].Type)
	assert.Equal(t, BadgeStreak10, streaks[1].Type)
	assert.Equal(t, BadgePerfectQuarter, streaks[2].Type)
}

func TestDisciplineOf(t *testing.T) {
	assert.Equal(t, DisciplineTimely, DisciplineOf(BadgeTimelyCompletion))
	assert.Equal(t, DisciplineConsistency, DisciplineOf(BadgePerfectMonth))
	assert.Equal(t, DisciplineOther, DisciplineOf("unknown_badge"))
	assert.Equal(t, len(Disciplines())-1, Discipline("unknown").Rank())
}
