package badgequeue

import (
	"time"

	"github.com/google/uuid"
)

// QueueName is the River queue badge jobs run on.
const QueueName = "badges"

// UniqueWindow collapses repeated enqueues for the same member.
const UniqueWindow = 30 * time.Second

// CheckAndAwardJob evaluates one member and persists new awards.
type CheckAndAwardJob struct {
	MemberID uuid.UUID `json:"member_id"`
	TeamID   uuid.UUID `json:"team_id"`
}

// Kind returns the job type identifier for River
func (CheckAndAwardJob) Kind() string { return "badge_check_and_award" }

// JobInfo describes a queued job for health and debugging output.
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	MemberID    string `json:"member_id"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
