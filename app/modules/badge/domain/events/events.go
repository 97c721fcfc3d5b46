// Package badgeevents defines the badge module's topics and payloads.
package badgeevents

import (
	"time"

	"github.com/google/uuid"
)

const (
	// AvailabilityRecordedV1 is published by the scheduling side when a member
	// records availability. The badge module treats it as a check trigger.
	AvailabilityRecordedV1 = "availability.recorded.v1"

	// BadgeCheckRequestedV1 asks for a check of one member.
	BadgeCheckRequestedV1 = "badge.check.requested.v1"
	// BadgeCheckFailedV1 reports a check that could not complete.
	BadgeCheckFailedV1 = "badge.check.failed.v1"

	// BadgeAwardedV1 is published once per newly persisted award.
	BadgeAwardedV1 = "badge.awarded.v1"
)

// AvailabilityRecordedPayloadV1 is the payload of AvailabilityRecordedV1.
type AvailabilityRecordedPayloadV1 struct {
	MemberID uuid.UUID `json:"member_id"`
	TeamID   uuid.UUID `json:"team_id"`
	Date     string    `json:"date,omitempty"`
}

// BadgeCheckRequestedPayloadV1 is the payload of BadgeCheckRequestedV1.
type BadgeCheckRequestedPayloadV1 struct {
	MemberID uuid.UUID  `json:"member_id"`
	TeamID   uuid.UUID  `json:"team_id"`
	AsOf     *time.Time `json:"as_of,omitempty"`
}

// BadgeCheckFailedPayloadV1 is the payload of BadgeCheckFailedV1.
type BadgeCheckFailedPayloadV1 struct {
	MemberID uuid.UUID `json:"member_id"`
	TeamID   uuid.UUID `json:"team_id"`
	Kind     string    `json:"kind"`
	Reason   string    `json:"reason"`
}

// BadgeAwardedPayloadV1 is the payload of BadgeAwardedV1.
type BadgeAwardedPayloadV1 struct {
	MemberID  uuid.UUID `json:"member_id"`
	TeamID    uuid.UUID `json:"team_id"`
	AccountID uuid.UUID `json:"account_id"`
	BadgeType string    `json:"badge_type"`
	PeriodKey string    `json:"period_key"`
	EarnedAt  time.Time `json:"earned_at"`
}
