package badgehandlers

import (
	"context"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeevents "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain/events"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/handlerwrapper"
	"github.com/google/uuid"
)

// HandleAvailabilityRecorded enqueues a check when the queue is enabled and
// runs it inline otherwise. A failed enqueue also falls back to inline.
func (h *BadgeHandlers) HandleAvailabilityRecorded(
	ctx context.Context,
	payload *badgeevents.AvailabilityRecordedPayloadV1,
) ([]handlerwrapper.Result, error) {
	if payload.MemberID == uuid.Nil || payload.TeamID == uuid.Nil {
		return checkFailed(payload.MemberID, payload.TeamID, badgedomain.ErrInvalidQuery), nil
	}

	if h.queue != nil {
		err := h.queue.EnqueueCheck(ctx, payload.MemberID, payload.TeamID)
		if err == nil {
			return nil, nil
		}
		h.logger.WarnContext(ctx, "Enqueue failed, checking inline",
			attr.MemberID(payload.MemberID),
			attr.Error(err),
		)
	}

	res, err := h.service.CheckAndAward(ctx, payload.MemberID, payload.TeamID)
	if err != nil {
		return checkFailed(payload.MemberID, payload.TeamID, err), nil
	}

	h.logger.InfoContext(ctx, "Availability check completed",
		attr.MemberID(payload.MemberID),
		attr.Int("new_badges", len(res.NewBadges)),
	)
	return nil, nil
}

// HandleBadgeCheckRequested runs a check inline.
func (h *BadgeHandlers) HandleBadgeCheckRequested(
	ctx context.Context,
	payload *badgeevents.BadgeCheckRequestedPayloadV1,
) ([]handlerwrapper.Result, error) {
	if payload.MemberID == uuid.Nil || payload.TeamID == uuid.Nil {
		return checkFailed(payload.MemberID, payload.TeamID, badgedomain.ErrInvalidQuery), nil
	}

	var err error
	if payload.AsOf != nil {
		_, err = h.service.CheckAndAwardAt(ctx, payload.MemberID, payload.TeamID, *payload.AsOf)
	} else {
		_, err = h.service.CheckAndAward(ctx, payload.MemberID, payload.TeamID)
	}
	if err != nil {
		return checkFailed(payload.MemberID, payload.TeamID, err), nil
	}
	return nil, nil
}

func checkFailed(memberID, teamID uuid.UUID, err error) []handlerwrapper.Result {
	return []handlerwrapper.Result{{
		Topic: badgeevents.BadgeCheckFailedV1,
		Payload: &badgeevents.BadgeCheckFailedPayloadV1{
			MemberID: memberID,
			TeamID:   teamID,
			Kind:     string(badgedomain.KindOf(err)),
			Reason:   err.Error(),
		},
	}}
}
