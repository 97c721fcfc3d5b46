package badgepublisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeevents "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain/events"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher announces new awards on the event bus.
type EventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewEventPublisher creates an EventPublisher.
func NewEventPublisher(publisher message.Publisher, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{publisher: publisher, logger: logger}
}

// AwardsGranted publishes one BadgeAwardedV1 message per award. Every award
// is attempted; the returned error joins the failures.
func (p *EventPublisher) AwardsGranted(ctx context.Context, member badgedomain.Member, awards []badgedomain.Award) error {
	correlationID := attr.CorrelationID(ctx)

	var errs []error
	for _, a := range awards {
		payload := &badgeevents.BadgeAwardedPayloadV1{
			MemberID:  a.Scope.MemberID,
			TeamID:    a.Scope.TeamID,
			AccountID: a.Scope.AccountID,
			BadgeType: string(a.Type),
			PeriodKey: string(a.Period),
			EarnedAt:  a.EarnedAt,
		}

		msg, err := handlerwrapper.NewMessage(badgeevents.BadgeAwardedV1, payload, correlationID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msg.SetContext(ctx)

		if err := p.publisher.Publish(badgeevents.BadgeAwardedV1, msg); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish award",
				attr.MemberID(member.ID),
				attr.String("badge_type", string(a.Type)),
				attr.String("period_key", string(a.Period)),
				attr.Error(err),
			)
			errs = append(errs, fmt.Errorf("publish %s: %w", a.Key(), err))
			continue
		}

		p.logger.DebugContext(ctx, "Award published",
			attr.MemberID(member.ID),
			attr.String("badge_type", string(a.Type)),
			attr.String("message_id", msg.UUID),
		)
	}
	return errors.Join(errs...)
}
