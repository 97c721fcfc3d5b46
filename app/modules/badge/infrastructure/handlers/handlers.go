package badgehandlers

import (
	"context"
	"log/slog"

	badgeservice "github.com/Black-And-White-Club/rota-badges/app/modules/badge/application"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Enqueuer schedules background checks. Nil disables the queue.
type Enqueuer interface {
	EnqueueCheck(ctx context.Context, memberID, teamID uuid.UUID) error
}

// BadgeHandlers handles badge events and HTTP requests.
type BadgeHandlers struct {
	service badgeservice.Service
	queue   Enqueuer
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewBadgeHandlers creates a new instance of BadgeHandlers.
func NewBadgeHandlers(service badgeservice.Service, queue Enqueuer, logger *slog.Logger, tracer trace.Tracer) Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgeHandlers{
		service: service,
		queue:   queue,
		logger:  logger,
		tracer:  tracer,
	}
}
