package badgehandlers

import (
	"context"
	"net/http"

	badgeevents "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain/events"
	"github.com/Black-And-White-Club/rota-badges/app/shared/handlerwrapper"
)

// Handlers defines the badge module's event and HTTP handlers.
type Handlers interface {
	// --- EVENTS ---

	// HandleAvailabilityRecorded triggers a check for the member that recorded availability.
	HandleAvailabilityRecorded(ctx context.Context, payload *badgeevents.AvailabilityRecordedPayloadV1) ([]handlerwrapper.Result, error)

	// HandleBadgeCheckRequested runs a check for one member, optionally as of a past date.
	HandleBadgeCheckRequested(ctx context.Context, payload *badgeevents.BadgeCheckRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// --- HTTP ---

	HandleHTTPCheck(w http.ResponseWriter, r *http.Request)
	HandleHTTPPreview(w http.ResponseWriter, r *http.Request)
	HandleHTTPUserBadges(w http.ResponseWriter, r *http.Request)
	HandleHTTPLeaderboard(w http.ResponseWriter, r *http.Request)
	HandleHTTPLeaderboardChart(w http.ResponseWriter, r *http.Request)
	HandleHTTPPing(w http.ResponseWriter, r *http.Request)
}
