package badgemetrics

import (
	"context"
	"time"
)

// BadgeMetrics records badge engine telemetry.
type BadgeMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	RecordAwardGranted(ctx context.Context, badgeType string)
	RecordDuplicateIgnored(ctx context.Context, badgeType string)
	RecordAwardFailure(ctx context.Context, badgeType string)
	RecordSignalUnavailable(ctx context.Context, signal string)

	RecordChannelAttempt(ctx context.Context, operation, channel, outcome string)
	RecordChannelFallback(ctx context.Context, operation, from, to string)
}

type noop struct{}

// NewNoop returns metrics that record nothing.
func NewNoop() BadgeMetrics { return noop{} }

func (noop) RecordOperationAttempt(context.Context, string, string) {}
func (noop) RecordOperationSuccess(context.Context, string, string) {}
func (noop) RecordOperationFailure(context.Context, string, string) {}
func (noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noop) RecordAwardGranted(context.Context, string) {}
func (noop) RecordDuplicateIgnored(context.Context, string) {}
func (noop) RecordAwardFailure(context.Context, string) {}
func (noop) RecordSignalUnavailable(context.Context, string) {}
func (noop) RecordChannelAttempt(context.Context, string, string, string) {}
func (noop) RecordChannelFallback(context.Context, string, string, string) {}
