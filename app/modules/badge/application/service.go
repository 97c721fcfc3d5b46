package badgeservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	badgeaccess "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/access"
	badgemetrics "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/metrics"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "BadgeService"

const (
	// DefaultStreakLookbackWeeks is how many weeks of timeliness are read.
	DefaultStreakLookbackWeeks = 16
	// MinStreakLookbackWeeks leaves room for the longest streak plus the
	// week that bounds it.
	MinStreakLookbackWeeks = 14
	// MaxTimelinessWeeks caps how far back an unbroken streak is followed.
	MaxTimelinessWeeks = 520

	DefaultListLimit        = 50
	DefaultLeaderboardLimit = 10
	MaxLimit                = 500
)

// Settings tunes the evaluator.
type Settings struct {
	StreakLookbackWeeks int
	// Now overrides the clock.
	Now func() time.Time
}

// BadgeService implements the Service interface.
type BadgeService struct {
	repo     badgedb.Repository
	selector badgeaccess.Selector
	notifier Notifier
	logger   *slog.Logger
	metrics  badgemetrics.BadgeMetrics
	tracer   trace.Tracer

	lookbackWeeks int
	now           func() time.Time
}

var _ Service = (*BadgeService)(nil)

// NewBadgeService creates a new BadgeService.
func NewBadgeService(
	repo badgedb.Repository,
	selector badgeaccess.Selector,
	notifier Notifier,
	logger *slog.Logger,
	metrics badgemetrics.BadgeMetrics,
	tracer trace.Tracer,
	settings Settings,
) *BadgeService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = badgemetrics.NewNoop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(serviceName)
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	lookback := settings.StreakLookbackWeeks
	if lookback <= 0 {
		lookback = DefaultStreakLookbackWeeks
	}
	if lookback < MinStreakLookbackWeeks {
		lookback = MinStreakLookbackWeeks
	}
	now := settings.Now
	if now == nil {
		now = time.Now
	}
	return &BadgeService{
		repo:          repo,
		selector:      selector,
		notifier:      notifier,
		logger:        logger,
		metrics:       metrics,
		tracer:        tracer,
		lookbackWeeks: lookback,
		now:           now,
	}
}

type nopNotifier struct{}

func (nopNotifier) AwardsGranted(context.Context, badgedomain.Member, []badgedomain.Award) error {
	return nil
}

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *BadgeService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("identifier", identifier),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, operationName+" triggered",
		attr.String("operation", operationName),
		attr.String("identifier", identifier),
		attr.ExtractCorrelationID(ctx),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.String("identifier", identifier),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, operationName+" completed successfully",
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.ExtractCorrelationID(ctx),
		)
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// unwrap flattens a telemetry result into the public (value, error) shape.
// A success payload returned with an error is a partial result and is kept.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		if result.Success != nil {
			return *result.Success, err
		}
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if result.Success == nil {
		return zero, errors.New("operation returned no result")
	}
	return *result.Success, nil
}

// loadMember reads the member and checks it belongs to teamID.
func (s *BadgeService) loadMember(ctx context.Context, memberID, teamID uuid.UUID) (badgedomain.Member, error) {
	var row *badgedb.Member
	err := s.selector.Do(ctx, badgeaccess.OpReadMembers, func(ctx context.Context, db bun.IDB) error {
		var err error
		row, err = s.repo.GetMember(ctx, db, memberID)
		return err
	})
	if err != nil {
		if errors.Is(err, badgedb.ErrNotFound) {
			return badgedomain.Member{}, fmt.Errorf("member %s: %w", memberID, badgedomain.ErrMemberNotFound)
		}
		return badgedomain.Member{}, err
	}
	member := row.ToDomain()
	if member.TeamID != teamID {
		return badgedomain.Member{}, fmt.Errorf("member %s in team %s: %w", memberID, teamID, badgedomain.ErrMemberNotFound)
	}
	return member, nil
}

// clampLimit applies the default and the upper bound to a page size.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// isDomainFailure reports whether err is a business outcome rather than an
// infrastructure fault.
func isDomainFailure(err error) bool {
	return errors.Is(err, badgedomain.ErrMemberNotFound) || errors.Is(err, badgedomain.ErrInvalidQuery)
}
