package badgequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

// Metrics records queue operations.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// QueueService schedules badge checks.
type QueueService interface {
	// EnqueueCheck schedules a check for one member.
	EnqueueCheck(ctx context.Context, memberID, teamID uuid.UUID) error
	// PendingJobs lists badge jobs that have not finished.
	PendingJobs(ctx context.Context) ([]JobInfo, error)
	// HealthCheck verifies the queue tables are reachable.
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Config sizes the badge queue.
type Config struct {
	MaxWorkers int
}

// Service runs badge jobs on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics Metrics
}

// NewService creates the River client and registers the badge worker.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, metrics Metrics, checker Checker, cfg Config) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_badge_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")
	ctxLogger.Info("Initializing badge queue service")

	// River requires pgx, not database/sql
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewCheckAndAwardWorker(ctxLogger, checker))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))
	ctxLogger.Info("Badge queue service initialized", attr.Int("max_workers", maxWorkers))

	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
	}, nil
}

// Start starts working jobs.
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")
	s.logger.Info("Starting badge queue service")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.metrics.RecordOperationDuration(ctx, "start_service", "river", time.Since(start))
	return nil
}

// Stop waits for running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")
	s.logger.Info("Stopping badge queue service")

	err := s.client.Stop(ctx)
	s.pool.Close()
	if err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.metrics.RecordOperationDuration(ctx, "stop_service", "river", time.Since(start))
	s.logger.Info("Badge queue service stopped")
	return nil
}

// EnqueueCheck inserts a CheckAndAwardJob. Identical jobs inside UniqueWindow
// are skipped by River.
func (s *Service) EnqueueCheck(ctx context.Context, memberID, teamID uuid.UUID) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_check", "river")

	ctxLogger := s.logger.With(
		attr.MemberID(memberID),
		attr.TeamID(teamID),
		attr.String("operation", "enqueue_check"),
	)

	jobResult, err := s.client.Insert(ctx, CheckAndAwardJob{MemberID: memberID, TeamID: teamID}, &river.InsertOpts{
		Queue: QueueName,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: UniqueWindow,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to enqueue badge check", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "enqueue_check", "river")
		return fmt.Errorf("failed to enqueue badge check: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_check", "river")
	s.metrics.RecordOperationDuration(ctx, "enqueue_check", "river", time.Since(start))
	ctxLogger.Info("Badge check enqueued",
		attr.Int64("job_id", jobResult.Job.ID),
		attr.Bool("duplicate", jobResult.UniqueSkippedAsDuplicate),
	)
	return nil
}

// PendingJobs lists badge jobs that are not yet completed, cancelled or discarded.
func (s *Service) PendingJobs(ctx context.Context) ([]JobInfo, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "pending_jobs", "river")

	type riverJobRow struct {
		ID          int64          `bun:"id"`
		Kind        string         `bun:"kind"`
		State       string         `bun:"state"`
		Args        map[string]any `bun:"args,type:jsonb"`
		ScheduledAt time.Time      `bun:"scheduled_at"`
		Attempt     int            `bun:"attempt"`
		MaxAttempts int            `bun:"max_attempts"`
	}

	var rows []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "scheduled_at", "attempt", "max_attempts").
		Where("kind = ?", CheckAndAwardJob{}.Kind()).
		Where("state IN (?)", bun.In([]string{"available", "scheduled", "running", "retryable"})).
		Order("scheduled_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		s.logger.Error("Failed to list badge jobs", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "pending_jobs", "river")
		return nil, fmt.Errorf("failed to list badge jobs: %w", err)
	}

	out := make([]JobInfo, len(rows))
	for i, r := range rows {
		memberID, _ := r.Args["member_id"].(string)
		out[i] = JobInfo{
			ID:          r.ID,
			Kind:        r.Kind,
			MemberID:    memberID,
			State:       r.State,
			ScheduledAt: r.ScheduledAt.Format(time.RFC3339),
			Attempt:     r.Attempt,
			MaxAttempts: r.MaxAttempts,
		}
	}

	s.metrics.RecordOperationSuccess(ctx, "pending_jobs", "river")
	s.metrics.RecordOperationDuration(ctx, "pending_jobs", "river", time.Since(start))
	return out, nil
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "health_check", "river")

	if s.client == nil {
		s.metrics.RecordOperationFailure(ctx, "health_check", "river")
		return fmt.Errorf("river client is nil")
	}

	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "health_check", "river")
		return fmt.Errorf("queue service health check failed: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "health_check", "river")
	s.metrics.RecordOperationDuration(ctx, "health_check", "river", time.Since(start))
	s.logger.Debug("Queue service health check passed", attr.Int("total_jobs", count))
	return nil
}
