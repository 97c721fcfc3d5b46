package badgequeue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	badgeservice "github.com/Black-And-White-Club/rota-badges/app/modules/badge/application"
	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// Checker is the part of the badge service the worker needs.
type Checker interface {
	CheckAndAward(ctx context.Context, memberID, teamID uuid.UUID) (badgeservice.CheckAndAwardResult, error)
}

// CheckAndAwardWorker runs CheckAndAwardJob.
type CheckAndAwardWorker struct {
	river.WorkerDefaults[CheckAndAwardJob]
	checker Checker
	logger  *slog.Logger
}

// NewCheckAndAwardWorker creates a worker bound to checker.
func NewCheckAndAwardWorker(logger *slog.Logger, checker Checker) *CheckAndAwardWorker {
	return &CheckAndAwardWorker{checker: checker, logger: logger}
}

// Timeout bounds one check.
func (w *CheckAndAwardWorker) Timeout(*river.Job[CheckAndAwardJob]) time.Duration {
	return time.Minute
}

// Work runs the check. Failures another attempt cannot fix cancel the job
// instead of retrying it.
func (w *CheckAndAwardWorker) Work(ctx context.Context, job *river.Job[CheckAndAwardJob]) error {
	logger := w.logger.With(
		attr.Int64("job_id", job.ID),
		attr.MemberID(job.Args.MemberID),
		attr.TeamID(job.Args.TeamID),
	)

	res, err := w.checker.CheckAndAward(ctx, job.Args.MemberID, job.Args.TeamID)
	if err != nil {
		if isPermanent(err) {
			logger.WarnContext(ctx, "Cancelling badge check", attr.Error(err))
			return river.JobCancel(err)
		}
		logger.ErrorContext(ctx, "Badge check failed", attr.Int("attempt", job.Attempt), attr.Error(err))
		return err
	}

	logger.InfoContext(ctx, "Badge check completed",
		attr.Int("new_badges", len(res.NewBadges)),
		attr.Int("failures", len(res.Failures)),
		attr.String("skipped", res.Skipped),
	)
	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, badgedomain.ErrMemberNotFound) ||
		errors.Is(err, badgedomain.ErrNotConfigured) ||
		errors.Is(err, badgedomain.ErrAccessDenied)
}
