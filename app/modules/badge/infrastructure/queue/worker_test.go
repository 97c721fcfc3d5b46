package badgequeue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	badgeservice "github.com/Black-And-White-Club/rota-badges/app/modules/badge/application"
	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	calls int
	err   error
}

func (f *fakeChecker) CheckAndAward(_ context.Context, memberID, teamID uuid.UUID) (badgeservice.CheckAndAwardResult, error) {
	f.calls++
	if f.err != nil {
		return badgeservice.CheckAndAwardResult{}, f.err
	}
	return badgeservice.CheckAndAwardResult{MemberID: memberID, TeamID: teamID}, nil
}

func TestCheckAndAwardJob_Args(t *testing.T) {
	job := CheckAndAwardJob{
		MemberID: uuid.MustParse("5b0f6c8e-6c1a-4f0e-9b1e-2f7a9d3c4e51"),
		TeamID:   uuid.MustParse("0d7e2f4a-3b8c-4d6e-8f1a-9c2b5e7d3a10"),
	}
	assert.Equal(t, "badge_check_and_award", job.Kind())

	data, err := json.Marshal(job)
	require.NoError(t, err)
	assert.JSONEq(t, `{"member_id":"5b0f6c8e-6c1a-4f0e-9b1e-2f7a9d3c4e51","team_id":"0d7e2f4a-3b8c-4d6e-8f1a-9c2b5e7d3a10"}`, string(data))
}

func TestCheckAndAwardWorker_Work(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		checkErr   error
		wantErr    bool
		wantCancel bool
	}{
		{name: "success"},
		{name: "transient failure is retried", checkErr: fmt.Errorf("read: %w", badgedomain.ErrChannelUnavailable), wantErr: true},
		{name: "unknown member is cancelled", checkErr: badgedomain.ErrMemberNotFound, wantErr: true, wantCancel: true},
		{name: "missing schema is cancelled", checkErr: fmt.Errorf("award: %w", badgedomain.ErrNotConfigured), wantErr: true, wantCancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &fakeChecker{err: tt.checkErr}
			w := NewCheckAndAwardWorker(logger, checker)
			job := &river.Job[CheckAndAwardJob]{
				JobRow: &rivertype.JobRow{ID: 42, Attempt: 1},
				Args:   CheckAndAwardJob{MemberID: uuid.New(), TeamID: uuid.New()},
			}

			err := w.Work(context.Background(), job)
			assert.Equal(t, 1, checker.calls)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.checkErr)
			assert.Equal(t, tt.wantCancel, isPermanent(err))
		})
	}
}
