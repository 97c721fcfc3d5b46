package badgehandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	badgeservice "github.com/Black-And-White-Club/rota-badges/app/modules/badge/application"
	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("%w: limit", badgedomain.ErrInvalidQuery), want: http.StatusBadRequest},
		{err: badgedomain.ErrMemberNotFound, want: http.StatusNotFound},
		{err: fmt.Errorf("write: %w", badgedomain.ErrAccessDenied), want: http.StatusForbidden},
		{err: badgedomain.ErrNotConfigured, want: http.StatusServiceUnavailable},
		{err: badgedomain.ErrChannelUnavailable, want: http.StatusServiceUnavailable},
		{err: badgedomain.ErrDataUnavailable, want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestBadgeHandlers_HandleHTTPCheck(t *testing.T) {
	memberID := uuid.New()
	teamID := uuid.New()
	earned := time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		body         string
		setupService func(*FakeService)
		wantStatus   int
		verify       func(t *testing.T, rr *httptest.ResponseRecorder)
	}{
		{
			name: "success",
			body: fmt.Sprintf(`{"memberId":%q,"teamId":%q}`, memberID, teamID),
			setupService: func(s *FakeService) {
				s.CheckAndAwardFunc = func(_ context.Context, m, tm uuid.UUID) (badgeservice.CheckAndAwardResult, error) {
					return badgeservice.CheckAndAwardResult{
						MemberID: m,
						TeamID:   tm,
						NewBadges: []badgedomain.Award{{
							Scope:    badgedomain.Scope{MemberID: m, TeamID: tm},
							Type:     badgedomain.BadgeActivity10,
							Period:   badgedomain.LifetimePeriod,
							EarnedAt: earned,
						}},
						Failures: []badgeservice.AwardFailure{{
							Key: badgedomain.AwardKey{Type: badgedomain.BadgeStreak3, Period: "2026-W42"},
							Err: errors.New("insert failed"),
						}},
						Stats: badgeservice.Stats{Eligible: 2, New: 1, Failed: 1},
					}, nil
				}
			},
			wantStatus: http.StatusOK,
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var body CheckResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
				assert.True(t, body.Success)
				require.Len(t, body.NewBadges, 1)
				assert.Equal(t, badgedomain.BadgeActivity10, body.NewBadges[0].Type)
				assert.Equal(t, 1, body.Stats.New)
				require.Len(t, body.Failures, 1)
				assert.Equal(t, badgedomain.BadgeStreak3, body.Failures[0].BadgeType)
			},
		},
		{
			name:       "malformed body",
			body:       `{"memberId":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing team",
			body:       fmt.Sprintf(`{"memberId":%q}`, memberID),
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "member not found",
			body: fmt.Sprintf(`{"memberId":%q,"teamId":%q}`, memberID, teamID),
			setupService: func(s *FakeService) {
				s.CheckAndAwardFunc = func(context.Context, uuid.UUID, uuid.UUID) (badgeservice.CheckAndAwardResult, error) {
					return badgeservice.CheckAndAwardResult{}, badgedomain.ErrMemberNotFound
				}
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "not configured asks for setup",
			body: fmt.Sprintf(`{"memberId":%q,"teamId":%q}`, memberID, teamID),
			setupService: func(s *FakeService) {
				s.CheckAndAwardFunc = func(context.Context, uuid.UUID, uuid.UUID) (badgeservice.CheckAndAwardResult, error) {
					return badgeservice.CheckAndAwardResult{}, fmt.Errorf("CheckAndAward: %w", badgedomain.ErrNotConfigured)
				}
			},
			wantStatus: http.StatusServiceUnavailable,
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var body ErrorResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
				assert.False(t, body.Success)
				assert.True(t, body.SetupRequired)
				assert.Equal(t, string(badgedomain.KindNotConfigured), body.Kind)
			},
		},
		{
			name: "internal errors are not leaked",
			body: fmt.Sprintf(`{"memberId":%q,"teamId":%q}`, memberID, teamID),
			setupService: func(s *FakeService) {
				s.CheckAndAwardFunc = func(context.Context, uuid.UUID, uuid.UUID) (badgeservice.CheckAndAwardResult, error) {
					return badgeservice.CheckAndAwardResult{}, errors.New("pq: secret detail")
				}
			},
			wantStatus: http.StatusInternalServerError,
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.NotContains(t, rr.Body.String(), "secret detail")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{}
			if tt.setupService != nil {
				tt.setupService(svc)
			}
			h := NewBadgeHandlers(svc, nil, testLogger(), nil)

			req := httptest.NewRequest(http.MethodPost, "/api/badges/check", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.HandleHTTPCheck(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			if tt.verify != nil {
				tt.verify(t, rr)
			}
		})
	}
}

func TestBadgeHandlers_HandleHTTPPreview(t *testing.T) {
	memberID := uuid.New()
	teamID := uuid.New()
	svc := &FakeService{PreviewEligibilityFunc: func(context.Context, uuid.UUID, uuid.UUID) (badgeservice.EligibilityPreview, error) {
		return badgeservice.EligibilityPreview{
			Qualifying:  []badgedomain.AwardKey{{Type: badgedomain.BadgeActivity10, Period: badgedomain.LifetimePeriod}},
			AlreadyHeld: []badgedomain.AwardKey{{Type: badgedomain.BadgeActivity10, Period: badgedomain.LifetimePeriod}},
			Activity:    badgeservice.ActivitySummary{DistinctDayCount: 12, LongestDailyRun: 3},
		}, nil
	}}
	h := NewBadgeHandlers(svc, nil, testLogger(), nil)

	rr := httptest.NewRecorder()
	h.HandleHTTPPreview(rr, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/badges/check?memberId=%s&teamId=%s", memberID, teamID), nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body PreviewResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, []string{"activity_10@lifetime"}, body.Qualifying)
	assert.Equal(t, []string{}, body.Pending)
	assert.Equal(t, 12, body.DistinctDays)

	rr = httptest.NewRecorder()
	h.HandleHTTPPreview(rr, httptest.NewRequest(http.MethodGet, "/api/badges/check?memberId=not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBadgeHandlers_HandleHTTPUserBadges(t *testing.T) {
	memberID := uuid.New()
	teamID := uuid.New()

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantQuery  *badgeservice.BadgeQuery
		listErr    error
	}{
		{
			name:       "by member id",
			url:        fmt.Sprintf("/api/badges/user?memberId=%s&teamId=%s&limit=5", memberID, teamID),
			wantStatus: http.StatusOK,
			wantQuery:  &badgeservice.BadgeQuery{MemberID: &memberID, TeamID: &teamID, Limit: 5},
		},
		{
			name:       "by email",
			url:        "/api/badges/user?email=ada%40example.com",
			wantStatus: http.StatusOK,
			wantQuery:  &badgeservice.BadgeQuery{Email: "ada@example.com"},
		},
		{
			name:       "bad limit",
			url:        "/api/badges/user?email=ada%40example.com&limit=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "service rejects the query",
			url:        "/api/badges/user",
			listErr:    fmt.Errorf("%w: exactly one of member id or email is required", badgedomain.ErrInvalidQuery),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *badgeservice.BadgeQuery
			svc := &FakeService{ListBadgesFunc: func(_ context.Context, q badgeservice.BadgeQuery) (badgeservice.BadgeList, error) {
				got = &q
				if tt.listErr != nil {
					return badgeservice.BadgeList{}, tt.listErr
				}
				return badgeservice.BadgeList{Badges: []badgeservice.BadgeView{}, Groups: []badgeservice.BadgeGroup{}, Warning: badgeservice.WarningNotConfigured}, nil
			}}
			h := NewBadgeHandlers(svc, nil, testLogger(), nil)

			rr := httptest.NewRecorder()
			h.HandleHTTPUserBadges(rr, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)

			if tt.wantQuery != nil {
				require.NotNil(t, got)
				assert.Equal(t, *tt.wantQuery, *got)

				var body map[string]any
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
				assert.Equal(t, true, body["success"])
				assert.Equal(t, badgeservice.WarningNotConfigured, body["warning"])
				assert.Contains(t, body, "groups")
			}
		})
	}
}

func TestBadgeHandlers_HandleHTTPLeaderboard(t *testing.T) {
	teamID := uuid.New()
	var gotLimit int
	svc := &FakeService{LeaderboardFunc: func(_ context.Context, id uuid.UUID, limit int) (badgeservice.LeaderboardResult, error) {
		gotLimit = limit
		return badgeservice.LeaderboardResult{TeamID: id, Entries: []badgeservice.LeaderboardEntry{{Rank: 1, MemberName: "Ada", TotalBadges: 3}}}, nil
	}}
	h := NewBadgeHandlers(svc, nil, testLogger(), nil)

	rr := httptest.NewRecorder()
	h.HandleHTTPLeaderboard(rr, httptest.NewRequest(http.MethodGet, "/api/badges/leaderboard?teamId="+teamID.String()+"&limit=3", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, gotLimit)

	var body struct {
		Success bool                            `json:"success"`
		Entries []badgeservice.LeaderboardEntry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.True(t, body.Success)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "Ada", body.Entries[0].MemberName)

	rr = httptest.NewRecorder()
	h.HandleHTTPLeaderboard(rr, httptest.NewRequest(http.MethodGet, "/api/badges/leaderboard", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBadgeHandlers_HandleHTTPLeaderboardChart(t *testing.T) {
	h := NewBadgeHandlers(&FakeService{}, nil, testLogger(), nil)

	rr := httptest.NewRecorder()
	h.HandleHTTPLeaderboardChart(rr, httptest.NewRequest(http.MethodGet, "/api/badges/leaderboard/chart?teamId="+uuid.NewString(), nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "\x89PNG"))
}

func TestBadgeHandlers_HandleHTTPPing(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{name: "healthy", wantStatus: http.StatusOK},
		{name: "all channels down", pingErr: badgedomain.ErrChannelUnavailable, wantStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{PingFunc: func(context.Context) ([]badgeservice.ChannelHealth, error) {
				return []badgeservice.ChannelHealth{{Channel: "restricted", OK: tt.pingErr == nil}}, tt.pingErr
			}}
			h := NewBadgeHandlers(svc, nil, testLogger(), nil)

			rr := httptest.NewRecorder()
			h.HandleHTTPPing(rr, httptest.NewRequest(http.MethodGet, "/api/badges/ping", nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), `"channel":"restricted"`)
		})
	}
}
