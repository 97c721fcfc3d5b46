package badgehandlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	badgeservice "github.com/Black-And-White-Club/rota-badges/app/modules/badge/application"
	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/google/uuid"
)

// CheckRequest is the body of POST /check.
type CheckRequest struct {
	MemberID uuid.UUID `json:"memberId"`
	TeamID   uuid.UUID `json:"teamId"`
}

// AwardFailureView is a failed award in a check response.
type AwardFailureView struct {
	BadgeType badgedomain.BadgeType `json:"badgeType"`
	Period    badgedomain.PeriodKey `json:"period"`
	Error     string                `json:"error"`
}

// CheckResponse is the body returned by POST /check.
type CheckResponse struct {
	Success   bool                            `json:"success"`
	NewBadges []badgeservice.BadgeView        `json:"newBadges"`
	Stats     badgeservice.Stats              `json:"stats"`
	Signals   badgeservice.SignalAvailability `json:"signals"`
	Failures  []AwardFailureView              `json:"failures"`
	Skipped   string                          `json:"skipped,omitempty"`
}

// PreviewResponse is the body returned by GET /check.
type PreviewResponse struct {
	Success         bool                            `json:"success"`
	AsOf            time.Time                       `json:"asOf"`
	Qualifying      []string                        `json:"qualifying"`
	AlreadyHeld     []string                        `json:"alreadyHeld"`
	Pending         []string                        `json:"pending"`
	DistinctDays    int                             `json:"distinctDays"`
	LongestDailyRun int                             `json:"longestDailyRun"`
	HelpedCount     int                             `json:"helpedCount"`
	Signals         badgeservice.SignalAvailability `json:"signals"`
	Skipped         string                          `json:"skipped,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Kind          string `json:"kind,omitempty"`
	SetupRequired bool   `json:"setup_required,omitempty"`
}

// HandleHTTPCheck runs CheckAndAward for the member in the request body.
func (h *BadgeHandlers) HandleHTTPCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: malformed body", badgedomain.ErrInvalidQuery))
		return
	}
	if req.MemberID == uuid.Nil || req.TeamID == uuid.Nil {
		h.writeError(w, r, fmt.Errorf("%w: memberId and teamId are required", badgedomain.ErrInvalidQuery))
		return
	}

	res, err := h.service.CheckAndAward(ctx, req.MemberID, req.TeamID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views, _ := badgeservice.Present(res.NewBadges)
	failures := make([]AwardFailureView, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, AwardFailureView{BadgeType: f.Key.Type, Period: f.Key.Period, Error: f.Err.Error()})
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		Success:   true,
		NewBadges: views,
		Stats:     res.Stats,
		Signals:   res.Signals,
		Failures:  failures,
		Skipped:   res.Skipped,
	})
}

// HandleHTTPPreview evaluates a member without awarding.
func (h *BadgeHandlers) HandleHTTPPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	memberID, err := requiredUUID(q.Get("memberId"), "memberId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	teamID, err := requiredUUID(q.Get("teamId"), "teamId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.service.PreviewEligibility(r.Context(), memberID, teamID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		Success:         true,
		AsOf:            p.AsOf,
		Qualifying:      keyStrings(p.Qualifying),
		AlreadyHeld:     keyStrings(p.AlreadyHeld),
		Pending:         keyStrings(p.Pending),
		DistinctDays:    p.Activity.DistinctDayCount,
		LongestDailyRun: p.Activity.LongestDailyRun,
		HelpedCount:     p.HelpedCount,
		Signals:         p.Signals,
		Skipped:         p.Skipped,
	})
}

// HandleHTTPUserBadges lists a member's awards by id or email.
func (h *BadgeHandlers) HandleHTTPUserBadges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var query badgeservice.BadgeQuery
	if raw := q.Get("memberId"); raw != "" {
		id, err := requiredUUID(raw, "memberId")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		query.MemberID = &id
	}
	query.Email = q.Get("email")

	teamID, err := optionalUUID(q.Get("teamId"), "teamId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	query.TeamID = teamID

	if query.Limit, err = limitParam(q.Get("limit")); err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.service.ListBadges(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		badgeservice.BadgeList
	}{Success: true, BadgeList: list})
}

// HandleHTTPLeaderboard ranks a team's members.
func (h *BadgeHandlers) HandleHTTPLeaderboard(w http.ResponseWriter, r *http.Request) {
	teamID, limit, err := leaderboardParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	board, err := h.service.Leaderboard(r.Context(), teamID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		badgeservice.LeaderboardResult
	}{Success: true, LeaderboardResult: board})
}

// HandleHTTPLeaderboardChart renders the leaderboard as a PNG.
func (h *BadgeHandlers) HandleHTTPLeaderboardChart(w http.ResponseWriter, r *http.Request) {
	teamID, limit, err := leaderboardParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	png, err := h.service.LeaderboardChart(r.Context(), teamID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// HandleHTTPPing reports the health of every data channel.
func (h *BadgeHandlers) HandleHTTPPing(w http.ResponseWriter, r *http.Request) {
	channels, err := h.service.Ping(r.Context())
	status := http.StatusOK
	if err != nil {
		h.logger.WarnContext(r.Context(), "Ping failed", attr.Error(err))
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, struct {
		Success  bool                         `json:"success"`
		Channels []badgeservice.ChannelHealth `json:"channels"`
	}{Success: err == nil, Channels: channels})
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch badgedomain.KindOf(err) {
	case badgedomain.KindInvalidQuery:
		return http.StatusBadRequest
	case badgedomain.KindMemberNotFound:
		return http.StatusNotFound
	case badgedomain.KindAccessDenied:
		return http.StatusForbidden
	case badgedomain.KindNotConfigured, badgedomain.KindChannelUnavailable, badgedomain.KindDataUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *BadgeHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := badgedomain.KindOf(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Badge request failed",
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
		msg = http.StatusText(status)
	}

	writeJSON(w, status, ErrorResponse{
		Error:         msg,
		Kind:          string(kind),
		SetupRequired: kind == badgedomain.KindNotConfigured,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requiredUUID(raw, name string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", badgedomain.ErrInvalidQuery, name)
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid id", badgedomain.ErrInvalidQuery, name)
	}
	return id, nil
}

func optionalUUID(raw, name string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := requiredUUID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func limitParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", badgedomain.ErrInvalidQuery)
	}
	return n, nil
}

func leaderboardParams(r *http.Request) (uuid.UUID, int, error) {
	q := r.URL.Query()
	teamID, err := requiredUUID(q.Get("teamId"), "teamId")
	if err != nil {
		return uuid.Nil, 0, err
	}
	limit, err := limitParam(q.Get("limit"))
	if err != nil {
		return uuid.Nil, 0, err
	}
	return teamID, limit, nil
}

func keyStrings(keys []badgedomain.AwardKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}
