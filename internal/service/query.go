package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
	"github.com/markusmobius/go-dateparser/date"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
	"github.com/xiaot623/gogo/fieldops/internal/repository"
	"github.com/xiaot623/gogo/fieldops/internal/worktime"
)

// GetWorkSession returns one decorated session.
func (s *Service) GetWorkSession(ctx context.Context, rawSessionID string) (*domain.WorkSessionView, error) {
	id, err := parseID("session id", rawSessionID)
	if err != nil {
		return nil, err
	}
	ws, err := s.store.GetWorkSession(ctx, id)
	if err != nil {
		return nil, domain.Internal("failed to get work session", err)
	}
	if ws == nil {
		return nil, domain.NotFound("work session", id)
	}
	views, err := s.decorate(ctx, []domain.WorkSession{*ws})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListWorkSessionsByMission lists the sessions of a mission, newest first.
func (s *Service) ListWorkSessionsByMission(ctx context.Context, rawMissionID string) ([]domain.WorkSessionView, error) {
	missionID, err := parseID("mission id", rawMissionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMission(ctx, missionID); err != nil {
		return nil, err
	}
	return s.listDecorated(ctx, store.WorkSessionFilter{MissionID: &missionID})
}

// ListWorkSessionsWithoutMission lists the sessions of an account that are
// not tied to any mission, newest first.
func (s *Service) ListWorkSessionsWithoutMission(ctx context.Context, rawAccountID string) ([]domain.WorkSessionView, error) {
	accountID, err := parseID("account id", rawAccountID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.listDecorated(ctx, store.WorkSessionFilter{AccountID: &accountID, WithoutMission: true})
}

// ListWorkSessionsByAccount lists the sessions of an account whose start
// time falls within rng, newest first.
func (s *Service) ListWorkSessionsByAccount(ctx context.Context, rawAccountID string, rng domain.WorkSessionRange) ([]domain.WorkSessionView, error) {
	accountID, err := parseID("account id", rawAccountID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.listDecorated(ctx, store.WorkSessionFilter{
		AccountID: &accountID,
		From:      rng.From,
		To:        rng.To,
		Limit:     rng.Limit,
	})
}

// LatestOpenWorkSession returns the newest session of an account that has
// no end time and whose mission, if any, is not canceled. It returns nil
// when there is none.
func (s *Service) LatestOpenWorkSession(ctx context.Context, rawAccountID string) (*domain.OpenWorkSessionView, error) {
	accountID, err := parseID("account id", rawAccountID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}

	ws, err := s.store.LatestOpenWorkSession(ctx, accountID)
	if err != nil {
		return nil, domain.Internal("failed to get latest open work session", err)
	}
	if ws == nil {
		return nil, nil
	}

	views, err := s.decorate(ctx, []domain.WorkSession{*ws})
	if err != nil {
		return nil, err
	}
	out := &domain.OpenWorkSessionView{WorkSessionView: views[0]}
	if ws.MissionID != nil {
		mission, err := s.store.GetMission(ctx, *ws.MissionID)
		if err != nil {
			return nil, domain.Internal("failed to get mission", err)
		}
		if mission != nil {
			out.MissionDescription = &mission.Description
		}
	}
	return out, nil
}

func (s *Service) listDecorated(ctx context.Context, filter store.WorkSessionFilter) ([]domain.WorkSessionView, error) {
	sessions, err := s.store.ListWorkSessions(ctx, filter)
	if err != nil {
		return nil, domain.Internal("failed to list work sessions", err)
	}
	return s.decorate(ctx, sessions)
}

// decorate attaches the account summary, ordered pauses and computed
// durations to each session, keeping the input order.
func (s *Service) decorate(ctx context.Context, sessions []domain.WorkSession) ([]domain.WorkSessionView, error) {
	views := make([]domain.WorkSessionView, 0, len(sessions))
	if len(sessions) == 0 {
		return views, nil
	}

	ids := make([]int64, len(sessions))
	for i, ws := range sessions {
		ids[i] = ws.ID
	}
	pausesByID, err := s.store.ListPausesForSessions(ctx, ids)
	if err != nil {
		return nil, domain.Internal("failed to list pauses", err)
	}

	accounts := make(map[int64]*domain.AccountSummary)
	now := s.clock.Now()
	for _, ws := range sessions {
		summary, ok := accounts[ws.AccountID]
		if !ok {
			account, err := s.store.GetAccount(ctx, ws.AccountID)
			if err != nil {
				return nil, domain.Internal("failed to get account", err)
			}
			if account != nil {
				summary = &domain.AccountSummary{ID: account.ID, FirstName: account.FirstName, LastName: account.LastName}
			}
			accounts[ws.AccountID] = summary
		}

		pauses := nonNilPauses(pausesByID[ws.ID])
		views = append(views, domain.WorkSessionView{
			WorkSession: ws,
			Account:     summary,
			Pauses:      pauses,
			Durations:   ComputeDurations(ws, pauses, now),
		})
	}
	return views, nil
}

// ComputeDurations returns the durations of ws given its pauses. Open
// sessions are measured up to now.
func ComputeDurations(ws domain.WorkSession, pauses []domain.WorkSessionPause, now time.Time) domain.Durations {
	intervals := make([]worktime.Interval, len(pauses))
	for i, p := range pauses {
		intervals[i] = worktime.Interval{From: p.PauseTime, To: p.ResumeTime}
	}
	b := worktime.Compute(ws.StartTime, ws.EndTime, intervals, now)
	return domain.Durations{
		TotalMs:       b.TotalMs,
		PauseMs:       b.PauseMs,
		NetMs:         b.NetMs,
		TotalDuration: b.Total(),
		TotalPause:    b.Pause(),
		NetDuration:   b.Net(),
	}
}

// ParseWorkSessionRange parses the from, to and limit query values using
// the service clock for relative dates.
func (s *Service) ParseWorkSessionRange(from, to, limit string) (domain.WorkSessionRange, error) {
	return ParseWorkSessionRange(from, to, limit, s.clock.Now())
}

const dateOnly = "2006-01-02"

// Values shaped like ISO dates never fall through to natural language
// parsing, which would clamp impossible days such as 2025-02-30.
var isoShaped = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T.*)?$`)

// ParseWorkSessionRange parses range bounds given as RFC3339 timestamps,
// ISO dates or natural language dates ("yesterday", "March 27, 2025"). A
// bound without a time of day covers its whole day (or month, or year):
// from starts at the beginning, to stops at the end. Empty values mean no
// bound.
func ParseWorkSessionRange(from, to, limit string, now time.Time) (domain.WorkSessionRange, error) {
	var rng domain.WorkSessionRange
	var err error

	if rng.From, err = parseBound("from", from, false, now); err != nil {
		return rng, err
	}
	if rng.To, err = parseBound("to", to, true, now); err != nil {
		return rng, err
	}

	if limit = strings.TrimSpace(limit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return rng, domain.InvalidInput("invalid limit: %q", limit)
		}
		rng.Limit = n
	}
	return rng, nil
}

func parseBound(name, raw string, endOfPeriod bool, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		t = periodBound(t, date.Day, endOfPeriod)
		return &t, nil
	}
	if isoShaped.MatchString(raw) {
		return nil, domain.InvalidInput("invalid %s date: %q", name, raw)
	}

	dt, err := dateparser.Parse(&dateparser.Configuration{
		CurrentTime:        now.UTC(),
		DefaultTimezone:    time.UTC,
		ReturnTimeAsPeriod: true,
	}, raw)
	if err != nil || dt.IsZero() {
		return nil, domain.InvalidInput("invalid %s date: %q", name, raw)
	}
	t := periodBound(dt.Time.UTC(), dt.Period, endOfPeriod)
	return &t, nil
}

// periodBound returns the first (or, with end set, the last) instant of
// the day, month or year containing t. Finer periods return t unchanged.
func periodBound(t time.Time, period date.Period, end bool) time.Time {
	var start, next time.Time
	switch period {
	case date.Day:
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		next = start.AddDate(0, 0, 1)
	case date.Month:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		next = start.AddDate(0, 1, 0)
	case date.Year:
		start = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		next = start.AddDate(1, 0, 0)
	default:
		return t
	}
	if end {
		return next.Add(-time.Nanosecond)
	}
	return start
}
