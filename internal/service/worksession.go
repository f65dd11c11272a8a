package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
	"github.com/xiaot623/gogo/fieldops/internal/policy"
	"github.com/xiaot623/gogo/fieldops/internal/repository"
)

// StartWorkSession clocks an account in, optionally on a mission.
func (s *Service) StartWorkSession(ctx context.Context, req domain.StartWorkSessionRequest) (*domain.WorkSession, error) {
	if req.AccountID == nil {
		return nil, domain.MissingField("account_id")
	}
	if err := s.requireAccount(ctx, *req.AccountID); err != nil {
		return nil, err
	}
	if req.MissionID != nil {
		if _, err := s.requireMission(ctx, *req.MissionID); err != nil {
			return nil, err
		}
	}

	active, err := s.store.GetActiveWorkSession(ctx, *req.AccountID)
	if err != nil {
		return nil, domain.Internal("failed to get active work session", err)
	}
	if active != nil {
		return nil, domain.Conflict("account %d already has an active work session (%d)", *req.AccountID, active.ID)
	}

	now := s.now()
	if err := s.checkPolicy(ctx, policy.Input{
		Action:      domain.PolicyActionStart,
		AccountID:   *req.AccountID,
		MissionID:   req.MissionID,
		StartTimeMs: now.UnixMilli(),
	}); err != nil {
		return nil, err
	}

	ws := &domain.WorkSession{
		AccountID: *req.AccountID,
		MissionID: req.MissionID,
		StartTime: now,
		Status:    domain.SessionStatusStarted,
	}
	if err := s.store.CreateWorkSession(ctx, ws); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domain.Conflict("account %d already has an active work session", *req.AccountID)
		}
		return nil, domain.Internal("failed to create work session", err)
	}

	s.publish(domain.EventTypeSessionStarted, ws, 0)
	return ws, nil
}

// PauseWorkSession suspends a Started session.
func (s *Service) PauseWorkSession(ctx context.Context, rawSessionID string) (*domain.PauseResponse, error) {
	ws, err := s.sessionForTransition(ctx, rawSessionID)
	if err != nil {
		return nil, err
	}
	if ws.Status != domain.SessionStatusStarted {
		return nil, domain.Conflict("work session %d is %s and cannot be paused", ws.ID, ws.Status)
	}

	open, err := s.store.GetOpenPause(ctx, ws.ID)
	if err != nil {
		return nil, domain.Internal("failed to get open pause", err)
	}
	if open != nil {
		return nil, domain.Conflict("work session %d already has an open pause", ws.ID)
	}

	pause, err := s.store.PauseWorkSession(ctx, ws.ID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domain.Conflict("work session %d cannot be paused", ws.ID)
		}
		return nil, domain.Internal("failed to pause work session", err)
	}
	ws.Status = domain.SessionStatusPaused

	s.publish(domain.EventTypeSessionPaused, ws, pause.ID)
	return &domain.PauseResponse{WorkSession: *ws, Pause: *pause}, nil
}

// ResumeWorkSession closes the open pause of a Paused session.
func (s *Service) ResumeWorkSession(ctx context.Context, rawSessionID string) (*domain.PauseResponse, error) {
	ws, err := s.sessionForTransition(ctx, rawSessionID)
	if err != nil {
		return nil, err
	}
	if ws.Status != domain.SessionStatusPaused {
		return nil, domain.Conflict("work session %d is %s and cannot be resumed", ws.ID, ws.Status)
	}

	pause, err := s.store.ResumeWorkSession(ctx, ws.ID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoOpenPause):
			return nil, domain.Conflict("work session %d has no open pause", ws.ID)
		case errors.Is(err, store.ErrConflict):
			return nil, domain.Conflict("work session %d cannot be resumed", ws.ID)
		}
		return nil, domain.Internal("failed to resume work session", err)
	}
	ws.Status = domain.SessionStatusStarted

	s.publish(domain.EventTypeSessionResumed, ws, pause.ID)
	return &domain.PauseResponse{WorkSession: *ws, Pause: *pause}, nil
}

// StopWorkSession ends a session and returns it with all its pauses. An
// open pause is left as is and counts as zero paused time.
func (s *Service) StopWorkSession(ctx context.Context, rawSessionID string) (*domain.SessionWithPauses, error) {
	ws, err := s.sessionForTransition(ctx, rawSessionID)
	if err != nil {
		return nil, err
	}
	if !ws.Status.IsActive() {
		return nil, domain.Conflict("work session %d is already ended", ws.ID)
	}

	now := s.now()
	if err := s.store.StopWorkSession(ctx, ws.ID, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domain.Conflict("work session %d is already ended", ws.ID)
		}
		return nil, domain.Internal("failed to stop work session", err)
	}
	ws.Status = domain.SessionStatusEnded
	ws.EndTime = &now

	pauses, err := s.store.ListPauses(ctx, ws.ID)
	if err != nil {
		return nil, domain.Internal("failed to list pauses", err)
	}

	s.publish(domain.EventTypeSessionStopped, ws, 0)
	return &domain.SessionWithPauses{WorkSession: *ws, Pauses: nonNilPauses(pauses)}, nil
}

// CreateManualWorkSession records an already finished session. Pause
// entries missing either bound are skipped.
func (s *Service) CreateManualWorkSession(ctx context.Context, req domain.ManualWorkSessionRequest) (*domain.SessionWithPauses, error) {
	switch {
	case req.AccountID == nil:
		return nil, domain.MissingField("account_id")
	case req.StartTime == nil:
		return nil, domain.MissingField("start_time")
	case req.EndTime == nil:
		return nil, domain.MissingField("end_time")
	}
	if err := s.requireAccount(ctx, *req.AccountID); err != nil {
		return nil, err
	}
	if req.MissionID != nil {
		if _, err := s.requireMission(ctx, *req.MissionID); err != nil {
			return nil, err
		}
	}

	pauses := make([]domain.WorkSessionPause, 0, len(req.Pauses))
	for _, p := range req.Pauses {
		if p.PauseTime == nil || p.ResumeTime == nil {
			continue
		}
		resume := p.ResumeTime.UTC()
		pauses = append(pauses, domain.WorkSessionPause{PauseTime: p.PauseTime.UTC(), ResumeTime: &resume})
	}
	sort.SliceStable(pauses, func(i, j int) bool {
		return pauses[i].PauseTime.Before(pauses[j].PauseTime)
	})

	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	endMs := end.UnixMilli()
	durationMs := end.Sub(start).Milliseconds()
	if err := s.checkPolicy(ctx, policy.Input{
		Action:      domain.PolicyActionCreateManual,
		AccountID:   *req.AccountID,
		MissionID:   req.MissionID,
		StartTimeMs: start.UnixMilli(),
		EndTimeMs:   &endMs,
		DurationMs:  &durationMs,
		PauseCount:  len(pauses),
	}); err != nil {
		return nil, err
	}

	ws := &domain.WorkSession{
		AccountID: *req.AccountID,
		MissionID: req.MissionID,
		StartTime: start,
		EndTime:   &end,
		Status:    domain.SessionStatusEnded,
	}
	if err := s.store.CreateManualWorkSession(ctx, ws, pauses); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domain.Conflict("manual work session conflicts with existing data")
		}
		return nil, domain.Internal("failed to create manual work session", err)
	}

	s.publish(domain.EventTypeSessionCreatedManual, ws, 0)
	return &domain.SessionWithPauses{WorkSession: *ws, Pauses: pauses}, nil
}

// sessionForTransition loads the session a pause, resume or stop acts on.
// A missing session is a state conflict, not a lookup failure.
func (s *Service) sessionForTransition(ctx context.Context, rawSessionID string) (*domain.WorkSession, error) {
	id, err := parseID("session id", rawSessionID)
	if err != nil {
		return nil, err
	}
	ws, err := s.store.GetWorkSession(ctx, id)
	if err != nil {
		return nil, domain.Internal("failed to get work session", err)
	}
	if ws == nil {
		return nil, domain.Conflict("work session %d does not exist", id)
	}
	return ws, nil
}

func (s *Service) requireAccount(ctx context.Context, accountID int64) error {
	_, err := s.getAccount(ctx, accountID)
	return err
}

func (s *Service) getAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, domain.Internal("failed to get account", err)
	}
	if account == nil {
		return nil, domain.NotFound("account", accountID)
	}
	return account, nil
}

func (s *Service) requireMission(ctx context.Context, missionID int64) (*domain.Mission, error) {
	mission, err := s.store.GetMission(ctx, missionID)
	if err != nil {
		return nil, domain.Internal("failed to get mission", err)
	}
	if mission == nil {
		return nil, domain.NotFound("mission", missionID)
	}
	return mission, nil
}

func (s *Service) checkPolicy(ctx context.Context, input policy.Input) error {
	if s.policyEngine == nil {
		return nil
	}
	decision, err := s.policyEngine.Evaluate(ctx, input)
	if err != nil {
		return domain.Internal("policy evaluation failed", err)
	}
	if !decision.Allowed() {
		reason := decision.Reason
		if reason == "" {
			reason = "blocked"
		}
		return domain.Rejected(reason)
	}
	return nil
}

func (s *Service) publish(eventType domain.EventType, ws *domain.WorkSession, pauseID int64) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(domain.SessionEvent{
		Type:      eventType,
		Ts:        s.clock.Now().UnixMilli(),
		SessionID: ws.ID,
		AccountID: ws.AccountID,
		MissionID: ws.MissionID,
		Status:    ws.Status,
		PauseID:   pauseID,
	})
}

// now returns the current time in UTC at millisecond precision, the
// resolution durations are reported in.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

func nonNilPauses(pauses []domain.WorkSessionPause) []domain.WorkSessionPause {
	if pauses == nil {
		return []domain.WorkSessionPause{}
	}
	return pauses
}
