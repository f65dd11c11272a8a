// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

var (
	// ErrConflict is returned when a write would break a uniqueness
	// constraint or when a compare-and-swap status update matched no row.
	ErrConflict = errors.New("store: conflicting work session state")

	// ErrNoOpenPause is returned by ResumeWorkSession when the session has
	// no pause waiting to be resumed.
	ErrNoOpenPause = errors.New("store: no open pause")
)

// Store defines the interface for data persistence.
type Store interface {
	// Account and mission projections
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	CreateMission(ctx context.Context, mission *domain.Mission) error
	GetMission(ctx context.Context, missionID int64) (*domain.Mission, error)
	SetMissionCanceled(ctx context.Context, missionID int64, canceled bool) error

	// Work session state transitions. Each call commits atomically.
	CreateWorkSession(ctx context.Context, session *domain.WorkSession) error
	PauseWorkSession(ctx context.Context, sessionID int64, at time.Time) (*domain.WorkSessionPause, error)
	ResumeWorkSession(ctx context.Context, sessionID int64, at time.Time) (*domain.WorkSessionPause, error)
	StopWorkSession(ctx context.Context, sessionID int64, at time.Time) error
	CreateManualWorkSession(ctx context.Context, session *domain.WorkSession, pauses []domain.WorkSessionPause) error

	// Work session reads
	GetWorkSession(ctx context.Context, sessionID int64) (*domain.WorkSession, error)
	GetActiveWorkSession(ctx context.Context, accountID int64) (*domain.WorkSession, error)
	LatestOpenWorkSession(ctx context.Context, accountID int64) (*domain.WorkSession, error)
	ListWorkSessions(ctx context.Context, filter WorkSessionFilter) ([]domain.WorkSession, error)

	// Pause reads
	GetOpenPause(ctx context.Context, sessionID int64) (*domain.WorkSessionPause, error)
	ListPauses(ctx context.Context, sessionID int64) ([]domain.WorkSessionPause, error)
	ListPausesForSessions(ctx context.Context, sessionIDs []int64) (map[int64][]domain.WorkSessionPause, error)

	// Lifecycle
	Close() error
}

// WorkSessionFilter provides filtering options for session listings.
// Results are ordered by start time, newest first.
type WorkSessionFilter struct {
	AccountID      *int64
	MissionID      *int64
	WithoutMission bool
	From           *time.Time
	To             *time.Time
	Limit          int
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
