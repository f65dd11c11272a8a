// Package domain defines the core domain models for work-session tracking.
package domain

// SessionStatus represents the status of a work session.
type SessionStatus string

const (
	SessionStatusStarted SessionStatus = "Started"
	SessionStatusPaused  SessionStatus = "Paused"
	SessionStatusEnded   SessionStatus = "Ended"
)

// IsActive reports whether the session still counts as the account's
// running session.
func (s SessionStatus) IsActive() bool {
	return s == SessionStatusStarted || s == SessionStatusPaused
}

// EventType represents the type of a live feed event.
type EventType string

const (
	EventTypeSessionStarted       EventType = "work_session.started"
	EventTypeSessionPaused        EventType = "work_session.paused"
	EventTypeSessionResumed       EventType = "work_session.resumed"
	EventTypeSessionStopped       EventType = "work_session.stopped"
	EventTypeSessionCreatedManual EventType = "work_session.created_manual"
)

// PolicyAction names the operation a policy decision is requested for.
type PolicyAction string

const (
	PolicyActionStart        PolicyAction = "start"
	PolicyActionCreateManual PolicyAction = "create_manual"
)
