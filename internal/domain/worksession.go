package domain

import "time"

// Account is the local projection of an employee account.
type Account struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Mission is the local projection of a field mission.
type Mission struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Canceled    bool      `json:"canceled"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkSession is a period during which an account is recorded as working.
type WorkSession struct {
	ID        int64         `json:"id"`
	AccountID int64         `json:"account_id"`
	MissionID *int64        `json:"mission_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   *time.Time    `json:"end_time"`
	Status    SessionStatus `json:"status"`
}

// WorkSessionPause is a sub-interval of a session during which work is
// suspended. A nil ResumeTime means the pause is still open.
type WorkSessionPause struct {
	ID            int64      `json:"id"`
	WorkSessionID int64      `json:"work_session_id"`
	PauseTime     time.Time  `json:"pause_time"`
	ResumeTime    *time.Time `json:"resume_time"`
}

// IsOpen reports whether the pause has not been resumed yet.
func (p WorkSessionPause) IsOpen() bool {
	return p.ResumeTime == nil
}

// AccountSummary is the account data embedded in session listings.
type AccountSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Durations holds computed session durations, raw and formatted.
type Durations struct {
	TotalMs       int64  `json:"total_ms"`
	PauseMs       int64  `json:"pause_ms"`
	NetMs         int64  `json:"net_ms"`
	TotalDuration string `json:"total_duration"`
	TotalPause    string `json:"total_pause"`
	NetDuration   string `json:"net_duration"`
}

// WorkSessionView is a session decorated for read-side responses.
type WorkSessionView struct {
	WorkSession
	Account   *AccountSummary    `json:"account,omitempty"`
	Pauses    []WorkSessionPause `json:"pauses"`
	Durations Durations          `json:"durations"`
}

// OpenWorkSessionView is the latest open session of an account with the
// mission description flattened into the payload.
type OpenWorkSessionView struct {
	WorkSessionView
	MissionDescription *string `json:"mission_description"`
}

// SessionEvent is pushed to live feed subscribers after a state change.
type SessionEvent struct {
	Type      EventType     `json:"type"`
	Ts        int64         `json:"ts"` // Unix milliseconds
	SessionID int64         `json:"session_id"`
	AccountID int64         `json:"account_id"`
	MissionID *int64        `json:"mission_id,omitempty"`
	Status    SessionStatus `json:"status"`
	PauseID   int64         `json:"pause_id,omitempty"`
}
