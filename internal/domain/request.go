package domain

import "time"

// StartWorkSessionRequest represents the request to clock an account in.
type StartWorkSessionRequest struct {
	AccountID *int64 `json:"account_id"`
	MissionID *int64 `json:"mission_id,omitempty"`
}

// ManualPause is one pause entry of a manually recorded session. Entries
// missing either bound are ignored.
type ManualPause struct {
	PauseTime  *time.Time `json:"pause_time"`
	ResumeTime *time.Time `json:"resume_time"`
}

// ManualWorkSessionRequest represents the request to record an already
// finished session.
type ManualWorkSessionRequest struct {
	AccountID *int64        `json:"account_id"`
	MissionID *int64        `json:"mission_id,omitempty"`
	StartTime *time.Time    `json:"start_time"`
	EndTime   *time.Time    `json:"end_time"`
	Pauses    []ManualPause `json:"pauses,omitempty"`
}

// WorkSessionRange filters an account's sessions by start time. Zero
// values mean "no bound"; Limit <= 0 means "no cap".
type WorkSessionRange struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// PauseResponse is returned by pause and resume.
type PauseResponse struct {
	WorkSession WorkSession      `json:"work_session"`
	Pause       WorkSessionPause `json:"pause"`
}

// SessionWithPauses is returned by stop and manual creation.
type SessionWithPauses struct {
	WorkSession WorkSession        `json:"work_session"`
	Pauses      []WorkSessionPause `json:"pauses"`
}

// PolicyDecision is the outcome of a session policy evaluation.
type PolicyDecision struct {
	Decision string `json:"decision"` // allow, block
	Reason   string `json:"reason,omitempty"`
}

// Allowed reports whether the decision lets the operation proceed.
func (d PolicyDecision) Allowed() bool {
	return d.Decision != "block"
}
