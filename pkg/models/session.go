package models

// SessionPhase represents where an analysis session is in its lifecycle.
type SessionPhase string

const (
	PhaseIdle      SessionPhase = "idle"
	PhaseRunning   SessionPhase = "running"
	PhaseCompleted SessionPhase = "completed"
)

// SessionState is the transient view state of the analysis session.
// It is never persisted and starts out idle.
type SessionState struct {
	Phase           SessionPhase `json:"phase"`
	ProgressPercent int          `json:"progressPercent"`
	Loading         bool         `json:"loading"`
	ResultVisible   bool         `json:"resultVisible"`
	ReportText      string       `json:"reportText,omitempty"`
	Failed          bool         `json:"failed"`
	LastError       string       `json:"lastError,omitempty"`
}

// IdleState returns the initial session state.
func IdleState() SessionState {
	return SessionState{Phase: PhaseIdle}
}
