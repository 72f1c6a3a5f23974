package session

import "github.com/thebtf/soilsense/pkg/models"

// EventType identifies a controller event.
type EventType string

const (
	EventStarted           EventType = "analysis_started"
	EventProgress          EventType = "analysis_progress"
	EventCompleted         EventType = "analysis_completed"
	EventFailed            EventType = "analysis_failed"
	EventDismissed         EventType = "result_dismissed"
	EventReminderScheduled EventType = "reminder_scheduled"
)

// Event is delivered to subscribers after every state change.
type Event struct {
	Type     EventType              `json:"type"`
	State    models.SessionState    `json:"state"`
	Record   *models.AnalysisRecord `json:"record,omitempty"`
	Reminder *models.Reminder       `json:"reminder,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Listener receives controller events. Listeners must not block.
type Listener func(Event)
