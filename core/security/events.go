package security

import "time"

// EventType classifies a proctoring violation.
// Values are the wire/report names.
type EventType string

const (
	EventTabBlur        EventType = "tab_blur"
	EventWindowBlur     EventType = "window_blur"
	EventFullscreenExit EventType = "fullscreen_exit"
	EventProhibitedKey  EventType = "prohibited_key"
	EventRightClick     EventType = "right_click"
	EventFocusLoss      EventType = "focus_loss"
)

// Event is one classified violation. Events are immutable once appended to
// a session's ledger; the ledger's length is the total violation count.
type Event struct {
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Details    string    `json:"details,omitempty"`
}

// IsCritical reports whether the event type counts as a critical violation
// in reporting.
func (e Event) IsCritical() bool {
	return e.Type == EventFullscreenExit || e.Type == EventProhibitedKey
}
