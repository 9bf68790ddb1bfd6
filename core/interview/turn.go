package interview

import "time"

type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// ChatTurn is one entry of the session transcript. User turns carry the
// average speech confidence of the fragments that formed them.
type ChatTurn struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence,omitempty"`
}
