package interview

// Phase is the session lifecycle state. It drives which speech and
// submission operations are currently legal.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseListening  Phase = "listening"
	PhaseProcessing Phase = "processing"
	PhaseSpeaking   Phase = "speaking"
	PhaseError      Phase = "error"
	PhaseCompleted  Phase = "completed"
)

// transitions is the legal phase graph. Completed is terminal; every
// non-terminal phase may jump there so teardown is always reachable.
var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseListening, PhaseSpeaking, PhaseCompleted},
	PhaseListening:  {PhaseProcessing, PhaseIdle, PhaseError, PhaseCompleted},
	PhaseProcessing: {PhaseSpeaking, PhaseError, PhaseCompleted},
	PhaseSpeaking:   {PhaseListening, PhaseIdle, PhaseError, PhaseCompleted},
	PhaseError:      {PhaseListening, PhaseCompleted},
	PhaseCompleted:  {},
}

// CanTransition reports whether moving from p to next is legal.
func (p Phase) CanTransition(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the phase allows no further transitions.
func (p Phase) Terminal() bool { return len(transitions[p]) == 0 }
