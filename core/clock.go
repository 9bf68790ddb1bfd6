package core

import "time"

type (
	// Timer is a cancellable pending callback.
	Timer interface {
		// Stop reports whether it cancelled the callback before it ran.
		Stop() bool
	}

	// Clock abstracts wall-clock time and timer scheduling so the session
	// timing policies (pause detection, blur debounce, capture scheduling)
	// can be driven deterministically in tests.
	Clock interface {
		Now() time.Time
		AfterFunc(d time.Duration, f func()) Timer
	}
)

type realClock struct{}

// NewClock returns the wall Clock.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
