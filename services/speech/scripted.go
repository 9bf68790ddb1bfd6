package speechsvc

import (
	"strings"
	"sync"
	"time"

	"github.com/skillustad/proctor/core"
	"github.com/skillustad/proctor/core/interview"
)

// wordDuration approximates playback pace for scripted sessions.
const wordDuration = 400 * time.Millisecond

// Scripted is a synthesizer for demo and smoke-test runs without a
// client: playback "finishes" on its own after a delay proportional to
// the text length.
type Scripted struct {
	mu    sync.Mutex
	clock core.Clock
	timer core.Timer
}

var _ interview.Synthesizer = (*Scripted)(nil)

func NewScripted(clock core.Clock) *Scripted {
	return &Scripted{clock: clock}
}

func (s *Scripted) Speak(text string, done func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delay := time.Duration(len(strings.Fields(text))) * wordDuration
	s.timer = s.clock.AfterFunc(delay, func() { done(nil) })
}

func (s *Scripted) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
