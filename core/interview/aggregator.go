package interview

import (
	"strings"
	"sync"

	"github.com/skillustad/proctor/core"
)

// minSubmitLength is the trimmed buffer length a pause countdown must
// exceed before it finalizes an utterance.
const minSubmitLength = 5

// Fragment is one piece of recognized speech streamed in by the client.
// Interim fragments only prove the candidate is still talking; final
// fragments carry text into the utterance buffer.
type Fragment struct {
	Text       string  `json:"text"`
	Final      bool    `json:"final"`
	Confidence float64 `json:"confidence"`
}

// Aggregator assembles speech fragments into whole utterances. Silence
// longer than the pause threshold starts a tick countdown; if the
// candidate stays quiet through all ticks and enough text has accumulated,
// the buffered utterance is handed to onSubmit. Any fragment, interim or
// final, cancels a running countdown.
//
// onSubmit is always invoked without the aggregator lock held, so it may
// call back into the aggregator.
type Aggregator struct {
	mu       sync.Mutex
	clock    core.Clock
	conf     core.ProctorConfig
	onSubmit func(text string, confidence float64)

	armed   bool
	buffer  string
	confSum float64
	confN   int

	pauseTimer core.Timer
	tickTimer  core.Timer
	ticks      int
	pauses     int
}

func NewAggregator(clock core.Clock, conf core.ProctorConfig, onSubmit func(text string, confidence float64)) *Aggregator {
	return &Aggregator{clock: clock, conf: conf, onSubmit: onSubmit}
}

// Arm clears the buffer and starts accepting fragments.
func (a *Aggregator) Arm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armed = true
	a.reset()
}

// Disarm stops accepting fragments and drops any buffered speech.
func (a *Aggregator) Disarm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armed = false
	a.reset()
}

// Fragment feeds one recognized fragment in. Fragments arriving while
// disarmed, and blank fragments, are dropped.
func (a *Aggregator) Fragment(f Fragment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.armed {
		return
	}
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return
	}

	a.cancelCountdown()
	if f.Final {
		a.buffer += text + " "
		a.confSum += f.Confidence
		a.confN++
	}

	if a.pauseTimer != nil {
		a.pauseTimer.Stop()
	}
	a.pauseTimer = a.clock.AfterFunc(a.conf.PauseThreshold, a.pauseElapsed)
}

// Buffer returns the raw utterance buffer, trimmed.
func (a *Aggregator) Buffer() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(a.buffer)
}

// CountdownTicks returns how far the current pause countdown has come,
// zero when no countdown runs.
func (a *Aggregator) CountdownTicks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ticks
}

// Pauses returns how many pause countdowns have started since Arm.
func (a *Aggregator) Pauses() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pauses
}

// pauseElapsed fires when the quiet period outlives the pause threshold
// and starts the tick countdown.
func (a *Aggregator) pauseElapsed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.armed {
		return
	}
	a.pauses++
	a.tickTimer = a.clock.AfterFunc(a.conf.PauseTickInterval, a.tick)
}

func (a *Aggregator) tick() {
	a.mu.Lock()
	if !a.armed {
		a.mu.Unlock()
		return
	}
	a.ticks++
	if a.ticks < a.conf.PauseCountdownTicks {
		a.tickTimer = a.clock.AfterFunc(a.conf.PauseTickInterval, a.tick)
		a.mu.Unlock()
		return
	}

	// countdown ran out; finalize if the candidate actually said enough,
	// otherwise keep the buffer and wait for more speech
	a.ticks = 0
	text := strings.TrimSpace(a.buffer)
	if len(text) <= minSubmitLength {
		a.mu.Unlock()
		return
	}

	var confidence float64
	if a.confN > 0 {
		confidence = a.confSum / float64(a.confN)
	}
	a.buffer = ""
	a.confSum, a.confN = 0, 0
	submit := a.onSubmit
	a.mu.Unlock()

	submit(text, confidence)
}

// reset clears buffer and timers. a.mu must be held.
func (a *Aggregator) reset() {
	a.buffer = ""
	a.confSum, a.confN = 0, 0
	a.pauses = 0
	if a.pauseTimer != nil {
		a.pauseTimer.Stop()
		a.pauseTimer = nil
	}
	a.cancelCountdown()
}

// cancelCountdown stops a running tick countdown. a.mu must be held.
func (a *Aggregator) cancelCountdown() {
	if a.tickTimer != nil {
		a.tickTimer.Stop()
		a.tickTimer = nil
	}
	a.ticks = 0
}
