package security

import (
	"fmt"
	"sync"
	"time"

	"github.com/skillustad/proctor/core"
)

// warningThreshold is the single-event deduction above which a transient
// on-screen warning is raised.
const warningThreshold = 10

// Monitor keeps the security ledger of one session: it classifies the raw
// browser signals the client streams in (visibility, focus, fullscreen,
// keyboard, context menu), debounces the blur signals, and maintains the
// running score.
//
// All methods are safe for concurrent use. Signals received while the
// monitor is not active are ignored.
type Monitor struct {
	mu    sync.Mutex
	clock core.Clock
	conf  core.ProctorConfig

	active bool

	events []Event
	score  int
	counts map[EventType]int

	warning      bool
	warningTimer core.Timer

	// tab visibility debounce
	hiddenAt      time.Time
	hiddenTimer   core.Timer
	hiddenElapsed bool

	// window focus debounce
	blurredAt   time.Time
	blurTimer   core.Timer
	blurElapsed bool
}

func NewMonitor(clock core.Clock, conf core.ProctorConfig) *Monitor {
	return &Monitor{
		clock:  clock,
		conf:   conf,
		score:  maxScore,
		counts: make(map[EventType]int),
	}
}

// Activate starts accepting signals.
func (m *Monitor) Activate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
}

// Deactivate stops accepting signals. A tab or window blur still open past
// its threshold is flushed to the ledger with its duration so far; one
// still inside its threshold is discarded.
func (m *Monitor) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.flushHidden()
	m.flushBlurred()
	if m.warningTimer != nil {
		m.warningTimer.Stop()
		m.warningTimer = nil
	}
	m.warning = false
	m.active = false
}

// VisibilityChanged handles a tab visibility signal. Going hidden arms the
// threshold timer; only an absence that outlives it produces a tab_blur
// event, recorded with the full hidden duration once the tab is visible
// again.
func (m *Monitor) VisibilityChanged(hidden bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	if hidden {
		m.hiddenAt = m.clock.Now()
		m.hiddenElapsed = false
		if m.hiddenTimer != nil {
			m.hiddenTimer.Stop()
		}
		m.hiddenTimer = m.clock.AfterFunc(m.conf.TabBlurThreshold, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.hiddenElapsed = true
		})
		return
	}
	m.flushHidden()
}

// WindowFocusChanged handles a window focus signal, with the same debounce
// shape as VisibilityChanged but against the window blur threshold.
func (m *Monitor) WindowFocusChanged(focused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	if !focused {
		m.blurredAt = m.clock.Now()
		m.blurElapsed = false
		if m.blurTimer != nil {
			m.blurTimer.Stop()
		}
		m.blurTimer = m.clock.AfterFunc(m.conf.WindowBlurThreshold, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.blurElapsed = true
		})
		return
	}
	m.flushBlurred()
}

// FullscreenChanged records a fullscreen_exit event when the client leaves
// fullscreen mode.
func (m *Monitor) FullscreenChanged(fullscreen bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || fullscreen {
		return
	}
	m.record(Event{
		Type:      EventFullscreenExit,
		Timestamp: m.clock.Now(),
		Details:   "User exited fullscreen mode",
	})
}

// KeyPressed checks a keyboard signal against the prohibited table and
// reports whether the client should suppress the key's default action.
func (m *Monitor) KeyPressed(k KeyPress) (suppressed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || !IsProhibited(k) {
		return false
	}
	m.record(Event{
		Type:      EventProhibitedKey,
		Timestamp: m.clock.Now(),
		Details:   fmt.Sprintf("Prohibited key combination: %s", k),
	})
	return true
}

// ContextMenu records a right_click event.
func (m *Monitor) ContextMenu() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.record(Event{
		Type:      EventRightClick,
		Timestamp: m.clock.Now(),
		Details:   "Right-click attempted",
	})
}

// FocusLost records a focus_loss event reported directly by the client.
func (m *Monitor) FocusLost(details string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.record(Event{Type: EventFocusLoss, Timestamp: m.clock.Now(), Details: details})
}

// Events returns a copy of the ledger in arrival order.
func (m *Monitor) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]Event, len(m.events))
	copy(events, m.events)
	return events
}

// Score returns the current running score.
func (m *Monitor) Score() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score
}

// WarningActive reports whether the transient warning is currently shown.
func (m *Monitor) WarningActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warning
}

// Counts returns a copy of the per-type event counts.
func (m *Monitor) Counts() map[EventType]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[EventType]int, len(m.counts))
	for t, n := range m.counts {
		counts[t] = n
	}
	return counts
}

// record appends an event and applies its deduction. m.mu must be held.
func (m *Monitor) record(e Event) {
	m.events = append(m.events, e)
	m.counts[e.Type]++

	deduction := Deduction(e)
	if m.score -= deduction; m.score < 0 {
		m.score = 0
	}

	if deduction > warningThreshold {
		m.warning = true
		if m.warningTimer != nil {
			m.warningTimer.Stop()
		}
		m.warningTimer = m.clock.AfterFunc(m.conf.WarningTimeout, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.warning = false
		})
	}
}

// flushHidden closes an open tab blur. m.mu must be held.
func (m *Monitor) flushHidden() {
	if m.hiddenTimer != nil {
		m.hiddenTimer.Stop()
		m.hiddenTimer = nil
	}
	if !m.hiddenElapsed {
		return
	}
	m.hiddenElapsed = false
	duration := m.clock.Now().Sub(m.hiddenAt)
	m.record(Event{
		Type:       EventTabBlur,
		Timestamp:  m.clock.Now(),
		DurationMS: duration.Milliseconds(),
		Details:    fmt.Sprintf("Tab inactive for %d seconds", int(duration.Round(time.Second).Seconds())),
	})
}

// flushBlurred closes an open window blur. m.mu must be held.
func (m *Monitor) flushBlurred() {
	if m.blurTimer != nil {
		m.blurTimer.Stop()
		m.blurTimer = nil
	}
	if !m.blurElapsed {
		return
	}
	m.blurElapsed = false
	duration := m.clock.Now().Sub(m.blurredAt)
	m.record(Event{
		Type:       EventWindowBlur,
		Timestamp:  m.clock.Now(),
		DurationMS: duration.Milliseconds(),
		Details:    fmt.Sprintf("Window lost focus for %d seconds", int(duration.Round(time.Second).Seconds())),
	})
}
