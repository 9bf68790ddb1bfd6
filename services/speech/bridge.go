package speechsvc

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/skillustad/proctor/core"
	"github.com/skillustad/proctor/core/interview"
)

// Bridge relays speech duties to the browser client. Recognition runs in
// the browser; Start and Stop only gate whether the engine expects
// fragments. Playback likewise happens client side: Speak parks the done
// callback until the client acknowledges the utterance finished.
type Bridge struct {
	mu      sync.Mutex
	logger  core.Logger
	armed   bool
	pending func(err error)
}

var (
	_ interview.Recognizer  = (*Bridge)(nil)
	_ interview.Synthesizer = (*Bridge)(nil)
)

func NewBridge(logger core.Logger) *Bridge {
	return &Bridge{logger: logger}
}

func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = true
	return nil
}

func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = false
}

// Armed reports whether the engine currently expects fragments.
func (b *Bridge) Armed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed
}

func (b *Bridge) Speak(text string, done func(err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		b.logger.Warn("speech: replacing unacknowledged playback")
	}
	b.pending = done
}

func (b *Bridge) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}

// PlaybackFinished is called when the client acknowledges playback. An
// empty code means success; anything else is treated as a playback error.
func (b *Bridge) PlaybackFinished(code string) {
	b.mu.Lock()
	done := b.pending
	b.pending = nil
	b.mu.Unlock()

	if done == nil {
		return
	}
	if code == "" {
		done(nil)
		return
	}
	done(errors.Errorf("client playback failed: %s", code))
}
