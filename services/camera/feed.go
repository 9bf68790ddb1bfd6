package camerasvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/skillustad/proctor/core/capture"
)

var (
	ErrDenied  = errors.New("camera access denied by client")
	ErrNoFrame = errors.New("no camera frame available")
)

// Feed is a camera fed by the browser client: the client streams frames
// up and Snapshot serves the most recent one. A client that never grants
// camera access marks the feed denied, which fails Acquire and leaves the
// session running without captures.
type Feed struct {
	mu     sync.Mutex
	denied bool
	open   bool
	latest string
}

var _ capture.Camera = (*Feed)(nil)

func NewFeed() *Feed { return &Feed{} }

// Push stores a frame from the client, an opaque data URL.
func (f *Feed) Push(frame string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if frame == "" {
		return
	}
	f.latest = frame
}

// Deny marks camera access as refused by the client.
func (f *Feed) Deny() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denied = true
}

func (f *Feed) Acquire(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return ErrDenied
	}
	f.open = true
	return nil
}

func (f *Feed) Snapshot() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open || f.latest == "" {
		return "", ErrNoFrame
	}
	return f.latest, nil
}

func (f *Feed) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.latest = ""
}
