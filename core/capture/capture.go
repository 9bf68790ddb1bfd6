package capture

import (
	"context"
	"time"
)

// Timing marks where in the session a photo was taken.
type Timing string

const (
	TimingStart  Timing = "start"
	TimingMiddle Timing = "middle"
	TimingEnd    Timing = "end"
)

// Record is one captured proctoring photo.
type Record struct {
	ImageRef      string    `json:"image_ref"`
	Timestamp     time.Time `json:"timestamp"`
	Timing        Timing    `json:"timing"`
	SequenceIndex int       `json:"sequence_index"`
}

// Camera is a snapshot source. Acquire may fail (device denied or absent);
// the session continues without captures in that case.
type Camera interface {
	Acquire(ctx context.Context) error
	// Snapshot returns an opaque reference to the captured frame,
	// typically a base64 data URL.
	Snapshot() (string, error)
	Release()
}
