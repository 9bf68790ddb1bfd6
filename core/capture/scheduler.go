package capture

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/skillustad/proctor/core"
)

// Scheduler drives the proctoring photos of one session: a start photo
// shortly after the camera warms up, random middle photos until the cap,
// and a final photo at completion.
//
// A session that cannot acquire a camera runs with an empty capture roll;
// this is logged but never fails the session.
type Scheduler struct {
	mu     sync.Mutex
	clock  core.Clock
	conf   core.ProctorConfig
	camera Camera
	logger core.Logger
	rnd    *rand.Rand

	initialized bool
	done        bool
	records     []Record

	warmupTimer core.Timer
	loopTimer   core.Timer
	nextAt      time.Time
}

func NewScheduler(clock core.Clock, conf core.ProctorConfig, camera Camera, logger core.Logger, rnd *rand.Rand) *Scheduler {
	return &Scheduler{
		clock:  clock,
		conf:   conf,
		camera: camera,
		logger: logger,
		rnd:    rnd,
	}
}

// Start acquires the camera and arms the capture timers. Camera denial is
// logged and swallowed; the random loop is still armed so that it can shut
// itself down cleanly, but no photos will be taken.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}

	if err := s.camera.Acquire(ctx); err != nil {
		s.logger.Warn("capture: camera unavailable, continuing without photos", "error", err)
	} else {
		s.initialized = true
	}

	s.warmupTimer = s.clock.AfterFunc(s.conf.CaptureWarmup, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.takePhoto(TimingStart)
	})
	s.scheduleNext(s.conf.CaptureInitialDelay)
}

// Complete takes the final photo, releases the camera and stops all
// timers. It is idempotent; only the first call captures.
func (s *Scheduler) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true

	if s.warmupTimer != nil {
		s.warmupTimer.Stop()
		s.warmupTimer = nil
	}
	if s.loopTimer != nil {
		s.loopTimer.Stop()
		s.loopTimer = nil
	}
	s.nextAt = time.Time{}

	// the end photo ignores the cap so a fully sampled session still gets
	// its closing frame
	s.takePhoto(TimingEnd)
	if s.initialized {
		s.camera.Release()
		s.initialized = false
	}
}

// Records returns a copy of the capture roll in capture order.
func (s *Scheduler) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]Record, len(s.records))
	copy(records, s.records)
	return records
}

// Count returns the number of photos captured so far.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// NextCaptureAt returns the deadline of the next scheduled random capture,
// or false when the loop has stopped.
func (s *Scheduler) NextCaptureAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextAt, !s.nextAt.IsZero()
}

// scheduleNext arms the loop timer. s.mu must be held.
func (s *Scheduler) scheduleNext(delay time.Duration) {
	s.nextAt = s.clock.Now().Add(delay)
	s.loopTimer = s.clock.AfterFunc(delay, s.loopTick)
}

// loopTick fires one random-loop iteration. Reaching the cap, or session
// completion, stops the loop for good.
func (s *Scheduler) loopTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || len(s.records) >= s.conf.CaptureCap {
		s.nextAt = time.Time{}
		s.loopTimer = nil
		return
	}
	s.takePhoto(TimingMiddle)

	spread := s.conf.CaptureMaxDelay - s.conf.CaptureMinDelay
	delay := s.conf.CaptureMinDelay
	if spread > 0 {
		delay += time.Duration(s.rnd.Int63n(int64(spread)))
	}
	s.scheduleNext(delay)
}

// takePhoto snapshots the camera and appends to the roll. A session
// without a camera, or a failed snapshot, leaves the roll untouched.
// s.mu must be held.
func (s *Scheduler) takePhoto(timing Timing) {
	if !s.initialized {
		return
	}
	ref, err := s.camera.Snapshot()
	if err != nil {
		s.logger.Warn("capture: snapshot failed", "timing", string(timing), "error", err)
		return
	}
	s.records = append(s.records, Record{
		ImageRef:      ref,
		Timestamp:     s.clock.Now(),
		Timing:        timing,
		SequenceIndex: len(s.records) + 1,
	})
}
