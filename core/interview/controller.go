package interview

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/skillustad/proctor/core"
	"github.com/skillustad/proctor/core/capture"
	"github.com/skillustad/proctor/core/security"
)

// minUtteranceLength is the shortest utterance worth processing.
const minUtteranceLength = 3

var (
	ErrAlreadyStarted = errors.New("interview already started")
	ErrNotStarted     = errors.New("interview not started")
	ErrCompleted      = errors.New("interview already completed")
	ErrNotRetryable   = errors.New("interview is not in the error phase")
)

// Capabilities are the client-facing devices and the question source a
// session runs against.
type Capabilities struct {
	Recognizer  Recognizer
	Synthesizer Synthesizer
	Questions   QuestionSource
	Camera      capture.Camera
}

// Controller runs one interview session end to end: the phase machine,
// the speech turn loop, the security ledger and the capture roll. All
// methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	id     uuid.UUID
	cfg    Config
	conf   core.ProctorConfig
	clock  core.Clock
	logger core.Logger

	recognizer  Recognizer
	synthesizer Synthesizer
	questions   QuestionSource
	aggregator  *Aggregator
	monitor     *security.Monitor
	captures    *capture.Scheduler

	phase           Phase
	chat            []ChatTurn
	questionCount   int
	startedAt       time.Time
	completedAt     time.Time
	connectionError bool

	settleTimer  core.Timer
	restartTimer core.Timer
}

func NewController(id uuid.UUID, cfg Config, conf core.ProctorConfig, clock core.Clock,
	logger core.Logger, caps Capabilities, rnd *rand.Rand) *Controller {

	c := &Controller{
		id:          id,
		cfg:         cfg,
		conf:        conf,
		clock:       clock,
		logger:      logger,
		recognizer:  caps.Recognizer,
		synthesizer: caps.Synthesizer,
		questions:   caps.Questions,
		phase:       PhaseIdle,
	}
	c.aggregator = NewAggregator(clock, conf, c.submitUtterance)
	c.monitor = security.NewMonitor(clock, conf)
	c.captures = capture.NewScheduler(clock, conf, caps.Camera, logger, rnd)
	return c
}

func (c *Controller) ID() uuid.UUID { return c.id }

func (c *Controller) Config() Config { return c.cfg }

// Monitor exposes the security ledger for signal forwarding.
func (c *Controller) Monitor() *security.Monitor { return c.monitor }

// Captures exposes the capture roll.
func (c *Controller) Captures() *capture.Scheduler { return c.captures }

/// Start activates the session: security monitoring and captures begin,
// and the opening question is spoken.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseCompleted {
		c.mu.Unlock()
		return ErrCompleted
	}
	if !c.startedAt.IsZero() {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.startedAt = c.clock.Now()
	c.monitor.Activate()
	c.captures.Start(ctx)

	opening := c.questions.Opening(c.cfg)
	c.chat = append(c.chat, ChatTurn{Role: RoleAssistant, Content: opening, Timestamp: c.clock.Now()})
	c.questionCount = 1
	c.phase = PhaseSpeaking
	c.mu.Unlock()

	c.speak(opening, false)
	return nil
}

// Fragment feeds recognized speech into the current turn. Fragments sent
// while not listening are dropped.
func (c *Controller) Fragment(f Fragment) error {
	c.mu.Lock()
	if c.phase == PhaseCompleted {
		c.mu.Unlock()
		return ErrCompleted
	}
	c.mu.Unlock()
	c.aggregator.Fragment(f)
	return nil
}

// StartListening arms the microphone and the utterance buffer.
func (c *Controller) StartListening() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startListening()
}

// StopListening disarms the microphone, dropping buffered speech.
// It is idempotent.
func (c *Controller) StopListening() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopListening()
}

// RecognitionError handles a recognition error code reported by the
// client. Benign codes restart the stream after a short delay; anything
// else parks the session in the error phase with the ledgers intact.
func (c *Controller) RecognitionError(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseCompleted {
		return
	}
	if BenignRecognitionError(code) {
		c.logger.Debug("recognition ended quietly, restarting", "session", c.id.String(), "code", code)
		c.scheduleRestart()
		return
	}
	c.logger.Warn("recognition error", "session", c.id.String(), "code", code)
	c.connectionError = true
	if c.phase.CanTransition(PhaseError) {
		c.phase = PhaseError
	}
}

// RecognitionEnded handles the stream closing on its own; while
// listening, it is restarted after a short delay.
func (c *Controller) RecognitionEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseListening {
		return
	}
	c.scheduleRestart()
}

// Retry leaves the error phase and resumes listening. The transcript,
// security ledger and capture roll are untouched.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseError {
		return ErrNotRetryable
	}
	c.connectionError = false
	c.phase = PhaseIdle
	return c.startListening()
}

// Complete ends the session and tears everything down: timers, speech,
// monitoring and camera. It is idempotent and always returns the final
// result.
func (c *Controller) Complete() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseCompleted {
		c.phase = PhaseCompleted
		c.completedAt = c.clock.Now()
		if c.settleTimer != nil {
			c.settleTimer.Stop()
			c.settleTimer = nil
		}
		if c.restartTimer != nil {
			c.restartTimer.Stop()
			c.restartTimer = nil
		}
		c.synthesizer.Cancel()
		c.recognizer.Stop()
		c.aggregator.Disarm()
		c.monitor.Deactivate()
		c.captures.Complete()
	}
	return c.result()
}

// Snapshot returns the live view of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	chat := make([]ChatTurn, len(c.chat))
	copy(chat, c.chat)
	return Snapshot{
		ID:              c.id,
		Phase:           c.phase,
		QuestionCount:   c.questionCount,
		Chat:            chat,
		SecurityScore:   c.monitor.Score(),
		WarningActive:   c.monitor.WarningActive(),
		ConnectionError: c.connectionError,
		Buffer:          c.aggregator.Buffer(),
		CountdownTicks:  c.aggregator.CountdownTicks(),
		CaptureCount:    c.captures.Count(),
		StartedAt:       c.startedAt,
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// startListening arms the recognizer. c.mu must be held.
func (c *Controller) startListening() error {
	if c.phase == PhaseCompleted {
		return ErrCompleted
	}
	if c.startedAt.IsZero() {
		return ErrNotStarted
	}
	if c.phase == PhaseListening {
		return nil
	}
	if !c.phase.CanTransition(PhaseListening) {
		return errors.Errorf("cannot listen in the %s phase", c.phase)
	}
	if err := c.recognizer.Start(); err != nil {
		c.connectionError = true
		if c.phase.CanTransition(PhaseError) {
			c.phase = PhaseError
		}
		return errors.Wrap(err, "starting recognition")
	}
	c.aggregator.Arm()
	c.phase = PhaseListening
	c.connectionError = false
	return nil
}

// stopListening disarms the recognizer. c.mu must be held.
func (c *Controller) stopListening() {
	c.recognizer.Stop()
	c.aggregator.Disarm()
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	if c.phase == PhaseListening {
		c.phase = PhaseIdle
	}
}

// scheduleRestart re-arms recognition after the restart delay, provided
// the session is still listening when it fires. c.mu must be held.
func (c *Controller) scheduleRestart() {
	if c.restartTimer != nil {
		c.restartTimer.Stop()
	}
	c.restartTimer = c.clock.AfterFunc(c.conf.RestartDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.phase != PhaseListening {
			return
		}
		if err := c.recognizer.Start(); err != nil {
			c.logger.Warn("recognition restart failed", "session", c.id.String(), "error", err)
			c.connectionError = true
			c.phase = PhaseError
		}
	})
}

// submitUtterance is the aggregator sink: it turns a finalized utterance
// into a user turn and fetches the interviewer's reply.
func (c *Controller) submitUtterance(text string, confidence float64) {
	c.mu.Lock()
	if c.phase != PhaseListening || len(strings.TrimSpace(text)) < minUtteranceLength {
		c.mu.Unlock()
		return
	}
	c.recognizer.Stop()
	c.aggregator.Disarm()
	c.chat = append(c.chat, ChatTurn{
		Role:       RoleUser,
		Content:    strings.TrimSpace(text),
		Timestamp:  c.clock.Now(),
		Confidence: confidence,
	})
	c.phase = PhaseProcessing
	history := make([]ChatTurn, len(c.chat))
	copy(history, c.chat)
	c.mu.Unlock()

	c.advance(history)
}

// advance fetches the next prompt for the transcript so far and speaks
// it. Hitting the question quota swaps in the closing statement, which
// completes the session once spoken.
func (c *Controller) advance(history []ChatTurn) {
	reply, err := c.questions.Next(history)

	c.mu.Lock()
	if c.phase == PhaseCompleted {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.logger.Error("fetching next question failed", "session", c.id.String(), "error", err)
		c.connectionError = true
		if c.phase.CanTransition(PhaseError) {
			c.phase = PhaseError
		}
		c.mu.Unlock()
		return
	}

	closing := false
	if c.questionCount >= c.cfg.QuestionCount {
		reply = c.questions.Closing()
		closing = true
	} else {
		c.questionCount++
	}
	c.chat = append(c.chat, ChatTurn{Role: RoleAssistant, Content: reply, Timestamp: c.clock.Now()})
	c.phase = PhaseSpeaking
	c.mu.Unlock()

	c.speak(reply, closing)
}

// speak hands text to the synthesizer. Callers must not hold c.mu: the
// done callback re-enters the controller.
func (c *Controller) speak(text string, closing bool) {
	c.synthesizer.Speak(text, func(err error) {
		c.speechDone(err, closing)
	})
}

// speechDone resumes the turn loop after playback: a settle delay and
// then the microphone, or full completion after the closing statement.
func (c *Controller) speechDone(err error, closing bool) {
	c.mu.Lock()
	if c.phase == PhaseCompleted {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.logger.Error("speech playback failed", "session", c.id.String(), "error", err)
		c.connectionError = true
		if c.phase.CanTransition(PhaseError) {
			c.phase = PhaseError
		}
		c.mu.Unlock()
		return
	}
	if closing {
		c.mu.Unlock()
		c.Complete()
		return
	}
	c.phase = PhaseIdle
	c.settleTimer = c.clock.AfterFunc(c.conf.SettleDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.startListening(); err != nil && errors.Cause(err) != ErrCompleted {
			c.logger.Warn("re-arming microphone failed", "session", c.id.String(), "error", err)
		}
	})
	c.mu.Unlock()
}

// result builds the final session data. c.mu must be held.
func (c *Controller) result() *Result {
	chat := make([]ChatTurn, len(c.chat))
	copy(chat, c.chat)
	var duration time.Duration
	if !c.startedAt.IsZero() && !c.completedAt.IsZero() {
		duration = c.completedAt.Sub(c.startedAt)
	}
	return &Result{
		ID:             c.id,
		Config:         c.cfg,
		Chat:           chat,
		SecurityEvents: c.monitor.Events(),
		SecurityScore:  c.monitor.Score(),
		QuestionCount:  c.questionCount,
		StartedAt:      c.startedAt,
		CompletedAt:    c.completedAt,
		Duration:       duration,
		Captures:       c.captures.Records(),
	}
}

// Result is the immutable outcome of a completed session.
type Result struct {
	ID             uuid.UUID        `json:"id"`
	Config         Config           `json:"config"`
	Chat           []ChatTurn       `json:"chat"`
	SecurityEvents []security.Event `json:"security_events"`
	SecurityScore  int              `json:"security_score"`
	QuestionCount  int              `json:"question_count"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    time.Time        `json:"completed_at"`
	Duration       time.Duration    `json:"duration"`
	Captures       []capture.Record `json:"captures"`
}

// Snapshot is the live view of a running session.
type Snapshot struct {
	ID              uuid.UUID  `json:"id"`
	Phase           Phase      `json:"phase"`
	QuestionCount   int        `json:"question_count"`
	Chat            []ChatTurn `json:"chat"`
	SecurityScore   int        `json:"security_score"`
	WarningActive   bool       `json:"warning_active"`
	ConnectionError bool       `json:"connection_error"`
	Buffer          string     `json:"buffer,omitempty"`
	CountdownTicks  int        `json:"countdown_ticks,omitempty"`
	CaptureCount    int        `json:"capture_count"`
	StartedAt       time.Time  `json:"started_at,omitempty"`
}
