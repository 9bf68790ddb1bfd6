package session

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillustad/proctor/core"
	"github.com/skillustad/proctor/core/interview"
	"github.com/skillustad/proctor/core/report"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrAccessDenied = errors.New("invalid access code")
)

type (
	// PlaybackAcker acknowledges client-side playback of a spoken prompt.
	PlaybackAcker interface {
		PlaybackFinished(code string)
	}

	// FrameSink accepts camera frames pushed by the client.
	FrameSink interface {
		Push(frame string)
		Deny()
	}

	// Runtime bundles the per-session client bridges.
	Runtime struct {
		Caps     interview.Capabilities
		Playback PlaybackAcker
		Frames   FrameSink
	}

	// RuntimeFactory builds the client bridges for a new session.
	RuntimeFactory func(cfg interview.Config) (Runtime, error)

	// Session pairs a running controller with its client bridges.
	Session struct {
		Controller *interview.Controller
		Playback   PlaybackAcker
		Frames     FrameSink

		accessHash []byte
	}

	// Service is the session registry: it creates sessions, guards them
	// with access codes, and turns finished sessions into stored, emailed
	// reports.
	Service struct {
		mu       sync.Mutex
		conf     *core.Config
		clock    core.Clock
		logger   core.Logger
		mailSvc  core.EmailService
		repo     report.Repository
		runtime  RuntimeFactory
		rnd      *rand.Rand
		sessions map[uuid.UUID]*Session
	}
)

func NewService(conf *core.Config, clock core.Clock, logger core.Logger, mailSvc core.EmailService,
	repo report.Repository, runtime RuntimeFactory, rnd *rand.Rand) *Service {

	return &Service{
		conf:     conf,
		clock:    clock,
		logger:   logger,
		mailSvc:  mailSvc,
		repo:     repo,
		runtime:  runtime,
		rnd:      rnd,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create registers a new session and returns it with its one-time access
// code. The code is only stored hashed; this is the caller's single
// chance to see it.
func (s *Service) Create(cfg interview.Config) (*Session, string, error) {
	rt, err := s.runtime(cfg)
	if err != nil {
		return nil, "", errors.Wrap(err, "preparing session runtime")
	}

	id := uuid.New()
	code := accessCode()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", errors.Wrap(err, "hashing access code")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{
		Controller: interview.NewController(
			id, cfg, s.conf.Proctor, s.clock, s.logger, rt.Caps,
			rand.New(rand.NewSource(s.rnd.Int63())),
		),
		Playback:   rt.Playback,
		Frames:     rt.Frames,
		accessHash: hash,
	}
	s.sessions[id] = sess
	s.logger.Info("session created", "session", id.String(), "technology", cfg.Technology)
	return sess, code, nil
}

// Get returns a live session.
func (s *Service) Get(id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// VerifyAccess checks a session's access code.
func (s *Service) VerifyAccess(id uuid.UUID, code string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(sess.accessHash, []byte(code)) != nil {
		return ErrAccessDenied
	}
	return nil
}

// Complete ends a session, compiles its report, persists it and emails it
// to the candidate. A session whose report could not be persisted stays
// registered so completion can be retried.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	res := sess.Controller.Complete()
	rpt := report.Compile(res, s.clock.Now())

	if err := s.repo.Save(ctx, rpt); err != nil {
		s.logger.Error("persisting report failed, session kept for retry", "session", id.String(), "error", err)
		return nil, errors.Wrap(err, "saving report")
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.emailReport(rpt)
	s.logger.Info("session completed", "session", id.String(), "overall", rpt.Performance.OverallScore)
	return rpt, nil
}

// GetReport fetches a persisted report.
func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	return s.repo.Get(ctx, id)
}

// FilterReports lists persisted reports.
func (s *Service) FilterReports(ctx context.Context, f report.Filter) ([]*report.Report, error) {
	return s.repo.Filter(ctx, f)
}

// emailReport mails the export to the candidate, if an address was given.
func (s *Service) emailReport(rpt *report.Report) {
	to := strings.TrimSpace(rpt.Config.CandidateEmail)
	if to == "" {
		return
	}

	data, err := rpt.Export()
	if err != nil {
		s.logger.Error("exporting report for email failed", "session", rpt.ID.String(), "error", err)
		return
	}

	msg := core.NewEmailMessage(
		to, rpt.Config.CandidateName,
		"Your interview report",
		"Thank you for completing your "+rpt.Config.Technology+" interview. Your full report is attached.",
	)
	if err := msg.Attach(bytes.NewReader(data), rpt.Filename(), "application/json"); err != nil {
		s.logger.Error("attaching report failed", "session", rpt.ID.String(), "error", err)
		return
	}
	s.mailSvc.SendMessages(msg)
}

// accessCode returns a short random code for sharing with the candidate.
func accessCode() string {
	return strings.SplitN(uuid.New().String(), "-", 2)[0]
}
