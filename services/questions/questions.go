package questionsvc

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/skillustad/proctor/core/interview"
)

// ErrNoSet means no question bank covers the requested technology.
var ErrNoSet = errors.New("no question set for the requested technology")

// Set is one question bank: the questions asked for a technology at an
// experience level.
type Set struct {
	Technology string   `yaml:"technology"`
	Level      string   `yaml:"level"`
	Questions  []string `yaml:"questions"`
}

func (set Set) validate() error {
	if strings.TrimSpace(set.Technology) == "" {
		return errors.New("technology is required")
	}
	if len(set.Questions) == 0 {
		return errors.New("at least one question is required")
	}
	for i, q := range set.Questions {
		if strings.TrimSpace(q) == "" {
			return errors.Errorf("question %d is blank", i+1)
		}
	}
	return nil
}

// Service holds the loaded question banks.
type Service struct {
	sets []Set
}

// Load reads every .yml/.yaml question set in dir.
func Load(dir string) (*Service, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading question bank directory")
	}

	var sets []Set
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		data, err := ioutil.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", entry.Name())
		}
		var set Set
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", entry.Name())
		}
		if err := set.validate(); err != nil {
			return nil, errors.Wrapf(err, "invalid question set %s", entry.Name())
		}
		sets = append(sets, set)
	}

	if len(sets) == 0 {
		return nil, errors.Errorf("no question sets found in %s", dir)
	}
	return &Service{sets: sets}, nil
}

// ForConfig picks the question bank for a session: an exact
// technology+level match first, then any set for the technology.
func (s *Service) ForConfig(cfg interview.Config) (interview.QuestionSource, error) {
	var fallback *Set
	for i := range s.sets {
		set := &s.sets[i]
		if !strings.EqualFold(set.Technology, cfg.Technology) {
			continue
		}
		if strings.EqualFold(set.Level, cfg.ExperienceLevel) {
			return &source{set: *set}, nil
		}
		if fallback == nil {
			fallback = set
		}
	}
	if fallback != nil {
		return &source{set: *fallback}, nil
	}
	return nil, errors.Wrapf(ErrNoSet, "technology %q", cfg.Technology)
}

// source walks one question bank in order, wrapping around if the session
// asks for more questions than the bank holds.
type source struct {
	mu  sync.Mutex
	set Set
	idx int
}

var _ interview.QuestionSource = (*source)(nil)

func (s *source) Opening(cfg interview.Config) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf(
		"Welcome to your %s interview. I'll be asking you questions based on your %s experience level. Let's begin with the first question. %s",
		cfg.Technology, cfg.ExperienceLevel, s.next(),
	)
}

func (s *source) Next(history []interview.ChatTurn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "Thank you for your response. " + s.next(), nil
}

func (s *source) Closing() string {
	return "That concludes the interview. Thank you for your time; your report is being prepared."
}

// next returns the next question. s.mu must be held.
func (s *source) next() string {
	q := s.set.Questions[s.idx%len(s.set.Questions)]
	s.idx++
	return q
}
