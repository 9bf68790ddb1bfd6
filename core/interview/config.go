package interview

import "github.com/skillustad/proctor/core"

// Config describes one interview session as requested by the client.
type Config struct {
	Technology      string `json:"technology" validate:"required"`
	ExperienceLevel string `json:"experience_level" validate:"required,oneof=junior mid senior"`
	Language        string `json:"language" validate:"omitempty,oneof=english roman-urdu hindi"`
	QuestionCount   int    `json:"question_count" validate:"required,min=1,max=20"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=5,max=120"`
	CandidateName   string `json:"candidate_name" validate:"required,alphanum_"`
	CandidateEmail  string `json:"candidate_email" validate:"required,email"`
}

func (cfg *Config) Clean() {
	cfg.Technology = core.CleanString(cfg.Technology, true /* lower */)
	cfg.ExperienceLevel = core.CleanString(cfg.ExperienceLevel, true /* lower */)
	cfg.Language = core.CleanString(cfg.Language, true /* lower */)
	cfg.CandidateName = core.CleanString(cfg.CandidateName)
	cfg.CandidateEmail = core.CleanString(cfg.CandidateEmail, true /* lower */)
}
