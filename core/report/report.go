package report

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillustad/proctor/core/capture"
	"github.com/skillustad/proctor/core/interview"
	"github.com/skillustad/proctor/core/security"
)

// Quality is the per-response quality tier.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

type (
	// ResponseAnalysis grades one candidate answer.
	ResponseAnalysis struct {
		QuestionIndex   int      `json:"question_index"`
		Question        string   `json:"question"`
		Response        string   `json:"response"`
		WordCount       int      `json:"word_count"`
		Confidence      float64  `json:"confidence"`
		ResponseTimeSec float64  `json:"response_time_seconds"`
		Quality         Quality  `json:"quality"`
		KeyPoints       []string `json:"key_points"`
	}

	// SecurityAnalysis summarizes the violation ledger.
	SecurityAnalysis struct {
		TotalViolations     int                        `json:"total_violations"`
		CriticalViolations  int                        `json:"critical_violations"`
		ViolationsByType    map[security.EventType]int `json:"violations_by_type"`
		TimeOutOfFocusMS    int64                      `json:"time_out_of_focus_ms"`
		ComplianceRate      int                        `json:"compliance_rate"`
	}

	// PerformanceMetrics are the weighted headline scores, 0 to 100.
	PerformanceMetrics struct {
		OverallScore       int `json:"overall_score"`
		CommunicationScore int `json:"communication_score"`
		TechnicalScore     int `json:"technical_score"`
		ConfidenceScore    int `json:"confidence_score"`
		ConsistencyScore   int `json:"consistency_score"`
		ResponseQuality    int `json:"response_quality"`
	}

	// Report is the full compiled outcome of one session.
	Report struct {
		ID             uuid.UUID            `json:"id"`
		Config         interview.Config     `json:"config"`
		Chat           []interview.ChatTurn `json:"chat"`
		SecurityEvents []security.Event     `json:"security_events"`
		SecurityScore  int                  `json:"security_score"`
		QuestionCount  int                  `json:"question_count"`
		StartedAt      time.Time            `json:"started_at"`
		CompletedAt    time.Time            `json:"completed_at"`
		DurationMS     int64                `json:"duration_ms"`
		Captures       []capture.Record     `json:"captures"`
		Responses      []ResponseAnalysis   `json:"response_analysis"`
		Security       SecurityAnalysis     `json:"security_analysis"`
		Performance    PerformanceMetrics   `json:"performance_metrics"`
		GeneratedAt    time.Time            `json:"generated_at"`
	}
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Compile turns a finished session into its report.
func Compile(res *interview.Result, generatedAt time.Time) *Report {
	responses := AnalyzeResponses(res.Chat)
	sec := AnalyzeSecurity(res.SecurityEvents)
	return &Report{
		ID:             res.ID,
		Config:         res.Config,
		Chat:           res.Chat,
		SecurityEvents: res.SecurityEvents,
		SecurityScore:  res.SecurityScore,
		QuestionCount:  res.QuestionCount,
		StartedAt:      res.StartedAt,
		CompletedAt:    res.CompletedAt,
		DurationMS:     res.Duration.Milliseconds(),
		Captures:       res.Captures,
		Responses:      responses,
		Security:       sec,
		Performance:    Metrics(responses, sec),
		GeneratedAt:    generatedAt,
	}
}

// AnalyzeResponses grades every user turn against the assistant question
// preceding it.
func AnalyzeResponses(chat []interview.ChatTurn) []ResponseAnalysis {
	var (
		analyses   []ResponseAnalysis
		question   string
		questionAt time.Time
	)
	for _, turn := range chat {
		if turn.Role == interview.RoleAssistant {
			question = turn.Content
			questionAt = turn.Timestamp
			continue
		}

		q := question
		if q == "" {
			q = "Question not found"
		}
		var responseTime float64
		if !questionAt.IsZero() {
			responseTime = turn.Timestamp.Sub(questionAt).Seconds()
		}

		wordCount := len(strings.Fields(turn.Content))
		analyses = append(analyses, ResponseAnalysis{
			QuestionIndex:   len(analyses),
			Question:        q,
			Response:        turn.Content,
			WordCount:       wordCount,
			Confidence:      turn.Confidence,
			ResponseTimeSec: responseTime,
			Quality:         assessQuality(wordCount, turn.Confidence),
			KeyPoints:       keyPoints(turn.Content),
		})
	}
	return analyses
}

func assessQuality(wordCount int, confidence float64) Quality {
	switch {
	case wordCount > 50 && confidence > 0.8:
		return QualityExcellent
	case wordCount > 30 && confidence > 0.6:
		return QualityGood
	case wordCount > 15 && confidence > 0.4:
		return QualityFair
	default:
		return QualityPoor
	}
}

// keyPoints extracts up to three substantial sentences from a response.
func keyPoints(content string) []string {
	var points []string
	for _, s := range sentenceSplit.Split(content, -1) {
		s = strings.TrimSpace(s)
		if len(s) > 10 {
			points = append(points, s)
		}
		if len(points) == 3 {
			break
		}
	}
	return points
}

// AnalyzeSecurity summarizes the violation ledger. The compliance rate
// uses the same deduction table as the live score, so the two always
// agree for the same ledger.
func AnalyzeSecurity(events []security.Event) SecurityAnalysis {
	byType := make(map[security.EventType]int)
	var critical int
	var outOfFocus int64
	for _, e := range events {
		byType[e.Type]++
		if e.IsCritical() {
			critical++
		}
		outOfFocus += e.DurationMS
	}
	return SecurityAnalysis{
		TotalViolations:    len(events),
		CriticalViolations: critical,
		ViolationsByType:   byType,
		TimeOutOfFocusMS:   outOfFocus,
		ComplianceRate:     security.Score(events),
	}
}

// Metrics computes the weighted headline scores. Intermediate values stay
// unrounded; rounding happens once, at the boundary.
func Metrics(responses []ResponseAnalysis, sec SecurityAnalysis) PerformanceMetrics {
	var confSum, wordSum, qualitySum, devSum float64
	for _, r := range responses {
		confSum += r.Confidence
		wordSum += float64(r.WordCount)
		qualitySum += qualityScore(r.Quality)
	}

	n := float64(len(responses))
	var avgConfidence, avgWordCount, avgQuality float64
	if n > 0 {
		avgConfidence = confSum / n
		avgWordCount = wordSum / n
		avgQuality = qualitySum / n
		for _, r := range responses {
			devSum += math.Abs(r.Confidence - avgConfidence)
		}
	}

	communication := math.Min(100, avgWordCount/50*100)
	technical := avgQuality
	confidence := avgConfidence * 100
	consistency := 100.0
	if n > 0 {
		consistency = math.Max(0, 100-devSum/n*200)
	}

	overall := communication*0.25 +
		technical*0.25 +
		confidence*0.20 +
		consistency*0.15 +
		float64(sec.ComplianceRate)*0.15

	return PerformanceMetrics{
		OverallScore:       int(math.Round(overall)),
		CommunicationScore: int(math.Round(communication)),
		TechnicalScore:     int(math.Round(technical)),
		ConfidenceScore:    int(math.Round(confidence)),
		ConsistencyScore:   int(math.Round(consistency)),
		ResponseQuality:    int(math.Round(avgQuality)),
	}
}

func qualityScore(q Quality) float64 {
	switch q {
	case QualityExcellent:
		return 100
	case QualityGood:
		return 80
	case QualityFair:
		return 60
	case QualityPoor:
		return 40
	}
	return 0
}
