package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillustad/proctor/core/capture"
	"github.com/skillustad/proctor/core/interview"
	"github.com/skillustad/proctor/core/security"
)

var reportBase = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestAnalyzeResponses(t *testing.T) {
	chat := []interview.ChatTurn{
		{Role: interview.RoleAssistant, Content: "Tell me about your experience.", Timestamp: reportBase},
		{Role: interview.RoleUser, Content: "I built payment systems for six years. The hardest part was idempotency. Retries are everywhere!", Timestamp: reportBase.Add(25 * time.Second), Confidence: 0.85},
		{Role: interview.RoleAssistant, Content: "How do you test concurrent code?", Timestamp: reportBase.Add(40 * time.Second)},
		{Role: interview.RoleUser, Content: words(60), Timestamp: reportBase.Add(70 * time.Second), Confidence: 0.9},
	}

	analyses := AnalyzeResponses(chat)
	require.Len(t, analyses, 2)

	first := analyses[0]
	assert.Equal(t, 0, first.QuestionIndex)
	assert.Equal(t, "Tell me about your experience.", first.Question)
	assert.Equal(t, 15, first.WordCount)
	assert.InDelta(t, 25, first.ResponseTimeSec, 1e-9)
	assert.Equal(t, QualityPoor, first.Quality) // 15 words is not over the fair cutoff
	assert.Equal(t, []string{
		"I built payment systems for six years",
		"The hardest part was idempotency",
		"Retries are everywhere",
	}, first.KeyPoints)

	// 60 words at 0.9 confidence grades excellent
	second := analyses[1]
	assert.Equal(t, "How do you test concurrent code?", second.Question)
	assert.Equal(t, QualityExcellent, second.Quality)
	assert.Equal(t, 60, second.WordCount)
}

func TestAnalyzeResponsesWithoutQuestion(t *testing.T) {
	chat := []interview.ChatTurn{
		{Role: interview.RoleUser, Content: "an orphaned answer", Timestamp: reportBase},
	}
	analyses := AnalyzeResponses(chat)
	require.Len(t, analyses, 1)
	assert.Equal(t, "Question not found", analyses[0].Question)
	assert.Zero(t, analyses[0].ResponseTimeSec)
}

func TestAssessQuality(t *testing.T) {
	tests := []struct {
		name       string
		wordCount  int
		confidence float64
		want       Quality
	}{
		{"excellent", 60, 0.9, QualityExcellent},
		{"long but hesitant", 60, 0.5, QualityFair},
		{"good", 35, 0.7, QualityGood},
		{"fair", 20, 0.5, QualityFair},
		{"boundary words not enough", 50, 0.9, QualityGood},
		{"poor", 5, 0.9, QualityPoor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assessQuality(tt.wordCount, tt.confidence))
		})
	}
}

func TestAnalyzeSecurity(t *testing.T) {
	t.Run("clean ledger", func(t *testing.T) {
		sec := AnalyzeSecurity(nil)
		assert.Equal(t, 100, sec.ComplianceRate)
		assert.Zero(t, sec.TotalViolations)
		assert.Zero(t, sec.CriticalViolations)
	})

	t.Run("mixed ledger", func(t *testing.T) {
		events := []security.Event{
			{Type: security.EventFullscreenExit},
			{Type: security.EventProhibitedKey},
			{Type: security.EventTabBlur, DurationMS: 6000},
			{Type: security.EventRightClick},
		}
		sec := AnalyzeSecurity(events)
		assert.Equal(t, 4, sec.TotalViolations)
		assert.Equal(t, 2, sec.CriticalViolations)
		assert.Equal(t, int64(6000), sec.TimeOutOfFocusMS)
		assert.Equal(t, 1, sec.ViolationsByType[security.EventTabBlur])
		// same table as the live score: 100 - 20 - 8 - 15 - 3
		assert.Equal(t, 54, sec.ComplianceRate)
	})
}

func TestMetrics(t *testing.T) {
	t.Run("no responses", func(t *testing.T) {
		m := Metrics(nil, SecurityAnalysis{ComplianceRate: 100})
		assert.Zero(t, m.CommunicationScore)
		assert.Zero(t, m.TechnicalScore)
		assert.Zero(t, m.ConfidenceScore)
		assert.Equal(t, 100, m.ConsistencyScore)
		// 0*0.25 + 0*0.25 + 0*0.2 + 100*0.15 + 100*0.15
		assert.Equal(t, 30, m.OverallScore)
	})

	t.Run("single excellent response", func(t *testing.T) {
		responses := []ResponseAnalysis{
			{WordCount: 60, Confidence: 0.9, Quality: QualityExcellent},
		}
		m := Metrics(responses, SecurityAnalysis{ComplianceRate: 100})
		assert.Equal(t, 100, m.CommunicationScore) // 60/50 capped at 100
		assert.Equal(t, 100, m.TechnicalScore)
		assert.Equal(t, 90, m.ConfidenceScore)
		assert.Equal(t, 100, m.ConsistencyScore)
		// 25 + 25 + 18 + 15 + 15
		assert.Equal(t, 98, m.OverallScore)
	})

	t.Run("rounds at the boundary only", func(t *testing.T) {
		responses := []ResponseAnalysis{
			{WordCount: 20, Confidence: 0.8, Quality: QualityFair},
			{WordCount: 21, Confidence: 0.6, Quality: QualityFair},
		}
		m := Metrics(responses, SecurityAnalysis{ComplianceRate: 80})
		// avg words 20.5 -> 41, avg conf 0.7 -> 70, dev 0.1 -> 80
		assert.Equal(t, 41, m.CommunicationScore)
		assert.Equal(t, 60, m.TechnicalScore)
		assert.Equal(t, 70, m.ConfidenceScore)
		assert.Equal(t, 80, m.ConsistencyScore)
		// 41*0.25 + 60*0.25 + 70*0.2 + 80*0.15 + 80*0.15 = 63.25
		assert.Equal(t, 63, m.OverallScore)
	})
}

func compiledReport() *Report {
	res := &interview.Result{
		ID:     uuid.New(),
		Config: interview.Config{Technology: "golang", QuestionCount: 2},
		Chat: []interview.ChatTurn{
			{Role: interview.RoleAssistant, Content: "Opening question?", Timestamp: reportBase},
			{Role: interview.RoleUser, Content: words(40), Timestamp: reportBase.Add(30 * time.Second), Confidence: 0.7},
		},
		SecurityEvents: []security.Event{{Type: security.EventRightClick, Timestamp: reportBase}},
		SecurityScore:  97,
		QuestionCount:  2,
		StartedAt:      reportBase,
		CompletedAt:    reportBase.Add(10 * time.Minute),
		Duration:       10 * time.Minute,
		Captures: []capture.Record{
			{ImageRef: "data:image/jpeg;base64,abc123", Timestamp: reportBase, Timing: capture.TimingStart, SequenceIndex: 1},
		},
	}
	return Compile(res, reportBase.Add(11*time.Minute))
}

func TestCompile(t *testing.T) {
	r := compiledReport()

	assert.Equal(t, int64(600000), r.DurationMS)
	assert.Equal(t, 97, r.SecurityScore)
	assert.Equal(t, 97, r.Security.ComplianceRate) // agrees with the live score
	require.Len(t, r.Responses, 1)
	assert.Equal(t, QualityGood, r.Responses[0].Quality)
	assert.Equal(t, reportBase.Add(11*time.Minute), r.GeneratedAt)
}

func TestExport(t *testing.T) {
	r := compiledReport()

	data, err := r.Export()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "abc123")
	assert.Contains(t, string(data), imagePlaceholder)

	// the report itself keeps the real image reference
	assert.Equal(t, "data:image/jpeg;base64,abc123", r.Captures[0].ImageRef)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "golang", decoded["config"].(map[string]interface{})["technology"])

	assert.Equal(t, "interview-report-2024-06-01.json", r.Filename())
}
