package interview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skillustad/proctor/core"
)

var aggConf = core.ProctorConfig{
	PauseThreshold:      4 * time.Second,
	PauseTickInterval:   time.Second,
	PauseCountdownTicks: 4,
}

type submission struct {
	text       string
	confidence float64
}

func newTestAggregator() (*Aggregator, *core.ManualClock, *[]submission) {
	clock := core.NewManualClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	var subs []submission
	agg := NewAggregator(clock, aggConf, func(text string, confidence float64) {
		subs = append(subs, submission{text, confidence})
	})
	agg.Arm()
	return agg, clock, &subs
}

func TestAggregatorSubmitsAfterSilence(t *testing.T) {
	agg, clock, subs := newTestAggregator()

	agg.Fragment(Fragment{Text: "I have five years of experience ", Final: true, Confidence: 0.8})
	agg.Fragment(Fragment{Text: "mostly with distributed systems", Final: true, Confidence: 0.6})
	assert.Empty(t, *subs)

	// threshold plus four countdown ticks
	clock.Advance(8 * time.Second)
	if assert.Len(t, *subs, 1) {
		assert.Equal(t, "I have five years of experience mostly with distributed systems", (*subs)[0].text)
		assert.InDelta(t, 0.7, (*subs)[0].confidence, 1e-9)
	}
	assert.Empty(t, agg.Buffer())
}

func TestAggregatorInterimNeverSubmits(t *testing.T) {
	agg, clock, subs := newTestAggregator()

	agg.Fragment(Fragment{Text: "I was thinking that maybe", Final: false})
	clock.Advance(time.Minute)

	assert.Empty(t, *subs)
	assert.Empty(t, agg.Buffer())
}

func TestAggregatorShortBufferNeverSubmits(t *testing.T) {
	agg, clock, subs := newTestAggregator()

	agg.Fragment(Fragment{Text: "ok", Final: true, Confidence: 0.9})
	clock.Advance(time.Minute)
	assert.Empty(t, *subs)

	// the short buffer is kept; later speech completes the utterance
	agg.Fragment(Fragment{Text: "so my answer is yes", Final: true, Confidence: 0.7})
	clock.Advance(8 * time.Second)
	if assert.Len(t, *subs, 1) {
		assert.Equal(t, "ok so my answer is yes", (*subs)[0].text)
	}
}

func TestAggregatorFragmentCancelsCountdown(t *testing.T) {
	agg, clock, subs := newTestAggregator()

	agg.Fragment(Fragment{Text: "let me think about that", Final: true, Confidence: 0.9})
	clock.Advance(7 * time.Second) // three ticks in
	assert.Equal(t, 3, agg.CountdownTicks())

	agg.Fragment(Fragment{Text: "hmm", Final: false})
	assert.Equal(t, 0, agg.CountdownTicks())
	assert.Empty(t, *subs)

	clock.Advance(7 * time.Second)
	assert.Empty(t, *subs)
	clock.Advance(time.Second)
	assert.Len(t, *subs, 1)
}

func TestAggregatorDisarm(t *testing.T) {
	agg, clock, subs := newTestAggregator()

	agg.Fragment(Fragment{Text: "this should be dropped", Final: true, Confidence: 0.9})
	agg.Disarm()
	clock.Advance(time.Minute)

	assert.Empty(t, *subs)
	assert.Empty(t, agg.Buffer())

	// disarmed aggregator ignores fragments entirely
	agg.Fragment(Fragment{Text: "still dropped", Final: true})
	assert.Empty(t, agg.Buffer())
}

func TestAggregatorBlankFragments(t *testing.T) {
	agg, clock, subs := newTestAggregator()

	agg.Fragment(Fragment{Text: "   ", Final: true, Confidence: 0.9})
	clock.Advance(time.Minute)

	assert.Empty(t, *subs)
	assert.Equal(t, 0, agg.Pauses())
}

func TestAggregatorPauseCount(t *testing.T) {
	agg, clock, _ := newTestAggregator()

	agg.Fragment(Fragment{Text: "first stretch of speech", Final: true, Confidence: 0.9})
	clock.Advance(8 * time.Second)
	assert.Equal(t, 1, agg.Pauses())

	agg.Arm() // re-arming resets the pause counter
	assert.Equal(t, 0, agg.Pauses())
}
