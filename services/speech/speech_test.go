package speechsvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillustad/proctor/core"
)

func TestBridgePlayback(t *testing.T) {
	bridge := NewBridge(core.NopLogger{})

	var calls []error
	bridge.Speak("hello there", func(err error) { calls = append(calls, err) })

	t.Run("ack completes playback once", func(t *testing.T) {
		bridge.PlaybackFinished("")
		require.Len(t, calls, 1)
		assert.NoError(t, calls[0])

		// stray ack with nothing pending is a no-op
		bridge.PlaybackFinished("")
		assert.Len(t, calls, 1)
	})

	t.Run("failure code surfaces as an error", func(t *testing.T) {
		bridge.Speak("next prompt", func(err error) { calls = append(calls, err) })
		bridge.PlaybackFinished("interrupted")
		require.Len(t, calls, 2)
		assert.EqualError(t, calls[1], "client playback failed: interrupted")
	})

	t.Run("cancel drops the pending callback", func(t *testing.T) {
		bridge.Speak("never heard", func(err error) { calls = append(calls, err) })
		bridge.Cancel()
		bridge.PlaybackFinished("")
		assert.Len(t, calls, 2)
	})
}

func TestBridgeArming(t *testing.T) {
	bridge := NewBridge(core.NopLogger{})
	assert.False(t, bridge.Armed())

	require.NoError(t, bridge.Start())
	assert.True(t, bridge.Armed())

	bridge.Stop()
	assert.False(t, bridge.Armed())
}

func TestScripted(t *testing.T) {
	clock := core.NewManualClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	scripted := NewScripted(clock)

	var done int
	scripted.Speak("one two three", func(err error) { done++ })

	clock.Advance(wordDuration)
	assert.Zero(t, done, "playback should still be running")

	clock.Advance(2 * wordDuration)
	assert.Equal(t, 1, done)

	t.Run("cancel stops playback", func(t *testing.T) {
		scripted.Speak("four five", func(err error) { done++ })
		scripted.Cancel()
		clock.Advance(time.Minute)
		assert.Equal(t, 1, done)
	})
}
