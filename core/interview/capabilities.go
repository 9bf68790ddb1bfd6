package interview

// Recognizer controls a speech recognition stream on the client side.
// Start may fail (device busy, permission withdrawn); Stop is idempotent.
type Recognizer interface {
	Start() error
	Stop()
}

// Synthesizer speaks a prompt to the candidate. done is invoked exactly
// once, when playback finishes or fails; Cancel drops any pending playback
// without invoking done.
type Synthesizer interface {
	Speak(text string, done func(err error))
	Cancel()
}

// QuestionSource produces the interviewer's side of the conversation.
type QuestionSource interface {
	Opening(cfg Config) string
	// Next returns the follow-up to the transcript so far.
	Next(history []ChatTurn) (string, error)
	Closing() string
}

// Recognition error codes that end a stream without anything being wrong:
// the stream is simply restarted.
const (
	ErrCodeNoSpeech = "no-speech"
	ErrCodeAborted  = "aborted"
)

// BenignRecognitionError reports whether the recognition error code calls
// for a silent restart rather than the error phase.
func BenignRecognitionError(code string) bool {
	return code == ErrCodeNoSpeech || code == ErrCodeAborted
}
