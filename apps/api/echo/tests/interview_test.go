package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/skillustad/proctor/apps/api/echo"
	"github.com/skillustad/proctor/core/interview"
	"github.com/skillustad/proctor/core/report"
)

func newSessionConfig() interview.Config {
	return interview.Config{
		Technology:      "golang",
		ExperienceLevel: "junior",
		QuestionCount:   2,
		CandidateName:   "Jane Doe",
		CandidateEmail:  "jane@test.cd",
	}
}

// createSession provisions a session via the API and exchanges its access
// code for a token.
func createSession(t *testing.T) (created echoapi.CreateInterviewResponse, token string) {
	t.Helper()

	req, rec := newRequest(http.MethodPost, "/v1/interviews", marchallObj(t, newSessionConfig()))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.AccessCode)

	body := marchallObj(t, echoapi.AccessRequest{AccessCode: created.AccessCode})
	req, rec = newRequest(http.MethodPost, "/v1/interviews/"+created.ID.String()+"/token", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res echoapi.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return created, res.Token
}

func getSnapshot(t *testing.T, id, token string) interview.Snapshot {
	t.Helper()
	req, rec := newAuthRequest(http.MethodGet, "/v1/interviews/"+id, token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap interview.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func postJSON(t *testing.T, path, token string, body interface{}) *http.Response {
	t.Helper()
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newAuthRequest(http.MethodPost, path, token, data)
	app.ServeHTTP(rec, req)
	return rec.Result()
}

// sendSignal posts a client signal and asserts it was accepted.
func sendSignal(t *testing.T, id, token string, sig echoapi.SignalRequest) {
	t.Helper()
	res := postJSON(t, "/v1/interviews/"+id+"/signals", token, sig)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

// answer simulates the candidate speaking: a final fragment followed by
// the silence that triggers submission.
func answer(t *testing.T, id, token, text string) {
	t.Helper()
	res := postJSON(t, "/v1/interviews/"+id+"/fragments", token, echoapi.FragmentRequest{
		Text:       text,
		Final:      true,
		Confidence: 0.9,
	})
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	clock.Advance(8 * time.Second)
}

// playbackDone acknowledges TTS playback and waits out the settle delay.
func playbackDone(t *testing.T, id, token string) {
	t.Helper()
	sendSignal(t, id, token, echoapi.SignalRequest{Type: "speech_end"})
	clock.Advance(time.Second)
}

func Test_interviewApi_create(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/interviews", marchallObj(t, newSessionConfig()))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var res echoapi.CreateInterviewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.ID)
		assert.NotEmpty(t, res.AccessCode)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := newSessionConfig()
		cfg.ExperienceLevel = "wizard"
		cfg.CandidateEmail = "nope"
		req, rec := newRequest(http.MethodPost, "/v1/interviews", marchallObj(t, cfg))
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fldErrs))
		assert.Contains(t, fldErrs, "experience_level")
		assert.Contains(t, fldErrs, "candidate_email")
	})

	t.Run("unknown question bank", func(t *testing.T) {
		cfg := newSessionConfig()
		cfg.Technology = "cobol"
		req, rec := newRequest(http.MethodPost, "/v1/interviews", marchallObj(t, cfg))
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fldErrs))
		assert.Contains(t, fldErrs, "technology")
	})
}

func Test_interviewApi_token(t *testing.T) {
	created, _ := createSession(t)

	tests := []httpTest{
		{
			name:     "wrong code",
			path:     "/v1/interviews/" + created.ID.String() + "/token",
			body:     marchallObj(t, echoapi.AccessRequest{AccessCode: "nope1234"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid access code"}),
		},
		{
			name:     "missing code",
			path:     "/v1/interviews/" + created.ID.String() + "/token",
			body:     marchallObj(t, echoapi.AccessRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"access_code": "this field is required"}),
		},
		{
			name:     "unknown session",
			path:     "/v1/interviews/e0f8c2e6-0d39-4a57-9f6b-000000000000/token",
			body:     marchallObj(t, echoapi.AccessRequest{AccessCode: "whatever"}),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_interviewApi_auth(t *testing.T) {
	created, _ := createSession(t)
	_, otherToken := createSession(t)

	t.Run("missing token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/interviews/"+created.ID.String())
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("token scoped to another session", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/interviews/"+created.ID.String(), otherToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_interviewApi_flow(t *testing.T) {
	created, token := createSession(t)
	id := created.ID.String()

	// start: the engine greets the candidate with the opening question
	res := postJSON(t, "/v1/interviews/"+id+"/start", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	snap := getSnapshot(t, id, token)
	assert.Equal(t, interview.PhaseSpeaking, snap.Phase)
	assert.Equal(t, 1, snap.QuestionCount)
	require.Len(t, snap.Chat, 1)

	// candidate hears the prompt out; mic re-arms after the settle delay
	playbackDone(t, id, token)
	snap = getSnapshot(t, id, token)
	assert.Equal(t, interview.PhaseListening, snap.Phase)

	// first answer is transcribed and submitted after the pause countdown
	answer(t, id, token, "Goroutines are lightweight threads managed by the runtime")
	snap = getSnapshot(t, id, token)
	assert.Equal(t, interview.PhaseSpeaking, snap.Phase)
	assert.Equal(t, 2, snap.QuestionCount)
	assert.Len(t, snap.Chat, 3)

	// second answer hits the quota; the closing statement ends the session
	playbackDone(t, id, token)
	answer(t, id, token, "Slices are descriptors over arrays with a length and capacity")
	snap = getSnapshot(t, id, token)
	assert.Equal(t, interview.PhaseSpeaking, snap.Phase)
	sendSignal(t, id, token, echoapi.SignalRequest{Type: "speech_end"})
	snap = getSnapshot(t, id, token)
	assert.Equal(t, interview.PhaseCompleted, snap.Phase)

	// completion compiles, persists and returns the report
	res = postJSON(t, "/v1/interviews/"+id+"/complete", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	req, rec := newAuthRequest(http.MethodGet, "/v1/interviews/"+id+"/report", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var rpt report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rpt))
	assert.Equal(t, created.ID, rpt.ID)
	assert.Equal(t, 100, rpt.SecurityScore)
	assert.Len(t, rpt.Responses, 2)

	t.Run("download", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/interviews/"+id+"/report/download", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "interview-report-")
	})

	t.Run("session deregistered", func(t *testing.T) {
		res := postJSON(t, "/v1/interviews/"+id+"/start", token, nil)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("reports listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports?candidate_email=jane@test.cd&ordering=-generated_at", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var reports []report.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
		assert.NotEmpty(t, reports)
	})
}

func Test_interviewApi_signals(t *testing.T) {
	created, token := createSession(t)
	id := created.ID.String()

	res := postJSON(t, "/v1/interviews/"+id+"/start", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	t.Run("tab switch is penalized", func(t *testing.T) {
		sendSignal(t, id, token, echoapi.SignalRequest{Type: "visibility", Hidden: true})
		clock.Advance(6 * time.Second)
		sendSignal(t, id, token, echoapi.SignalRequest{Type: "visibility", Hidden: false})

		snap := getSnapshot(t, id, token)
		assert.Equal(t, 85, snap.SecurityScore)
	})

	t.Run("prohibited key is suppressed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/interviews/"+id+"/signals", token,
			marchallObj(t, echoapi.SignalRequest{Type: "key", Key: "c", Ctrl: true}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var sig echoapi.SignalResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sig))
		assert.True(t, sig.Suppressed)
	})

	t.Run("regular key passes through", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/interviews/"+id+"/signals", token,
			marchallObj(t, echoapi.SignalRequest{Type: "key", Key: "x"}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var sig echoapi.SignalResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sig))
		assert.False(t, sig.Suppressed)
	})

	t.Run("unknown signal type", func(t *testing.T) {
		res := postJSON(t, "/v1/interviews/"+id+"/signals", token, echoapi.SignalRequest{Type: "telepathy"})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("camera frames feed the capture roll", func(t *testing.T) {
		res := postJSON(t, "/v1/interviews/"+id+"/frames", token, echoapi.FrameRequest{Image: "ZGF0YQ=="})
		assert.Equal(t, http.StatusAccepted, res.StatusCode)
	})
}
