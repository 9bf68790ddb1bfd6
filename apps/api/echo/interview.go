package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/skillustad/proctor/core"
	"github.com/skillustad/proctor/core/interview"
	"github.com/skillustad/proctor/core/report"
	"github.com/skillustad/proctor/core/security"
	"github.com/skillustad/proctor/core/session"
	questionsvc "github.com/skillustad/proctor/services/questions"
)

var errNoQuestionSet = "no question bank covers this technology"

// client signal types forwarded to the session
const (
	signalVisibility       = "visibility"
	signalWindowFocus      = "window_focus"
	signalFullscreen       = "fullscreen"
	signalKey              = "key"
	signalContextMenu      = "context_menu"
	signalFocusLoss        = "focus_loss"
	signalSpeechEnd        = "speech_end"
	signalRecognitionError = "recognition_error"
	signalRecognitionEnd   = "recognition_end"
	signalCameraDenied     = "camera_denied"
)

type interviewApi struct {
	conf     *core.Config
	svc      *session.Service
	validate *validator.Validate
}

func registerInterviewAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc *session.Service,
	validate *validator.Validate,
) {
	api := interviewApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	ig := g.Group("/interviews")

	// un-authed endpoints
	ig.POST("", api.create)
	ig.POST("/:id/token", api.token)

	// session-scoped endpoints: a token only works against its own session
	sg := ig.Group("/:id", jwt, sessionScopeMiddleware())
	sg.GET("", api.snapshot)
	sg.POST("/start", api.start)
	sg.POST("/listen", api.startListening)
	sg.DELETE("/listen", api.stopListening)
	sg.POST("/fragments", api.fragment)
	sg.POST("/signals", api.signal)
	sg.POST("/frames", api.frame)
	sg.POST("/retry", api.retry)
	sg.POST("/complete", api.complete)
	sg.GET("/report", api.retrieveReport)
	sg.GET("/report/download", api.downloadReport)

	// recruiter-side listing
	g.GET("/reports", api.queryReports, jwt)
}

// Handlers

func (api *interviewApi) create(ctx echo.Context) error {
	var cfg interview.Config
	if err := ctx.Bind(&cfg); err != nil {
		return errors.Wrap(err, "binding to interview.Config")
	}
	cfg.Clean()
	if err := api.validate.Struct(&cfg); err != nil {
		return err
	}

	sess, code, err := api.svc.Create(cfg)
	if err != nil {
		if errors.Cause(err) == questionsvc.ErrNoSet {
			return core.NewValidationError(nil, core.FieldError{Field: "technology", Error: errNoQuestionSet})
		}
		return errors.Wrap(err, "creating session")
	}

	// the caller gets a token right away; the access code re-issues one
	// if the candidate reconnects
	token, err := GenerateToken(GetSessionClaims(api.conf, sess.Controller.ID().String(), sess.Controller.Config()))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusCreated, CreateInterviewResponse{
		ID:         sess.Controller.ID(),
		AccessCode: code,
		Token:      token,
	})
}

func (api *interviewApi) token(ctx echo.Context) error {
	id, err := bindSessionID(ctx)
	if err != nil {
		return err
	}

	var data AccessRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AccessRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.VerifyAccess(id, data.AccessCode); err != nil {
		switch errors.Cause(err) {
		case session.ErrNotFound:
			return errHttpNotFound
		case session.ErrAccessDenied:
			return core.NewValidationError(errors.New("invalid access code"))
		}
		return errors.Wrap(err, "verifying access code")
	}

	sess, err := api.svc.Get(id)
	if err != nil {
		return sessionErr(err, "getting session")
	}
	claims := GetSessionClaims(api.conf, id.String(), sess.Controller.Config())
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *interviewApi) snapshot(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Controller.Snapshot())
}

func (api *interviewApi) start(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	if err := sess.Controller.Start(ctx.Request().Context()); err != nil {
		return sessionErr(err, "starting session")
	}
	return ctx.JSON(http.StatusOK, sess.Controller.Snapshot())
}

func (api *interviewApi) startListening(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	if err := sess.Controller.StartListening(); err != nil {
		return sessionErr(err, "arming recognition")
	}
	return ctx.JSON(http.StatusOK, sess.Controller.Snapshot())
}

func (api *interviewApi) stopListening(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	sess.Controller.StopListening()
	return ctx.JSON(http.StatusOK, sess.Controller.Snapshot())
}

func (api *interviewApi) fragment(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}

	var data FragmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FragmentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := sess.Controller.Fragment(interview.Fragment{
		Text:       data.Text,
		Final:      data.Final,
		Confidence: data.Confidence,
	}); err != nil {
		return sessionErr(err, "ingesting fragment")
	}
	return ctx.NoContent(http.StatusAccepted)
}

func (api *interviewApi) signal(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}

	var data SignalRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignalRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	monitor := sess.Controller.Monitor()
	switch data.Type {
	case signalVisibility:
		monitor.VisibilityChanged(data.Hidden)
	case signalWindowFocus:
		monitor.WindowFocusChanged(data.Focused)
	case signalFullscreen:
		monitor.FullscreenChanged(data.Fullscreen)
	case signalKey:
		suppressed := monitor.KeyPressed(security.KeyPress{
			Key:   data.Key,
			Ctrl:  data.Ctrl,
			Alt:   data.Alt,
			Shift: data.Shift,
		})
		return ctx.JSON(http.StatusOK, SignalResponse{Suppressed: suppressed})
	case signalContextMenu:
		monitor.ContextMenu()
	case signalFocusLoss:
		monitor.FocusLost(data.Details)
	case signalSpeechEnd:
		sess.Playback.PlaybackFinished(data.Code)
	case signalRecognitionError:
		sess.Controller.RecognitionError(data.Code)
	case signalRecognitionEnd:
		sess.Controller.RecognitionEnded()
	case signalCameraDenied:
		sess.Frames.Deny()
	}
	return ctx.JSON(http.StatusOK, SignalResponse{})
}

func (api *interviewApi) frame(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}

	var data FrameRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FrameRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess.Frames.Push(data.Image)
	return ctx.NoContent(http.StatusAccepted)
}

func (api *interviewApi) retry(ctx echo.Context) error {
	sess, err := api.contextSession(ctx)
	if err != nil {
		return err
	}
	if err := sess.Controller.Retry(); err != nil {
		return sessionErr(err, "retrying session")
	}
	return ctx.JSON(http.StatusOK, sess.Controller.Snapshot())
}

func (api *interviewApi) complete(ctx echo.Context) error {
	id, err := bindSessionID(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.svc.Complete(ctx.Request().Context(), id)
	if err != nil {
		return sessionErr(err, "completing session")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *interviewApi) retrieveReport(ctx echo.Context) error {
	id, err := bindSessionID(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.svc.GetReport(ctx.Request().Context(), id)
	if err != nil {
		return sessionErr(err, "getting report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *interviewApi) downloadReport(ctx echo.Context) error {
	id, err := bindSessionID(ctx)
	if err != nil {
		return err
	}
	rpt, err := api.svc.GetReport(ctx.Request().Context(), id)
	if err != nil {
		return sessionErr(err, "getting report")
	}

	data, err := rpt.Export()
	if err != nil {
		return errors.Wrap(err, "exporting report")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rpt.Filename()))
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func (api *interviewApi) queryReports(ctx echo.Context) error {
	filter := new(ReportFilterRequest)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []*report.Report{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reports, err := api.svc.FilterReports(ctx.Request().Context(), report.Filter{
		CandidateEmail: filter.CandidateEmail,
		Technology:     filter.Technology,
		Ordering:       ordering.Orderings,
	})
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if reports == nil {
		reports = []*report.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

// Helpers

func (api *interviewApi) contextSession(ctx echo.Context) (*session.Session, error) {
	id, err := bindSessionID(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := api.svc.Get(id)
	if err != nil {
		return nil, sessionErr(err, "getting session")
	}
	return sess, nil
}

func bindSessionID(ctx echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return uuid.Nil, errHttpNotFound
	}
	return id, nil
}

// sessionErr maps domain errors to their HTTP counterparts.
func sessionErr(err error, msg string) error {
	switch errors.Cause(err) {
	case session.ErrNotFound, report.ErrNotFound:
		return errHttpNotFound
	case interview.ErrAlreadyStarted, interview.ErrNotStarted,
		interview.ErrCompleted, interview.ErrNotRetryable:
		return echo.NewHTTPError(http.StatusConflict, errors.Cause(err).Error())
	}
	return errors.Wrap(err, msg)
}

type (
	CreateInterviewResponse struct {
		ID         uuid.UUID `json:"id"`
		AccessCode string    `json:"access_code"`
		Token      string    `json:"token"`
	}

	AccessRequest struct {
		AccessCode string `json:"access_code" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	FragmentRequest struct {
		Text       string  `json:"text" validate:"required"`
		Final      bool    `json:"final"`
		Confidence float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	}

	SignalRequest struct {
		Type       string `json:"type" validate:"required,oneof=visibility window_focus fullscreen key context_menu focus_loss speech_end recognition_error recognition_end camera_denied"`
		Hidden     bool   `json:"hidden"`
		Focused    bool   `json:"focused"`
		Fullscreen bool   `json:"fullscreen"`
		Key        string `json:"key"`
		Ctrl       bool   `json:"ctrl"`
		Alt        bool   `json:"alt"`
		Shift      bool   `json:"shift"`
		Details    string `json:"details"`
		Code       string `json:"code"`
	}

	SignalResponse struct {
		Suppressed bool `json:"suppressed"`
	}

	FrameRequest struct {
		Image string `json:"image" validate:"required"`
	}

	ReportFilterRequest struct {
		CandidateEmail string `query:"candidate_email"`
		Technology     string `query:"technology"`
	}
)

func (ar *AccessRequest) Validate(validate *validator.Validate) error {
	ar.AccessCode = core.CleanString(ar.AccessCode, true /* lower */)
	return validate.Struct(ar)
}

func (fr *FragmentRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(fr)
}

func (sr *SignalRequest) Validate(validate *validator.Validate) error {
	sr.Type = core.CleanString(sr.Type, true /* lower */)
	return validate.Struct(sr)
}

func (fr *FrameRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(fr)
}

func (rf *ReportFilterRequest) Clean() {
	rf.CandidateEmail = core.CleanString(rf.CandidateEmail, true /* lower */)
	rf.Technology = core.CleanString(rf.Technology, true /* lower */)
}
