package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/skillustad/proctor/apps/api/echo"
	"github.com/skillustad/proctor/core"
	"github.com/skillustad/proctor/core/interview"
	"github.com/skillustad/proctor/core/session"
	camerasvc "github.com/skillustad/proctor/services/camera"
	emailsvc "github.com/skillustad/proctor/services/email"
	logsvc "github.com/skillustad/proctor/services/logger"
	questionsvc "github.com/skillustad/proctor/services/questions"
	speechsvc "github.com/skillustad/proctor/services/speech"
	"github.com/skillustad/proctor/storage/database"
	sqlxrepos "github.com/skillustad/proctor/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	questionSvc, err := questionsvc.Load(filepath.Join(conf.WorkDir, "config", "questions"))
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading question banks: %v", err), err)
	}

	clock := core.NewClock()
	sessionSvc := session.NewService(
		conf,
		clock,
		logger,
		mailSvc,
		sqlxrepos.NewReportRepository(db),
		newRuntimeFactory(questionSvc, logger),
		rand.New(rand.NewSource(clock.Now().UnixNano())),
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			SessionSvc: sessionSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// newRuntimeFactory builds the per-session client bridges: speech relays,
// camera feed and a question source matched to the requested technology.
func newRuntimeFactory(questionSvc *questionsvc.Service, logger core.Logger) session.RuntimeFactory {
	return func(cfg interview.Config) (session.Runtime, error) {
		questions, err := questionSvc.ForConfig(cfg)
		if err != nil {
			return session.Runtime{}, err
		}

		bridge := speechsvc.NewBridge(logger)
		feed := camerasvc.NewFeed()

		return session.Runtime{
			Caps: interview.Capabilities{
				Recognizer:  bridge,
				Synthesizer: bridge,
				Questions:   questions,
				Camera:      feed,
			},
			Playback: bridge,
			Frames:   feed,
		}, nil
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
