package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the application-wide configuration, set once by NewConfig at startup.
var Conf *Config

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Proctor  ProctorConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// ProctorConfig holds the session policy knobs.
	// Defaults match production policy; tests may shrink the timings.
	ProctorConfig struct {
		PauseThreshold      time.Duration // quiet period before the pause countdown starts
		PauseTickInterval   time.Duration
		PauseCountdownTicks int
		SettleDelay         time.Duration // delay before re-arming the mic after TTS playback
		RestartDelay        time.Duration // delay before restarting recognition after a benign end
		TabBlurThreshold    time.Duration
		WindowBlurThreshold time.Duration
		WarningTimeout      time.Duration // transient security warning auto-dismiss
		CaptureWarmup       time.Duration // camera warm-up before the start photo
		CaptureInitialDelay time.Duration // delay before the random capture loop starts
		CaptureMinDelay     time.Duration
		CaptureMaxDelay     time.Duration
		CaptureCap          int // max scheduled captures per session (excludes the end photo)
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the configuration from the environment.
// A config/.env.<env> file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "SkillUstad Proctor")
	v.SetDefault("secretKey", "8shc-3vq)pmb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 30*time.Minute)
	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "proctor")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseDisableTLS", true)

	// session policy defaults
	v.SetDefault("pauseThreshold", 4*time.Second)
	v.SetDefault("pauseTickInterval", time.Second)
	v.SetDefault("pauseCountdownTicks", 4)
	v.SetDefault("settleDelay", 500*time.Millisecond)
	v.SetDefault("restartDelay", 100*time.Millisecond)
	v.SetDefault("tabBlurThreshold", 5*time.Second)
	v.SetDefault("windowBlurThreshold", 3*time.Second)
	v.SetDefault("warningTimeout", 5*time.Second)
	v.SetDefault("captureWarmup", 2*time.Second)
	v.SetDefault("captureInitialDelay", 30*time.Second)
	v.SetDefault("captureMinDelay", 30*time.Second)
	v.SetDefault("captureMaxDelay", 90*time.Second)
	v.SetDefault("captureCap", 8)

	env := os.Getenv("ENV")
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        testMode,
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         wd,
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridApiKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Proctor: ProctorConfig{
			PauseThreshold:      v.GetDuration("pauseThreshold"),
			PauseTickInterval:   v.GetDuration("pauseTickInterval"),
			PauseCountdownTicks: v.GetInt("pauseCountdownTicks"),
			SettleDelay:         v.GetDuration("settleDelay"),
			RestartDelay:        v.GetDuration("restartDelay"),
			TabBlurThreshold:    v.GetDuration("tabBlurThreshold"),
			WindowBlurThreshold: v.GetDuration("windowBlurThreshold"),
			WarningTimeout:      v.GetDuration("warningTimeout"),
			CaptureWarmup:       v.GetDuration("captureWarmup"),
			CaptureInitialDelay: v.GetDuration("captureInitialDelay"),
			CaptureMinDelay:     v.GetDuration("captureMinDelay"),
			CaptureMaxDelay:     v.GetDuration("captureMaxDelay"),
			CaptureCap:          v.GetInt("captureCap"),
		},
	}
	return Conf
}
