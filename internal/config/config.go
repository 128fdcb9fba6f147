package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the prankline server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DatabaseURL         string // postgres:// DSN, or a sqlite file path for dev
	HTTPPort            int
	TelnyxAPIKey        string // bearer token for the Telnyx call-control API
	TelnyxConnectionID  string // connection/application ID used on outbound calls
	TelnyxNumber        string // default caller ID for the sender leg
	MaxCallDurationSecs int    // forced-hangup deadline for a bridged call
	AudioURL            string // pre-hosted audio resource played into the bridge
	JWTSecret           string
	JWTAlgorithm        string
	LogLevel            string
	LogFormat           string // "text" or "json"
	CORSOrigins         string
}

// defaults
const (
	defaultHTTPPort  = 8080
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultAlgorithm = "HS256"

	// The audio clip played into every bridged call. Overridable so
	// deployments can point at their own hosted file.
	defaultAudioURL = "https://uncabled-zina-fusilly.ngrok-free.dev/static/test.mp3"
)

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("prankline", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "database DSN (postgres://... or a sqlite file path)")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.TelnyxAPIKey, "telnyx-api-key", "", "Telnyx API bearer token")
	fs.StringVar(&cfg.TelnyxConnectionID, "telnyx-connection-id", "", "Telnyx connection ID for outbound calls")
	fs.StringVar(&cfg.TelnyxNumber, "telnyx-number", "", "default caller ID number for the sender leg")
	fs.IntVar(&cfg.MaxCallDurationSecs, "max-call-duration", 0, "seconds before a bridged call is forcibly hung up")
	fs.StringVar(&cfg.AudioURL, "audio-url", defaultAudioURL, "URL of the audio file played into bridged calls")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "secret for signing API bearer tokens")
	fs.StringVar(&cfg.JWTAlgorithm, "jwt-algorithm", defaultAlgorithm, "JWT signing algorithm (only HS256 is supported)")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.CORSOrigins, "cors-origins", "", "comma-separated list of allowed CORS origins (use * for all)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. The env names are the deployment
// contract (docker-compose, systemd units) and are used verbatim, without a
// process prefix.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	envMap := map[string]string{
		"database-url":         "DATABASE_URL",
		"http-port":            "HTTP_PORT",
		"telnyx-api-key":       "TELNYX_API_KEY",
		"telnyx-connection-id": "TELNYX_CONNECTION_ID",
		"telnyx-number":        "TELNYX_NUMBER",
		"max-call-duration":    "MAX_CALL_DURATION_SECONDS",
		"audio-url":            "AUDIO_URL",
		"jwt-secret":           "JWT_SECRET",
		"jwt-algorithm":        "JWT_ALGORITHM",
		"log-level":            "LOG_LEVEL",
		"log-format":           "LOG_FORMAT",
		"cors-origins":         "CORS_ORIGINS",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "database-url":
			cfg.DatabaseURL = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "telnyx-api-key":
			cfg.TelnyxAPIKey = val
		case "telnyx-connection-id":
			cfg.TelnyxConnectionID = val
		case "telnyx-number":
			cfg.TelnyxNumber = val
		case "max-call-duration":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.MaxCallDurationSecs = v
			}
		case "audio-url":
			cfg.AudioURL = val
		case "jwt-secret":
			cfg.JWTSecret = val
		case "jwt-algorithm":
			cfg.JWTAlgorithm = val
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "cors-origins":
			cfg.CORSOrigins = val
		}
	}
}

// validate checks that the config values are sane and that all mandatory
// settings are present. The process refuses to start without them; a missing
// call-duration cap would leave bridged calls running forever.
func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.TelnyxAPIKey == "" {
		return fmt.Errorf("TELNYX_API_KEY is required")
	}
	if c.TelnyxConnectionID == "" {
		return fmt.Errorf("TELNYX_CONNECTION_ID is required")
	}
	if c.TelnyxNumber == "" {
		return fmt.Errorf("TELNYX_NUMBER is required")
	}
	if c.MaxCallDurationSecs <= 0 {
		return fmt.Errorf("MAX_CALL_DURATION_SECONDS is required and must be a positive integer")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTAlgorithm != defaultAlgorithm {
		return fmt.Errorf("JWT_ALGORITHM must be HS256, got %q", c.JWTAlgorithm)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	return nil
}

// MaxCallDuration returns the forced-hangup deadline as a time.Duration.
func (c *Config) MaxCallDuration() time.Duration {
	return time.Duration(c.MaxCallDurationSecs) * time.Second
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
