// Package config reads server settings from the environment, with an optional
// .env file underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	Addr             string
	TurnSeconds      int
	LogLevel         string
	LogDev           bool
	DatabaseURL      string
	ActionsPerSecond float64
	AllowedOrigins   []string
	ShutdownTimeout  time.Duration
}

func defaults() Config {
	return Config{
		Addr:             ":8080",
		TurnSeconds:      60,
		LogLevel:         "info",
		ActionsPerSecond: 10,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Load reads files (".env" when none are given) into the environment without
// overriding variables that are already set, then parses the settings.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv parses settings using getenv for lookups.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := defaults()
	var errs error

	if v := getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("TURN_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("TURN_SECONDS must be a positive integer, got %q", v))
		} else {
			cfg.TurnSeconds = n
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("LOG_DEV"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("LOG_DEV must be a boolean, got %q", v))
		} else {
			cfg.LogDev = b
		}
	}
	cfg.DatabaseURL = getenv("DATABASE_URL")
	if v := getenv("ACTIONS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("ACTIONS_PER_SECOND must be a positive number, got %q", v))
		} else {
			cfg.ActionsPerSecond = f
		}
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be a duration, got %q", v))
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	if errs != nil {
		return Config{}, fmt.Errorf("config: %w", errs)
	}
	return cfg, nil
}
