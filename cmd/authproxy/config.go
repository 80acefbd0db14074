package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/ksysoev/authopener/opener"
)

const (
	upstreamEnv = "AUTHPROXY_UPSTREAM"
	addrEnv     = "AUTHPROXY_ADDR"
	logLevelEnv = "AUTHPROXY_LOG_LEVEL"
)

type appConfig struct {
	Upstream   string
	Addr       string
	LogLevel   string
	IPProvider string
	Timeout    time.Duration
	RatePeriod time.Duration
	RateLimit  uint64
	Trace      bool
	Breaker    bool
}

// openerOptions builds options shared by openers of all requests.
func (c *appConfig) openerOptions() []opener.Option {
	opts := []opener.Option{opener.WithTimeout(c.Timeout)}

	if c.Breaker {
		opts = append(opts, opener.WithCircuitBreaker(opener.NewCircuitBreaker(c.Upstream)))
	}

	return opts
}

func (c *appConfig) validate() error {
	if c.Upstream == "" {
		return fmt.Errorf("upstream is not set, use --upstream or %s", upstreamEnv)
	}

	return nil
}

// loadEnv loads variables from env file if it exists. Variables that are already set are kept.
func loadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return def
}

// initLogger sets default slog logger. Logs go to w, which is stderr for the
// CLI, as stdout is the response in CGI mode.
func initLogger(w io.Writer, level string) error {
	var lvl slog.Level

	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))

	return nil
}
