package server

import (
	"time"
)

// Config holds timeouts of the underlying http.Server.
// WriteTimeout has to cover the upstream request, so it is longer than opener default timeout.
type Config struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// DefaultConfig is used unless WithConfig is given.
var DefaultConfig = Config{
	ReadHeaderTimeout: 3 * time.Second,
	ReadTimeout:       30 * time.Second,
	WriteTimeout:      60 * time.Second,
	IdleTimeout:       120 * time.Second,
}
