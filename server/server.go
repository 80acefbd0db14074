// Package server provides a HTTP server with custom timeouts for running the proxy as a standalone service.
//
// The Server struct wraps the standard http.Server and includes a base context, a net.Listener for accepting
// connections, and a mutex for thread safety. It also includes a ready channel that can be used to signal when
// the server is ready to accept connections.
//
// The server uses custom read header and read timeouts from Config.
// These timeouts help to prevent slow client attacks by limiting the amount of time the server will wait for a client to send its request.
//
// Usage:
//
//	s := server.NewServer(":8080")
//	s.Handle("/", proxyHandler)
//	err := s.Run()
//	if err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
)

// ErrServerAlreadyRunning is returned by Run of a running server.
var ErrServerAlreadyRunning = fmt.Errorf("server is already running")

type route struct {
	handler http.Handler
	path    string
}

// Server serves registered routes on a single address.
type Server struct {
	baseCtx      context.Context
	listener     net.Listener
	listenerLock *sync.Mutex
	mutex        *sync.Mutex
	handler      *http.Server
	ready        chan<- struct{}
	addr         string
	routes       []route
	config       Config
}

// Option configures Server.
type Option func(*Server)

// WithReadinessChan sets ch to [Server] and will be closed once the [Server] is
// ready to accept connection. Typically used in testing after calling [Run]
// method and waiting for ch to close, before continuing with test logics.
func WithReadinessChan(ch chan<- struct{}) Option {
	return func(s *Server) {
		s.ready = ch
	}
}

// WithBaseContext optionally specifies based context that will be used for all connections.
// If not specified, context.Background() will be used.
func WithBaseContext(ctx context.Context) Option {
	if ctx == nil {
		panic("nil context")
	}

	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// WithConfig overrides DefaultConfig timeouts.
func WithConfig(cfg Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// NewServer creates new instance of proxy server
// addr - address to listen on
// returns new instance of Server
func NewServer(addr string, opts ...Option) *Server {
	if addr == "" {
		addr = ":http"
	}

	server := &Server{
		addr:         addr,
		routes:       make([]route, 0, 1),
		mutex:        &sync.Mutex{},
		listenerLock: &sync.Mutex{},
		baseCtx:      context.Background(),
		config:       DefaultConfig,
	}

	for _, opt := range opts {
		opt(server)
	}

	server.handler = &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: server.config.ReadHeaderTimeout,
		ReadTimeout:       server.config.ReadTimeout,
		WriteTimeout:      server.config.WriteTimeout,
		IdleTimeout:       server.config.IdleTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return server.baseCtx
		},
	}

	return server
}

// Handle registers handler for the path pattern
func (s *Server) Handle(path string, handler http.Handler) {
	s.routes = append(s.routes, route{path: path, handler: handler})
}

// Run starts the server
// returns error if server is already running
// or if server fails to start
func (s *Server) Run() (err error) {
	if !s.mutex.TryLock() {
		return ErrServerAlreadyRunning
	}

	defer s.mutex.Unlock()

	mux := http.NewServeMux()

	for _, r := range s.routes {
		mux.Handle(r.path, r.handler)
	}

	s.handler.Handler = mux

	s.listenerLock.Lock()
	s.listener, err = net.Listen("tcp", s.addr)
	s.listenerLock.Unlock()

	if err != nil {
		return err
	}

	slog.Info("Starting proxy server on " + s.listener.Addr().String())

	// Signals that server can accept connections
	if s.ready != nil {
		close(s.ready)
	}

	err = s.handler.Serve(s.listener)

	if err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Close stops the server. With ctx it waits for active requests to complete
// until ctx is done, without ctx it closes all connections immediately.
func (s *Server) Close(ctx ...context.Context) error {
	if len(ctx) > 0 {
		return s.handler.Shutdown(ctx[0])
	}

	return s.handler.Close()
}

// Addr returns the server's network address.
// If the server is not running, it returns nil.
func (s *Server) Addr() net.Addr {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}
