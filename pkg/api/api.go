// Package api exposes the capture store and the replay capability over a
// small HTTP control surface consumed by driver scripts.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Svigo-o/PoCGen/pkg/capture"
	"github.com/Svigo-o/PoCGen/pkg/dispatch"
	"github.com/Svigo-o/PoCGen/pkg/logging"
)

// Server serves the control API. It owns no captures itself; it reads the
// store written by the interceptor and delegates replays to the dispatcher.
type Server struct {
	addr       string
	store      *capture.Store
	dispatcher dispatch.Dispatcher
	log        *slog.Logger
	version    string

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	startTime  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithVersion sets the version string reported by /status.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer creates a Server listening on addr once started.
// The dispatcher performs the actual network I/O for /replay_raw; tests
// inject a fake one.
func NewServer(addr string, store *capture.Store, dispatcher dispatch.Dispatcher, opts ...Option) *Server {
	s := &Server{
		addr:       addr,
		store:      store,
		dispatcher: dispatcher,
		log:        logging.Nop(),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.httpServer = &http.Server{
		Handler:           s.recoverMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the listener and begins serving in the background.
// It returns an error if the address cannot be bound or the server is
// already running.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("api server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.addr, err)
	}
	s.listener = ln
	s.startTime = time.Now()

	s.log.Info("control API listening", "addr", ln.Addr().String())
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("control API error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop closes the listener and waits for in-flight requests to complete,
// bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return nil
	}
	s.listener = nil
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// Uptime returns seconds since Start.
func (s *Server) Uptime() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return 0
	}
	return int(time.Since(s.startTime).Seconds())
}
