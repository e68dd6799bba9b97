// Package proxy provides the forward HTTP proxy that intercepts live traffic
// and feeds the capture store.
package proxy

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
	"github.com/Svigo-o/PoCGen/pkg/logging"
)

// DefaultMaxBodySize bounds the request body buffered for capture (10 MiB).
const DefaultMaxBodySize = 10 * 1024 * 1024

// Proxy intercepts plain HTTP proxy requests, records them into the capture
// store, and forwards them upstream. CONNECT requests are tunneled untouched
// and are not captured.
type Proxy struct {
	addr        string
	store       *capture.Store
	transport   http.RoundTripper
	log         *slog.Logger
	maxBodySize int64

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Proxy) {
		if log != nil {
			p.log = log
		}
	}
}

// WithTransport overrides the upstream RoundTripper. Tests use this to point
// the proxy at a fake upstream.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Proxy) {
		if rt != nil {
			p.transport = rt
		}
	}
}

// WithMaxBodySize bounds the captured request body size in bytes.
func WithMaxBodySize(n int64) Option {
	return func(p *Proxy) {
		if n > 0 {
			p.maxBodySize = n
		}
	}
}

// New creates a Proxy that listens on addr once started and records into
// store.
func New(addr string, store *capture.Store, opts ...Option) *Proxy {
	p := &Proxy{
		addr:        addr,
		store:       store,
		transport:   http.DefaultTransport,
		log:         logging.Nop(),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.httpServer = &http.Server{
		Handler: p,
		// No ReadTimeout: intercepted sessions may idle between requests.
	}
	return p
}

// Start binds the proxy listener and begins serving in the background.
func (p *Proxy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		return errors.New("proxy already running")
	}

	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", p.addr, err)
	}
	p.listener = ln

	p.log.Info("intercept proxy listening", "addr", ln.Addr().String())
	go func() {
		if err := p.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Error("intercept proxy error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (p *Proxy) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener != nil {
		return p.listener.Addr().String()
	}
	return p.addr
}

// Stop closes the listener; established tunnels are torn down with it.
func (p *Proxy) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.listener == nil {
		p.mu.Unlock()
		return nil
	}
	p.listener = nil
	p.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.httpServer.Shutdown(shutdownCtx)
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		p.handleConnect(w, r)
		return
	}
	p.handleHTTP(w, r)
}
