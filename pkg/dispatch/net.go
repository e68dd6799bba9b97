package dispatch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Svigo-o/PoCGen/pkg/logging"
)

// DefaultTimeout bounds a whole dispatch (dial, write, read) when the caller's
// context carries no earlier deadline.
const DefaultTimeout = 30 * time.Second

// NetDispatcher replays raw bytes over a plain TCP or TLS connection.
// The bytes are written exactly as supplied and the response is read until the
// remote closes the connection or the deadline expires.
type NetDispatcher struct {
	timeout  time.Duration
	insecure bool
	log      *slog.Logger
}

// NetOption configures a NetDispatcher.
type NetOption func(*NetDispatcher)

// WithTimeout sets the per-dispatch deadline.
func WithTimeout(d time.Duration) NetOption {
	return func(n *NetDispatcher) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithInsecureTLS skips certificate verification on secure dispatches.
// Intercepted targets frequently sit behind self-signed certificates.
func WithInsecureTLS(insecure bool) NetOption {
	return func(n *NetDispatcher) {
		n.insecure = insecure
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) NetOption {
	return func(n *NetDispatcher) {
		if log != nil {
			n.log = log
		}
	}
}

// NewNetDispatcher creates a NetDispatcher with the given options.
func NewNetDispatcher(opts ...NetOption) *NetDispatcher {
	n := &NetDispatcher{
		timeout: DefaultTimeout,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Dispatch implements Dispatcher.
func (n *NetDispatcher) Dispatch(ctx context.Context, host string, port int, secure bool, raw []byte) ([]byte, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	deadline := time.Now().Add(n.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := n.dial(ctx, addr, host, secure)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if _, err := conn.Write(raw); err != nil {
		return nil, fmt.Errorf("write to %s: %w", addr, err)
	}

	n.log.Debug("dispatched raw request", "addr", addr, "https", secure, "bytes", len(raw))

	resp, err := io.ReadAll(conn)
	if err != nil {
		// Servers that keep the connection open never send EOF; the deadline
		// marks the end of the response once some bytes have arrived.
		if len(resp) > 0 && (errors.Is(err, os.ErrDeadlineExceeded) || isTimeout(err)) {
			return resp, nil
		}
		return nil, fmt.Errorf("read from %s: %w", addr, err)
	}
	return resp, nil
}

func (n *NetDispatcher) dial(ctx context.Context, addr, serverName string, secure bool) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: n.timeout}
	if !secure {
		return dialer.DialContext(ctx, "tcp", addr)
	}
	tlsDialer := &tls.Dialer{
		NetDialer: dialer,
		Config: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: n.insecure, //nolint:gosec // operator-controlled replay target
		},
	}
	return tlsDialer.DialContext(ctx, "tcp", addr)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
