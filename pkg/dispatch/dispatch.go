// Package dispatch sends raw request bytes to a destination and collects the
// raw response bytes. It is the only network egress the controller performs
// for replay.
package dispatch

import "context"

// Dispatcher performs one replay: it delivers raw request bytes to host:port
// and returns the raw response bytes, verbatim in both directions.
// Implementations must not retry and must not interpret the payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, host string, port int, secure bool, raw []byte) ([]byte, error)
}

// Func adapts a function to the Dispatcher interface.
type Func func(ctx context.Context, host string, port int, secure bool, raw []byte) ([]byte, error)

// Dispatch calls f.
func (f Func) Dispatch(ctx context.Context, host string, port int, secure bool, raw []byte) ([]byte, error) {
	return f(ctx, host, port, secure, raw)
}
