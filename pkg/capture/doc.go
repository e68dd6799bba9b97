// Package capture provides the bounded, insertion-ordered store of
// intercepted HTTP requests.
//
// Records are immutable once inserted. The store enforces a fixed capacity
// with FIFO eviction: when an insert would exceed capacity, the oldest record
// is dropped in the same critical section. Record IDs are assigned by the
// store, strictly increase, and are never reused even after eviction, so a
// client holding an evicted ID gets a clean not-found instead of someone
// else's traffic.
//
// This is a leaf package with no internal dependencies. The proxy interceptor
// writes into it and the API server reads from it concurrently; all access is
// serialized through a single lock per operation.
package capture
