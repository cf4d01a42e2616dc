// Package dispatch implements the listener fan-out used by the Connection Manager.
//
// A Registry holds listeners in registration order and delivers every payload to
// each of them synchronously. Buffered wraps a listener with an unbounded queue and
// a delivery goroutine for consumers that must not stall the socket reader.
package dispatch
