// Package stream owns the client-facing half of the watch bridge: the
// Server-Sent Events connection and the translation of watch events into
// client envelopes.
//
// # Contract
//
// A Stream is the sole writer of one SSE response and the sole authority on
// when that response is over. Its state machine is OPEN -> CLOSED; client
// abort, a write failure, and an explicit Close all lead to the same
// terminal state, and the registered cleanup callbacks run exactly once no
// matter which trigger fired or how the triggers race.
//
// Send is a no-op once the stream is closed. A heartbeat comment is written
// on a fixed timer solely to defeat idle-connection timeouts in
// intermediaries; a heartbeat write failure is treated identically to a
// client disconnect.
//
// The Translator is a pure mapping from a watch event to an Envelope. It
// preserves position ordering and propagates the error text for Error
// events. No buffering, no reordering.
//
// # Metrics
//
// The package exposes the following Prometheus metrics:
//   - dashboard_stream_connections (gauge): currently open SSE connections
//   - dashboard_stream_events_total (counter, labels: event): events written to clients
package stream
