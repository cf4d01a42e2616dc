// Package poller runs periodic reconciliation tasks.
//
// Pushed WebSocket messages can be missed while the connection is down, so the
// client re-reads the session list and unread count from the REST API:
//   - Once on start, then every poll interval
//   - Tasks run in parallel with bounded concurrency
//   - A failing task is logged and retried on the next cycle
package poller
