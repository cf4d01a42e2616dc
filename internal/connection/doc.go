// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns one WebSocket connection to <ws url>/<user id>
//   - Runs the Disconnected → Connecting → Open → Closed → Reconnecting state machine
//   - Reconnects with exponential backoff (1s doubling, 30s cap, 5 attempts)
//   - Sends an application-level ping every 30s while open
//   - Decodes inbound payloads and fans them out to registered listeners
package connection
