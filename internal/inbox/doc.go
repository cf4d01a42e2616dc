// Package inbox is the client-side chat store fed by the connection manager.
//
// It keeps the session list (most recent first), per-peer message history,
// the current chat and the total unread count. Inbound messages arrive
// through OnMessage; REST calls load and reconcile the rest.
package inbox
