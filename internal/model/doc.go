// Package model defines shared data types used across the chat client.
//
// Conventions:
//   - User IDs: int64 (the server sends them as numbers or numeric strings)
//   - Message IDs: opaque strings (the server sends them as numbers or strings)
//   - Timestamps: ISO-8601 strings as produced by the server, UTC when generated locally
package model
