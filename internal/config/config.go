package config

import (
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for a chat client.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Session    SessionConfig    `yaml:"session"`
	Connection ConnectionConfig `yaml:"connection"`
	API        APIConfig        `yaml:"api"`
	Inbox      InboxConfig      `yaml:"inbox"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig locates the chat backend.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"` // REST base, e.g. https://chat.example.com
	WSURL   string `yaml:"ws_url"`   // Explicit WebSocket base; derived from BaseURL when empty
	WSPath  string `yaml:"ws_path"`  // Appended to the derived WebSocket base
}

// SessionConfig identifies the signed-in user.
type SessionConfig struct {
	UserID    int64  `yaml:"user_id"`
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"` // Read when Token is empty
}

// ConnectionConfig holds WebSocket connection manager settings.
type ConnectionConfig struct {
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
}

// APIConfig holds REST client settings.
type APIConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	RateLimit    float64       `yaml:"rate_limit"` // Requests per second
	RateBurst    int           `yaml:"rate_burst"`
}

// InboxConfig holds chat store settings.
type InboxConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`  // Session/unread reconciliation cadence
	LookupTimeout time.Duration `yaml:"lookup_timeout"` // Bound on a peer profile lookup
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"` // Rotated log file; console only when empty
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// WebSocketURL returns the WebSocket base address. The user ID is appended
// per connection.
func (s ServerConfig) WebSocketURL() string {
	if s.WSURL != "" {
		return strings.TrimRight(s.WSURL, "/")
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(s.WSPath, "/")
	return strings.TrimRight(u.String(), "/")
}
