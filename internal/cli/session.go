package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rickgao/chatlink/internal/api"
	"github.com/rickgao/chatlink/internal/auth"
	"github.com/rickgao/chatlink/internal/config"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/version"
)

var errNoServer = errors.New("no server configured: pass --config with server.base_url")

// backend bundles the signed-in principal and the REST client built from config.
type backend struct {
	cfg    *config.Config
	auth   *auth.Store
	api    *api.Client
	logger *slog.Logger
}

// newBackend signs in with the configured session and builds the REST client.
func newBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg == nil || cfg.Server.BaseURL == "" {
		return nil, errNoServer
	}
	if logger == nil {
		logger = slog.Default()
	}

	token := cfg.Session.Token
	if token == "" && cfg.Session.TokenFile != "" {
		t, err := auth.LoadToken(cfg.Session.TokenFile)
		if err != nil {
			return nil, err
		}
		token = t
	}

	sess, err := auth.NewSession(cfg.Session.UserID, token)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	store := auth.NewStore()
	store.Login(sess)

	client := api.NewClient(
		cfg.Server.BaseURL,
		store,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
	)

	return &backend{cfg: cfg, auth: store, api: client, logger: logger}, nil
}

// header returns the WebSocket handshake headers.
func (b *backend) header() http.Header {
	h := b.auth.Header()
	h.Set("User-Agent", version.UserAgent())
	return h
}

// managerConfig maps the connection section onto the manager's settings.
func (b *backend) managerConfig() connection.ManagerConfig {
	cc := b.cfg.Connection
	return connection.ManagerConfig{
		URL:                  b.cfg.Server.WebSocketURL(),
		ReconnectBaseDelay:   cc.ReconnectBaseDelay,
		ReconnectMaxDelay:    cc.ReconnectMaxDelay,
		MaxReconnectAttempts: cc.MaxReconnectAttempts,
		HeartbeatInterval:    cc.HeartbeatInterval,
		ConnectTimeout:       cc.ConnectTimeout,
		WriteTimeout:         cc.WriteTimeout,
		BufferSize:           cc.BufferSize,
	}
}

// newManager builds the connection manager for the signed-in user.
func (b *backend) newManager(opts ...connection.Option) *connection.Manager {
	base := []connection.Option{
		connection.WithLogger(b.logger),
		connection.WithHeader(b.header()),
	}
	return connection.NewManager(b.managerConfig(), b.auth, append(base, opts...)...)
}
