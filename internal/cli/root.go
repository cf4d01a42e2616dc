// Package cli provides the chatclient commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rickgao/chatlink/internal/config"
	"github.com/rickgao/chatlink/internal/logging"
)

var (
	// Global flags
	configPath string
	logLevel   string // --log-level flag (debug, info, warn, error)

	// Loaded configuration
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatclient",
	Short: "chatclient - a terminal client for the chat backend",
	Long: `chatclient talks to the chat backend over its REST API and keeps a
live WebSocket connection for incoming messages.

The connection is re-established with exponential backoff when it drops,
and a heartbeat keeps it alive while open.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that do not talk to the backend
		switch cmd.Name() {
		case "help", "completion", "version":
			return nil
		}

		if configPath != "" {
			loaded, err := config.LoadAndValidate(configPath)
			if err != nil {
				return fmt.Errorf("load configuration from %s: %w", configPath, err)
			}
			cfg = loaded
		} else {
			cfg = config.Default()
		}

		// --log-level overrides the configured level
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, logCloser = logging.New(cfg.Log, cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser == nil {
			return nil
		}
		err := logCloser.Close()
		logCloser = nil
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
}
