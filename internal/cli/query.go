package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var historyCmd = &cobra.Command{
	Use:   "history <peer-id>",
	Short: "Show the conversation with a peer",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show the total unread message count",
	Args:  cobra.NoArgs,
	RunE:  runUnread,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(unreadCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	b, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	sessions, err := b.api.GetChatSessionList(cmd.Context())
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	printSessions(cmd.OutOrStdout(), sessions)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	peer, err := parsePeer(args[0])
	if err != nil {
		return err
	}

	b, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	self := b.cfg.Session.UserID
	msgs, err := b.api.GetChatHistory(cmd.Context(), self, peer)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	printMessages(cmd.OutOrStdout(), self, msgs)
	return nil
}

func runUnread(cmd *cobra.Command, args []string) error {
	b, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	n, err := b.api.GetUnreadMessageCount(cmd.Context())
	if err != nil {
		return fmt.Errorf("get unread count: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}

func parsePeer(s string) (int64, error) {
	peer, err := strconv.ParseInt(s, 10, 64)
	if err != nil || peer <= 0 {
		return 0, fmt.Errorf("invalid peer id %q", s)
	}
	return peer, nil
}
