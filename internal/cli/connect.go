package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/dispatch"
	"github.com/rickgao/chatlink/internal/inbox"
	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/poller"
)

const shutdownTimeout = 5 * time.Second

// errQuit ends the interactive loop without reporting an error.
var errQuit = errors.New("quit")

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open a live chat session",
	Long: `Connect to the chat backend and print incoming messages as they arrive.

Type a line to send it to the open chat. Commands:
  /to <peer-id>   open the chat with a peer and show its history
  /sessions       refresh and list chat sessions
  /history        show the open chat again
  /leave          close the open chat
  /status         show connection state and unread count
  /reconnect      reconnect after the connection gave up
  /quit           exit`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	b, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := newSyncWriter(cmd.OutOrStdout())
	self := b.cfg.Session.UserID

	mgr := b.newManager(connection.WithExhaustedHandler(func(err error) {
		fmt.Fprintf(out, "connection lost: %v (use /reconnect)\n", err)
	}))

	box := inbox.New(inbox.Config{LookupTimeout: b.cfg.Inbox.LookupTimeout}, b.api, mgr, b.auth, logger)
	box.Subscribe(dispatch.ListenerFunc[inbox.Event](func(ev inbox.Event) {
		printEvent(out, self, ev)
	}))

	// Profile lookups and printing run off the socket reader.
	feed := dispatch.NewBuffered[connection.Payload](box, b.cfg.Connection.BufferSize)
	handle := mgr.Register(feed)

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := mgr.Stop(stopCtx); err != nil {
			logger.Warn("connection manager did not stop cleanly", "error", err)
		}
		mgr.Unregister(handle)
		feed.Close()
		if err := box.Stop(stopCtx); err != nil {
			logger.Warn("inbox did not stop cleanly", "error", err)
		}
	}()

	if err := mgr.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	poll := poller.New(poller.Config{
		Interval:    b.cfg.Inbox.PollInterval,
		Concurrency: 2,
		Timeout:     b.cfg.API.Timeout,
	}, []poller.Task{
		{Name: "sessions", Run: box.LoadSessions},
		{Name: "unread", Run: box.RefreshUnread},
	}, logger)

	con := &console{chat: box, conn: mgr, self: self, out: out}
	lines := scanLines(cmd.InOrStdin())

	fmt.Fprintf(out, "connected as %d, type /help for commands\n", self)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := poll.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return poll.Stop(stopCtx)
	})
	g.Go(func() error {
		return con.run(gctx, lines)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

// scanLines feeds input lines to a channel that is closed at EOF.
func scanLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

// chat is the inbox surface the console drives. *inbox.Store satisfies it.
type chat interface {
	LoadSessions(ctx context.Context) error
	Sessions() []model.ChatSession
	LoadHistory(ctx context.Context, peer int64) ([]model.Message, error)
	Messages(peer int64) []model.Message
	LeaveChat(ctx context.Context) error
	CurrentChat() (int64, bool)
	SendToCurrent(content string) (model.Message, error)
	TotalUnread() int
}

// link is the connection surface the console drives. *connection.Manager satisfies it.
type link interface {
	State() connection.State
	Connect() error
}

// console interprets interactive input.
type console struct {
	chat chat
	conn link
	self int64
	out  io.Writer
}

// run handles lines until ctx is done, input ends, or the user quits.
func (c *console) run(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := c.handle(ctx, line); err != nil {
				return err
			}
		}
	}
}

// handle executes one input line. Only errQuit is returned; other failures are printed.
func (c *console) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if !strings.HasPrefix(line, "/") {
		c.send(line)
		return nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return errQuit
	case "/help", "/h", "/?":
		fmt.Fprintln(c.out, "commands: /to <peer-id>, /sessions, /history, /leave, /status, /reconnect, /quit")
	case "/to":
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "usage: /to <peer-id>")
			return nil
		}
		c.open(ctx, fields[1])
	case "/sessions":
		if err := c.chat.LoadSessions(ctx); err != nil {
			fmt.Fprintf(c.out, "could not refresh sessions: %v\n", err)
		}
		printSessions(c.out, c.chat.Sessions())
	case "/history":
		peer, ok := c.chat.CurrentChat()
		if !ok {
			fmt.Fprintln(c.out, "no chat open, use /to <peer-id>")
			return nil
		}
		printMessages(c.out, c.self, c.chat.Messages(peer))
	case "/leave":
		if err := c.chat.LeaveChat(ctx); err != nil {
			fmt.Fprintf(c.out, "leave chat: %v\n", err)
		}
	case "/status":
		peer, _ := c.chat.CurrentChat()
		fmt.Fprintf(c.out, "connection: %s, unread: %d, chat: %d\n", c.conn.State(), c.chat.TotalUnread(), peer)
	case "/reconnect":
		if err := c.conn.Connect(); err != nil {
			fmt.Fprintf(c.out, "reconnect: %v\n", err)
		}
	default:
		fmt.Fprintf(c.out, "unknown command: %s (use /help)\n", fields[0])
	}
	return nil
}

func (c *console) open(ctx context.Context, arg string) {
	peer, err := parsePeer(arg)
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}

	msgs, err := c.chat.LoadHistory(ctx, peer)
	if err != nil {
		fmt.Fprintf(c.out, "open chat: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "chatting with %d\n", peer)
	printMessages(c.out, c.self, msgs)
}

func (c *console) send(content string) {
	_, err := c.chat.SendToCurrent(content)
	switch {
	case err == nil:
	case errors.Is(err, inbox.ErrNoActiveChat):
		fmt.Fprintln(c.out, "no chat open, use /to <peer-id>")
	case errors.Is(err, inbox.ErrNotSent):
		fmt.Fprintf(c.out, "not sent: connection is %s\n", c.conn.State())
	default:
		fmt.Fprintf(c.out, "send: %v\n", err)
	}
}
