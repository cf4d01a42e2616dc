package cli

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/rickgao/chatlink/internal/inbox"
	"github.com/rickgao/chatlink/internal/model"
)

// syncWriter serializes writes from the console, the event printer and the
// connection's exhausted handler, which run on different goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter {
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// printSessions writes one row per session, most recent first.
func printSessions(w io.Writer, sessions []model.ChatSession) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no chat sessions")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PEER\tNAME\tUNREAD\tLAST\tAT")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			s.UserInfo.ID, s.UserInfo.Nickname, s.UnreadCount, truncate(s.LastMessage, 40), s.LastMessageTime)
	}
	tw.Flush()
}

// printMessages writes a conversation as seen by self.
func printMessages(w io.Writer, self int64, msgs []model.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "no messages")
		return
	}
	for _, m := range msgs {
		fmt.Fprintln(w, formatMessage(self, m))
	}
}

func formatMessage(self int64, m model.Message) string {
	from := fmt.Sprintf("%d", m.SendUserID)
	if m.SendUserID == self {
		from = "me"
	}
	return fmt.Sprintf("[%s] %s: %s", m.CreateTime, from, m.Content)
}

// printEvent renders an inbox change for the interactive console.
func printEvent(w io.Writer, self int64, ev inbox.Event) {
	switch ev.Kind {
	case inbox.EventMessage:
		if ev.Message.SendUserID == self {
			return
		}
		fmt.Fprintln(w, formatMessage(self, ev.Message))
	case inbox.EventSessionCreated:
		if ev.Session != nil {
			fmt.Fprintf(w, "new chat with %s (%d)\n", ev.Session.UserInfo.Nickname, ev.Peer)
		}
	case inbox.EventUnreadChanged:
		fmt.Fprintf(w, "unread: %d\n", ev.Unread)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
