package inbox

import "github.com/rickgao/chatlink/internal/model"

// EventKind identifies a store change.
type EventKind int

const (
	EventMessage EventKind = iota
	EventSessionCreated
	EventSessionsLoaded
	EventUnreadChanged
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventSessionCreated:
		return "session_created"
	case EventSessionsLoaded:
		return "sessions_loaded"
	case EventUnreadChanged:
		return "unread_changed"
	default:
		return "unknown"
	}
}

// Event describes a change to the store.
type Event struct {
	Kind    EventKind
	Peer    int64
	Message model.Message      // EventMessage
	Session *model.ChatSession // EventSessionCreated
	Unread  int                // EventUnreadChanged
}
