package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/chatlink/internal/auth"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/dispatch"
	"github.com/rickgao/chatlink/internal/model"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrNoActiveChat     = errors.New("no active chat")
	ErrNotSent          = errors.New("message not sent: connection is not open")
)

// noChat is the currentChatId reported when no chat is open.
const noChat int64 = -1

// Backend is the REST surface the store depends on. *api.Client satisfies it.
type Backend interface {
	GetChatSessionList(ctx context.Context) ([]model.ChatSession, error)
	GetUnreadMessageCount(ctx context.Context) (int, error)
	GetChatHistory(ctx context.Context, sendUserID, receiveUserID int64) ([]model.Message, error)
	UpdateCurrentChatSession(ctx context.Context, userID, currentChatID int64) error
	GetUserInfoByID(ctx context.Context, id int64) (*model.UserInfo, error)
}

// Sender writes outbound payloads. *connection.Manager satisfies it.
type Sender interface {
	Send(payload any) bool
}

// Principal reports the signed-in user. *auth.Store satisfies it.
type Principal interface {
	Current() (auth.Session, bool)
}

// Config holds store settings.
type Config struct {
	LookupTimeout time.Duration // Bound on a peer profile lookup
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{LookupTimeout: 10 * time.Second}
}

// Store is the chat store.
type Store struct {
	cfg     Config
	backend Backend
	sender  Sender
	user    Principal
	logger  *slog.Logger
	now     func() time.Time
	events  *dispatch.Registry[Event]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	sessions    []model.ChatSession // Most recent first
	messages    map[int64][]model.Message
	current     int64 // Peer of the open chat; 0 when none
	totalUnread int
	pending     map[int64][]model.Message // Messages from peers whose profile lookup is in flight
}

// New creates a Store. Call Stop to wait for in-flight lookups.
func New(cfg Config, backend Backend, sender Sender, user Principal, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		cfg:      cfg,
		backend:  backend,
		sender:   sender,
		user:     user,
		logger:   logger.With("component", "inbox"),
		now:      time.Now,
		events:   dispatch.NewRegistry[Event](),
		ctx:      ctx,
		cancel:   cancel,
		messages: make(map[int64][]model.Message),
		pending:  make(map[int64][]model.Message),
	}
}

// Stop cancels pending profile lookups and waits for them.
func (s *Store) Stop(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers l for store events.
func (s *Store) Subscribe(l dispatch.Listener[Event]) *dispatch.Handle {
	return s.events.Add(l)
}

// Unsubscribe removes a listener added with Subscribe.
func (s *Store) Unsubscribe(h *dispatch.Handle) bool {
	return s.events.Remove(h)
}

// OnMessage feeds manager payloads into the store. Non-message payloads are ignored.
func (s *Store) OnMessage(p connection.Payload) {
	if p.Kind != connection.PayloadMessage {
		s.logger.Debug("ignoring non-message payload", "kind", p.Kind)
		return
	}
	s.Receive(p.Message)
}

func (s *Store) userID() (int64, bool) {
	sess, ok := s.user.Current()
	if !ok {
		return 0, false
	}
	return sess.UserID, true
}

// Receive applies one inbound message.
func (s *Store) Receive(msg model.Message) {
	uid, ok := s.userID()
	if !ok || !msg.Involves(uid) {
		s.logger.Debug("ignoring message for another user",
			"send_user_id", msg.SendUserID,
			"receive_user_id", msg.ReceiveUserID,
		)
		return
	}

	peer := msg.Peer(uid)
	if msg.CreateTime == "" {
		msg.CreateTime = model.FormatTime(s.now())
	}

	s.mu.Lock()
	s.messages[peer] = append(s.messages[peer], msg)

	switch idx := s.indexLocked(peer); {
	case idx >= 0:
		s.applyLocked(idx, msg)
	case s.pending[peer] != nil:
		s.pending[peer] = append(s.pending[peer], msg)
	default:
		s.pending[peer] = []model.Message{msg}
		s.wg.Add(1)
		go s.createSession(peer)
	}
	s.mu.Unlock()

	s.events.Dispatch(Event{Kind: EventMessage, Peer: peer, Message: msg})
}

// applyLocked updates an existing session from msg and moves it to the top.
func (s *Store) applyLocked(idx int, msg model.Message) {
	sess := s.sessions[idx]
	sess.LastMessage = msg.Content
	sess.LastMessageTime = msg.CreateTime
	if msg.UnreadCount != nil {
		sess.UnreadCount = *msg.UnreadCount
	}

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	s.sessions = append([]model.ChatSession{sess}, s.sessions...)

	if msg.UnreadCount != nil {
		s.recomputeUnreadLocked()
	}
}

// createSession looks up the peer's profile and inserts a session for it.
func (s *Store) createSession(peer int64) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.LookupTimeout)
	info, err := s.backend.GetUserInfoByID(ctx, peer)
	cancel()

	profile := model.UserInfo{ID: peer}
	if err != nil {
		s.logger.Warn("peer profile lookup failed", "peer", peer, "error", err)
	} else if info != nil {
		profile.Nickname = info.Nickname
		profile.AvatarURL = info.AvatarURL
	}
	if profile.Nickname == "" {
		profile.Nickname = fmt.Sprintf("User %d", peer)
	}

	s.mu.Lock()
	msgs := s.pending[peer]
	delete(s.pending, peer)
	if len(msgs) == 0 {
		s.mu.Unlock()
		return
	}
	last := msgs[len(msgs)-1]

	// A session list load may have raced the lookup.
	if idx := s.indexLocked(peer); idx >= 0 {
		for _, m := range msgs {
			s.applyLocked(s.indexLocked(peer), m)
		}
		s.mu.Unlock()
		return
	}

	sess := model.ChatSession{
		UserInfo:        profile,
		LastMessage:     last.Content,
		LastMessageTime: last.CreateTime,
		UnreadCount:     initialUnread(msgs),
		IsOnline:        true,
	}
	s.sessions = append([]model.ChatSession{sess}, s.sessions...)
	s.recomputeUnreadLocked()
	s.mu.Unlock()

	s.logger.Info("chat session created", "peer", peer, "nickname", profile.Nickname)
	s.events.Dispatch(Event{Kind: EventSessionCreated, Peer: peer, Session: &sess})
}

// initialUnread prefers the server's count on the latest message and
// otherwise counts unread messages.
func initialUnread(msgs []model.Message) int {
	if n := msgs[len(msgs)-1].UnreadCount; n != nil {
		return *n
	}
	count := 0
	for _, m := range msgs {
		if m.IsRead != nil && *m.IsRead == model.Unread {
			count++
		}
	}
	return count
}

func (s *Store) indexLocked(peer int64) int {
	for i, sess := range s.sessions {
		if sess.UserInfo.ID == peer {
			return i
		}
	}
	return -1
}

func (s *Store) recomputeUnreadLocked() {
	total := 0
	for _, sess := range s.sessions {
		total += sess.UnreadCount
	}
	s.totalUnread = total
}

// LoadSessions replaces the session list and total unread count from the backend.
func (s *Store) LoadSessions(ctx context.Context) error {
	sessions, err := s.backend.GetChatSessionList(ctx)
	if err != nil {
		return fmt.Errorf("load chat sessions: %w", err)
	}

	s.mu.Lock()
	s.sessions = sessions
	s.recomputeUnreadLocked()
	s.mu.Unlock()

	s.events.Dispatch(Event{Kind: EventSessionsLoaded})

	if err := s.RefreshUnread(ctx); err != nil {
		return err
	}

	s.logger.Debug("chat sessions loaded", "count", len(sessions))
	return nil
}

// RefreshUnread sets the total unread count from the backend.
func (s *Store) RefreshUnread(ctx context.Context) error {
	n, err := s.backend.GetUnreadMessageCount(ctx)
	if err != nil {
		return fmt.Errorf("load unread count: %w", err)
	}

	s.mu.Lock()
	changed := s.totalUnread != n
	s.totalUnread = n
	s.mu.Unlock()

	if changed {
		s.events.Dispatch(Event{Kind: EventUnreadChanged, Unread: n})
	}
	return nil
}

// LoadHistory loads the conversation with peer, makes it the current chat and
// reports the change to the backend.
func (s *Store) LoadHistory(ctx context.Context, peer int64) ([]model.Message, error) {
	uid, ok := s.userID()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	msgs, err := s.backend.GetChatHistory(ctx, uid, peer)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	s.mu.Lock()
	s.messages[peer] = msgs
	s.current = peer
	s.mu.Unlock()

	if err := s.backend.UpdateCurrentChatSession(ctx, uid, peer); err != nil {
		s.logger.Warn("failed to report current chat", "peer", peer, "error", err)
	}

	return append([]model.Message(nil), msgs...), nil
}

// LeaveChat clears the current chat and reports it to the backend.
func (s *Store) LeaveChat(ctx context.Context) error {
	uid, ok := s.userID()
	if !ok {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	s.current = 0
	s.mu.Unlock()

	if err := s.backend.UpdateCurrentChatSession(ctx, uid, noChat); err != nil {
		return fmt.Errorf("leave chat: %w", err)
	}
	return nil
}

// SendToCurrent sends content to the current chat. The message is appended
// locally once the connection accepts it.
func (s *Store) SendToCurrent(content string) (model.Message, error) {
	uid, ok := s.userID()
	if !ok {
		return model.Message{}, ErrNotAuthenticated
	}

	s.mu.Lock()
	peer := s.current
	s.mu.Unlock()
	if peer == 0 {
		return model.Message{}, ErrNoActiveChat
	}

	msg := model.Message{
		SendUserID:    uid,
		ReceiveUserID: peer,
		Content:       content,
	}
	if !s.sender.Send(msg) {
		return model.Message{}, ErrNotSent
	}
	msg.CreateTime = model.FormatTime(s.now())

	s.mu.Lock()
	s.messages[peer] = append(s.messages[peer], msg)
	if idx := s.indexLocked(peer); idx >= 0 {
		s.applyLocked(idx, msg)
	}
	s.mu.Unlock()

	return msg, nil
}

// Sessions returns a copy of the session list, most recent first.
func (s *Store) Sessions() []model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatSession(nil), s.sessions...)
}

// Messages returns a copy of the local history with peer.
func (s *Store) Messages(peer int64) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.messages[peer]...)
}

// CurrentChat returns the peer of the open chat.
func (s *Store) CurrentChat() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != 0
}

// TotalUnread returns the total unread count.
func (s *Store) TotalUnread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalUnread
}
