package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ISOLayout is the timestamp layout used for locally generated createTime values.
// It matches the millisecond UTC form the server emits.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in ISOLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// -----------------------------------------------------------------------------
// Message Types
// -----------------------------------------------------------------------------

// ReadStatus is the read flag carried by a message.
type ReadStatus int

const (
	Unread ReadStatus = 0
	Read   ReadStatus = 1
)

// MessageType distinguishes user-to-user chat from AI chat.
type MessageType int

const (
	UserChat MessageType = 0
	AIChat   MessageType = 1
)

// ID is a message identifier. The server sends it either as a JSON number or
// a JSON string; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Message is the canonical chat message.
//
// Optional fields are pointers: a nil UnreadCount means the server did not
// send one, which is different from an unread count of zero.
type Message struct {
	ID            ID           `json:"id,omitempty"`
	SendUserID    int64        `json:"sendUserId"`
	ReceiveUserID int64        `json:"receiveUserId"`
	Content       string       `json:"content"`
	IsRead        *ReadStatus  `json:"isRead,omitempty"`
	IsAI          *MessageType `json:"isAi,omitempty"`
	CreateTime    string       `json:"createTime,omitempty"`
	UnreadCount   *int         `json:"unreadCount,omitempty"`
}

// Involves reports whether userID is the sender or the receiver.
func (m Message) Involves(userID int64) bool {
	return m.SendUserID == userID || m.ReceiveUserID == userID
}

// Peer returns the other party of the conversation as seen by userID.
func (m Message) Peer(userID int64) int64 {
	if m.ReceiveUserID == userID {
		return m.SendUserID
	}
	return m.ReceiveUserID
}

// Ping is the heartbeat probe sent while a connection is open.
type Ping struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// NewPing builds the liveness probe for userID.
func NewPing(userID string) Ping {
	return Ping{Type: "ping", UserID: userID}
}

// -----------------------------------------------------------------------------
// Session Types
// -----------------------------------------------------------------------------

// UserInfo is the public profile of a user.
type UserInfo struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
}

// ChatSession summarizes a conversation with one peer. UserInfo.ID is the peer's ID.
type ChatSession struct {
	UserInfo        UserInfo `json:"userInfo"`
	LastMessage     string   `json:"lastMessage"`
	LastMessageTime string   `json:"lastMessageTime"`
	UnreadCount     int      `json:"unreadCount"`
	IsOnline        bool     `json:"isOnline"`
}
