package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rickgao/chatlink/internal/model"
)

// NoChat is the currentChatId value meaning the user left the chat view.
const NoChat int64 = -1

// GetUnreadMessageCount returns the signed-in user's total unread count.
func (c *Client) GetUnreadMessageCount(ctx context.Context) (int, error) {
	return get[int](ctx, c, "/app/message/unread", nil)
}

// GetChatHistory returns the conversation between two users, oldest first.
func (c *Client) GetChatHistory(ctx context.Context, sendUserID, receiveUserID int64) ([]model.Message, error) {
	query := url.Values{}
	query.Set("sendUserId", strconv.FormatInt(sendUserID, 10))
	query.Set("receiveUserId", strconv.FormatInt(receiveUserID, 10))

	msgs, err := get[[]model.Message](ctx, c, "/app/message/chat/history", query)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// GetChatSessionList returns the signed-in user's chat sessions.
func (c *Client) GetChatSessionList(ctx context.Context) ([]model.ChatSession, error) {
	sessions, err := get[[]model.ChatSession](ctx, c, "/app/message/sessions", nil)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	return sessions, nil
}

// UpdateCurrentChatSession tells the backend which peer userID is viewing.
// Pass NoChat when the user leaves the conversation.
func (c *Client) UpdateCurrentChatSession(ctx context.Context, userID, currentChatID int64) error {
	query := url.Values{}
	query.Set("userId", strconv.FormatInt(userID, 10))
	query.Set("currentChatId", strconv.FormatInt(currentChatID, 10))

	_, err := post[any](ctx, c, "/app/message/updateCurrentChatId", query)
	return err
}
