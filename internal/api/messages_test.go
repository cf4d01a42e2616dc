package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/chatlink/internal/model"
)

// newTestServer serves body for path and fails the test on any other path.
func newTestServer(t *testing.T, method, path, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			t.Errorf("method = %s, want %s", r.Method, method)
		}
		if r.URL.Path != path {
			t.Errorf("path = %s, want %s", r.URL.Path, path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetUnreadMessageCount(t *testing.T) {
	server := newTestServer(t, http.MethodGet, "/app/message/unread",
		`{"code":200,"message":"ok","data":5}`, nil)

	c := NewClient(server.URL, StaticToken("tok"))
	n, err := c.GetUnreadMessageCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestGetChatHistory(t *testing.T) {
	body := `{"code":200,"data":[
		{"id":1,"sendUserId":42,"receiveUserId":7,"content":"hi","isRead":1,"createTime":"2024-01-01T00:00:00.000Z"},
		{"id":"2","sendUserId":7,"receiveUserId":42,"content":"yo","isRead":0}
	]}`
	server := newTestServer(t, http.MethodGet, "/app/message/chat/history", body, func(r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("sendUserId"))
		assert.Equal(t, "7", r.URL.Query().Get("receiveUserId"))
	})

	c := NewClient(server.URL, nil)
	msgs, err := c.GetChatHistory(context.Background(), 42, 7)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, model.ID("1"), msgs[0].ID)
	assert.Equal(t, model.ID("2"), msgs[1].ID)
	require.NotNil(t, msgs[1].IsRead)
	assert.Equal(t, model.Unread, *msgs[1].IsRead)
}

func TestGetChatHistory_NullData(t *testing.T) {
	server := newTestServer(t, http.MethodGet, "/app/message/chat/history", `{"code":200,"data":null}`, nil)

	c := NewClient(server.URL, nil)
	msgs, err := c.GetChatHistory(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestGetChatSessionList(t *testing.T) {
	body := `{"code":200,"data":[{"userInfo":{"id":7,"nickname":"Ann","avatarUrl":"a.png"},
		"lastMessage":"hi","lastMessageTime":"2024-01-01T00:00:00.000Z","unreadCount":2,"isOnline":true}]}`
	server := newTestServer(t, http.MethodGet, "/app/message/sessions", body, nil)

	c := NewClient(server.URL, nil)
	sessions, err := c.GetChatSessionList(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(7), sessions[0].UserInfo.ID)
	assert.Equal(t, "Ann", sessions[0].UserInfo.Nickname)
	assert.Equal(t, 2, sessions[0].UnreadCount)
	assert.True(t, sessions[0].IsOnline)
}

func TestUpdateCurrentChatSession(t *testing.T) {
	server := newTestServer(t, http.MethodPost, "/app/message/updateCurrentChatId", `{"code":200,"data":null}`,
		func(r *http.Request) {
			assert.Equal(t, "42", r.URL.Query().Get("userId"))
			assert.Equal(t, "-1", r.URL.Query().Get("currentChatId"))
		})

	c := NewClient(server.URL, nil)
	require.NoError(t, c.UpdateCurrentChatSession(context.Background(), 42, NoChat))
}

func TestGetUserInfoByID(t *testing.T) {
	server := newTestServer(t, http.MethodGet, "/app/getInfo",
		`{"code":200,"data":{"id":9,"nickname":"Bo","avatarUrl":""}}`,
		func(r *http.Request) {
			assert.Equal(t, "9", r.URL.Query().Get("id"))
		})

	c := NewClient(server.URL, nil)
	info, err := c.GetUserInfoByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Bo", info.Nickname)
}

func TestGetUserInfo(t *testing.T) {
	server := newTestServer(t, http.MethodGet, "/app/info",
		`{"code":200,"data":{"id":42,"nickname":"Me"}}`, nil)

	c := NewClient(server.URL, nil)
	info, err := c.GetUserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.ID)
}

func TestResultError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    int
		wantExpired bool
	}{
		{"expired", `{"code":401,"message":"login expired"}`, 401, true},
		{"business error", `{"code":500,"message":"boom"}`, 500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, http.MethodGet, "/app/message/unread", tt.body, nil)

			c := NewClient(server.URL, nil)
			_, err := c.GetUnreadMessageCount(context.Background())

			var resErr *ResultError
			require.True(t, errors.As(err, &resErr), "expected *ResultError, got %T", err)
			assert.Equal(t, tt.wantCode, resErr.Code)
			assert.Equal(t, tt.wantExpired, resErr.Expired())
			assert.Equal(t, "/app/message/unread", resErr.Path)
		})
	}
}

func TestResult_MissingCodeIsSuccess(t *testing.T) {
	server := newTestServer(t, http.MethodGet, "/app/message/unread", `{"data":3}`, nil)

	c := NewClient(server.URL, nil)
	n, err := c.GetUnreadMessageCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestResult_InvalidJSON(t *testing.T) {
	server := newTestServer(t, http.MethodGet, "/app/message/unread", `<html>`, nil)

	c := NewClient(server.URL, nil)
	_, err := c.GetUnreadMessageCount(context.Background())
	assert.ErrorContains(t, err, "unmarshal response")
}
