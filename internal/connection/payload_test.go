package connection

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/chatlink/internal/model"
)

var decodeNow = time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC)

func TestDecode_NormalizesMessage(t *testing.T) {
	p := Decode([]byte(`{"sendUserId":"7","receiveUserId":9,"content":"hi"}`), decodeNow)

	require.Equal(t, PayloadMessage, p.Kind)
	assert.Equal(t, int64(7), p.Message.SendUserID)
	assert.Equal(t, int64(9), p.Message.ReceiveUserID)
	assert.Equal(t, "hi", p.Message.Content)
	assert.Equal(t, "2024-03-01T12:30:45.123Z", p.Message.CreateTime)
	assert.Nil(t, p.Message.IsRead)
	assert.Nil(t, p.Message.IsAI)
	assert.Nil(t, p.Message.UnreadCount, "absent unreadCount must stay absent")
}

func TestDecode_KeepsOptionalFields(t *testing.T) {
	data := `{"id":123,"sendUserId":1,"receiveUserId":2,"content":"x",` +
		`"isRead":1,"isAi":0,"unreadCount":0,"createTime":"2023-01-01T00:00:00.000Z"}`
	p := Decode([]byte(data), decodeNow)

	require.Equal(t, PayloadMessage, p.Kind)
	assert.Equal(t, model.ID("123"), p.Message.ID)
	require.NotNil(t, p.Message.IsRead)
	assert.Equal(t, model.Read, *p.Message.IsRead)
	require.NotNil(t, p.Message.IsAI)
	assert.Equal(t, model.UserChat, *p.Message.IsAI)
	require.NotNil(t, p.Message.UnreadCount)
	assert.Equal(t, 0, *p.Message.UnreadCount)
	assert.Equal(t, "2023-01-01T00:00:00.000Z", p.Message.CreateTime)
	assert.Equal(t, data, p.Raw)
}

func TestDecode_CreateTime(t *testing.T) {
	now := model.FormatTime(decodeNow)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"string", `{"createTime":"2023-01-01T00:00:00.000Z"}`, "2023-01-01T00:00:00.000Z"},
		{"epoch millis", `{"createTime":1700000000000}`, "1700000000000"},
		{"missing", `{}`, now},
		{"null", `{"createTime":null}`, now},
		{"empty", `{"createTime":""}`, now},
		{"zero", `{"createTime":0}`, now},
		{"false", `{"createTime":false}`, now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Decode([]byte(tt.in), decodeNow)
			require.Equal(t, PayloadMessage, p.Kind)
			assert.Equal(t, tt.want, p.Message.CreateTime)
		})
	}
}

func TestDecode_ContentAsText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"string", `{"content":"hi"}`, "hi"},
		{"number", `{"content":12.50}`, "12.50"},
		{"object", `{"content":{"a":1}}`, `{"a":1}`},
		{"null", `{"content":null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Decode([]byte(tt.in), decodeNow)
			require.Equal(t, PayloadMessage, p.Kind)
			assert.Equal(t, tt.want, p.Message.Content)
		})
	}
}

func TestDecode_IDCoercion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"number", `{"sendUserId":42}`, 42},
		{"numeric string", `{"sendUserId":"42"}`, 42},
		{"padded string", `{"sendUserId":" 42 "}`, 42},
		{"empty string", `{"sendUserId":""}`, 0},
		{"non-numeric", `{"sendUserId":"abc"}`, 0},
		{"missing", `{}`, 0},
		{"null", `{"sendUserId":null}`, 0},
		{"float", `{"sendUserId":3.0}`, 3},
		{"large", `{"sendUserId":9007199254740993}`, 9007199254740993},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Decode([]byte(tt.in), decodeNow)
			require.Equal(t, PayloadMessage, p.Kind)
			assert.Equal(t, tt.want, p.Message.SendUserID)
		})
	}
}

func TestDecode_NonObjectValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"number", `42`, json.Number("42")},
		{"string", `"pong"`, "pong"},
		{"null", `null`, nil},
		{"bool", `true`, true},
		{"array", `[1]`, []any{json.Number("1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Decode([]byte(tt.in), decodeNow)
			assert.Equal(t, PayloadValue, p.Kind)
			assert.Equal(t, tt.want, p.Value)
			assert.Equal(t, tt.in, p.Raw)
		})
	}
}

func TestDecode_MalformedIsRaw(t *testing.T) {
	tests := []string{
		`not json`,
		`{"content":`,
		`{"a":1} trailing`,
		`{"a":1}}`,
		``,
	}

	for _, in := range tests {
		p := Decode([]byte(in), decodeNow)
		assert.Equal(t, PayloadRaw, p.Kind, "input %q", in)
		assert.Equal(t, in, p.Raw)
	}
}

func TestDecode_AllowsSurroundingWhitespace(t *testing.T) {
	p := Decode([]byte("  {\"content\":\"x\"}\n"), decodeNow)
	assert.Equal(t, PayloadMessage, p.Kind)
	assert.Equal(t, "x", p.Message.Content)
}

func TestEncodeOutbound(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string passthrough", "raw text", "raw text"},
		{"bytes passthrough", []byte(`{"a":1}`), `{"a":1}`},
		{"raw message", json.RawMessage(`[1,2]`), `[1,2]`},
		{"struct", model.NewPing("5"), `{"type":"ping","userId":"5"}`},
		{"map", map[string]int{"n": 1}, `{"n":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeOutbound(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncodeOutbound_Unencodable(t *testing.T) {
	_, err := encodeOutbound(make(chan int))
	assert.Error(t, err)
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		base, user, want string
	}{
		{"ws://host/webSocket", "42", "ws://host/webSocket/42"},
		{"ws://host/webSocket/", "42", "ws://host/webSocket/42"},
		{"wss://host/ws", "a b", "wss://host/ws/a%20b"},
	}

	for _, tt := range tests {
		if got := Endpoint(tt.base, tt.user); got != tt.want {
			t.Errorf("Endpoint(%q, %q) = %q, want %q", tt.base, tt.user, got, tt.want)
		}
	}
}
