package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// PayloadKind tells listeners which field of a Payload is populated.
type PayloadKind int

const (
	// PayloadMessage is a JSON object normalized into a model.Message.
	PayloadMessage PayloadKind = iota
	// PayloadValue is valid JSON that is not an object (number, string, array, null...).
	PayloadValue
	// PayloadRaw is text that failed to parse as JSON.
	PayloadRaw
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadMessage:
		return "message"
	case PayloadValue:
		return "value"
	case PayloadRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Payload is one decoded inbound frame.
type Payload struct {
	Kind    PayloadKind
	Message model.Message // PayloadMessage
	Value   any           // PayloadValue; numbers are json.Number
	Raw     string        // Original frame text, always set
}

// Decode parses an inbound frame. It never fails: text that is not JSON comes
// back as PayloadRaw. now supplies createTime when the frame has none.
func Decode(data []byte, now time.Time) Payload {
	raw := string(data)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Payload{Kind: PayloadRaw, Raw: raw}
	}
	// Trailing content means the frame as a whole is not a JSON document.
	if rest := bytes.TrimSpace(data[dec.InputOffset():]); len(rest) != 0 {
		return Payload{Kind: PayloadRaw, Raw: raw}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return Payload{Kind: PayloadValue, Value: v, Raw: raw}
	}

	return Payload{Kind: PayloadMessage, Message: normalize(obj, now), Raw: raw}
}

// normalize maps a decoded object onto the canonical message shape.
func normalize(obj map[string]any, now time.Time) model.Message {
	msg := model.Message{
		SendUserID:    toInt64(obj["sendUserId"]),
		ReceiveUserID: toInt64(obj["receiveUserId"]),
		Content:       toText(obj["content"]),
	}

	if id, ok := obj["id"]; ok && id != nil {
		msg.ID = model.ID(toText(id))
	}
	if n, ok := optionalInt(obj, "isRead"); ok {
		rs := model.ReadStatus(n)
		msg.IsRead = &rs
	}
	if n, ok := optionalInt(obj, "isAi"); ok {
		mt := model.MessageType(n)
		msg.IsAI = &mt
	}
	// Absent unreadCount must stay nil: zero is a real value.
	if n, ok := optionalInt(obj, "unreadCount"); ok {
		msg.UnreadCount = &n
	}

	if ct := obj["createTime"]; isSet(ct) {
		msg.CreateTime = toText(ct)
	} else {
		msg.CreateTime = model.FormatTime(now)
	}

	return msg
}

// toInt64 coerces a JSON value to an integer ID. Values with no numeric
// reading (missing, non-numeric text, objects) become 0.
func toInt64(v any) int64 {
	switch x := v.(type) {
	case json.Number:
		return numberToInt64(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		return numberToInt64(s)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func numberToInt64(s string) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// optionalInt returns the integer value of key when it is present and numeric.
func optionalInt(obj map[string]any, key string) (int, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case json.Number:
		return int(numberToInt64(string(x))), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n, true
		}
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// isSet reports whether v carries a value: not null, empty, false or zero.
func isSet(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// toText renders a JSON value as text. Strings pass through; numbers keep
// their literal form; other values are re-encoded as JSON.
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

// encodeOutbound renders a Send payload. Text is passed through unchanged;
// anything else is JSON-encoded.
func encodeOutbound(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		return data, nil
	}
}
