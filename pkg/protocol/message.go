package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rhinci/Morskoy-boy/pkg"
)

// Kind is the message type tag as it appears on the wire.
type Kind string

const (
	KindConnect    Kind = pkg.Connect
	KindStartGame  Kind = pkg.StartGame
	KindShot       Kind = pkg.Shot
	KindShotResult Kind = pkg.ShotResult
	KindGameOver   Kind = pkg.GameOver
	KindChat       Kind = pkg.Chat
)

var knownKinds = map[Kind]bool{
	KindConnect:    true,
	KindStartGame:  true,
	KindShot:       true,
	KindShotResult: true,
	KindGameOver:   true,
	KindChat:       true,
}

// Valid reports whether k belongs to the tag vocabulary.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownKind = errors.New("unknown message type")
)

// Message is the envelope exchanged between peers. Data is a flat map whose
// values are ints, bools or strings.
type Message struct {
	Type      Kind           `json:"type"`
	Data      map[string]any `json:"data"`
	Sender    string         `json:"sender"`
	Timestamp time.Time      `json:"timestamp"`
}

func New(kind Kind, sender string) Message {
	return Message{
		Type:      kind,
		Data:      make(map[string]any),
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// Set adds a payload value. Only int, bool and string values are kept.
func (m *Message) Set(key string, value any) {
	if m.Data == nil {
		m.Data = make(map[string]any)
	}
	switch v := value.(type) {
	case int, bool, string:
		m.Data[key] = v
	case int64:
		m.Data[key] = int(v)
	case fmt.Stringer:
		m.Data[key] = v.String()
	}
}

func (m *Message) Has(key string) bool {
	_, ok := m.Data[key]
	return ok
}

// GetInt returns the value under key as an int, or def when it is missing
// or cannot be converted.
func (m *Message) GetInt(key string, def int) int {
	v, ok := m.Data[key]
	if !ok {
		return def
	}
	switch value := v.(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return int(i)
		}
		if f, err := value.Float64(); err == nil {
			return int(f)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return def
}

func (m *Message) GetBool(key string, def bool) bool {
	v, ok := m.Data[key]
	if !ok {
		return def
	}
	switch value := v.(type) {
	case bool:
		return value
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return def
}

func (m *Message) GetString(key string, def string) string {
	v, ok := m.Data[key]
	if !ok || v == nil {
		return def
	}
	switch value := v.(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	case int, int64, float64, bool:
		return fmt.Sprint(value)
	}
	return def
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s from %s", m.Timestamp.Format("15:04:05"), m.Type, m.Sender)
}

// Marshal encodes m as a single line of compact JSON without the trailing
// delimiter.
func Marshal(m Message) ([]byte, error) {
	if m.Data == nil {
		m.Data = map[string]any{}
	}
	return json.Marshal(m)
}

type rawMessage struct {
	Type      Kind            `json:"type"`
	Data      map[string]any  `json:"data"`
	Sender    string          `json:"sender"`
	Timestamp json.RawMessage `json:"timestamp"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

// Unmarshal decodes one frame. Numbers are kept as json.Number so integer
// payload values survive the round trip. A timestamp that cannot be parsed is
// left as the zero time.
func Unmarshal(b []byte) (Message, error) {
	var raw rawMessage
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !raw.Type.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, raw.Type)
	}
	if raw.Data == nil {
		raw.Data = map[string]any{}
	}

	m := Message{Type: raw.Type, Data: raw.Data, Sender: raw.Sender}
	var ts string
	if err := json.Unmarshal(raw.Timestamp, &ts); err == nil {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				m.Timestamp = t
				break
			}
		}
	}
	return m, nil
}
