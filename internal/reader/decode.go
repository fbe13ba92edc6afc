package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/crimson-sun/daybook/internal/model"
)

var (
	// ErrMalformedLine marks a line that is not a well-formed record.
	ErrMalformedLine = errors.New("reader: malformed line")
	// ErrMissingTimestamp marks a record without a usable timestamp.
	ErrMissingTimestamp = errors.New("reader: missing timestamp")
)

// Kind is the kind of record a line decoded to.
type Kind int

const (
	KindIgnored Kind = iota
	KindSession
	KindModel
	KindEvent
	KindCompaction
)

// Item is one decoded line.
type Item struct {
	Kind       Kind
	Event      model.Event
	Compaction model.Compaction
}

type rawRecord struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Timestamp  json.RawMessage `json:"timestamp"`
	Message    *rawMessage     `json:"message"`
	Provider   string          `json:"provider"`
	ModelID    string          `json:"modelId"`
	CustomType string          `json:"customType"`
	Data       *rawModel       `json:"data"`
	Summary    string          `json:"summary"`
}

type rawMessage struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Model     string          `json:"model"`
	Provider  string          `json:"provider"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type rawModel struct {
	Provider string `json:"provider"`
	ModelID  string `json:"modelId"`
}

type rawBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	Content  json.RawMessage `json:"content"`
}

// Decoder turns session log lines into events. It carries per-file state:
// the session ID and the model announced by the last model record.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	loc       *time.Location
	sessionID string
	model     string
	provider  string
	seq       int
}

// NewDecoder returns a Decoder for one session file. sessionID is used until
// a session record names another one; loc is the zone events are grouped in.
func NewDecoder(sessionID string, loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.Local
	}
	return &Decoder{loc: loc, sessionID: sessionID}
}

// SessionID returns the current session ID.
func (d *Decoder) SessionID() string { return d.sessionID }

// Decode parses one line. Lines that are not records this reader knows are
// returned as KindIgnored with a nil error.
func (d *Decoder) Decode(line []byte) (Item, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Item{}, nil
	}
	var rec rawRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	switch rec.Type {
	case "session":
		if rec.ID != "" {
			d.sessionID = rec.ID
		}
		return Item{Kind: KindSession}, nil
	case "model_change", "model-snapshot":
		d.setModel(rec.Provider, rec.ModelID)
		return Item{Kind: KindModel}, nil
	case "custom":
		if rec.CustomType == "model-snapshot" && rec.Data != nil {
			d.setModel(rec.Data.Provider, rec.Data.ModelID)
			return Item{Kind: KindModel}, nil
		}
		return Item{}, nil
	case "compaction":
		ts, err := d.timestamp(rec.Timestamp)
		if err != nil {
			return Item{}, err
		}
		return Item{Kind: KindCompaction, Compaction: model.Compaction{
			Timestamp: ts,
			SessionID: d.sessionID,
			Summary:   rec.Summary,
		}}, nil
	case "message":
		return d.message(&rec)
	default:
		return Item{}, nil
	}
}

func (d *Decoder) setModel(provider, id string) {
	if id == "" {
		return
	}
	d.model = id
	d.provider = provider
}

func (d *Decoder) message(rec *rawRecord) (Item, error) {
	if rec.Message == nil {
		return Item{}, fmt.Errorf("%w: message record without message", ErrMalformedLine)
	}
	raw := rec.Timestamp
	if isAbsent(raw) {
		raw = rec.Message.Timestamp
	}
	ts, err := d.timestamp(raw)
	if err != nil {
		return Item{}, err
	}

	ev := model.Event{
		Timestamp: ts,
		Role:      model.ParseRole(rec.Message.Role),
		SessionID: d.sessionID,
		Seq:       d.seq,
	}
	d.seq++
	if err := fillContent(&ev, rec.Message.Content); err != nil {
		return Item{}, err
	}
	if ev.Role == model.RoleAssistant {
		ev.ModelID, ev.Provider = rec.Message.Model, rec.Message.Provider
		if ev.ModelID == "" {
			ev.ModelID, ev.Provider = d.model, d.provider
		} else {
			d.setModel(ev.Provider, ev.ModelID)
		}
	}
	return Item{Kind: KindEvent, Event: ev}, nil
}

// fillContent extracts text from a string or an array of content blocks.
func fillContent(ev *model.Event, raw json.RawMessage) error {
	if isAbsent(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		ev.RawContent = s
		return nil
	}
	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return fmt.Errorf("%w: content: %v", ErrMalformedLine, err)
	}
	var parts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		case "toolCall", "tool_use", "tool_call", "function_call":
			ev.HasToolCalls = true
		case "thinking", "reasoning":
			ev.HasThinking = true
		case "toolResult", "tool_result":
			if b.Text != "" {
				parts = append(parts, b.Text)
			} else if !isAbsent(b.Content) {
				var inner string
				if json.Unmarshal(b.Content, &inner) == nil && inner != "" {
					parts = append(parts, inner)
				}
			}
		}
	}
	ev.RawContent = strings.Join(parts, "\n")
	return nil
}

// timestamp parses an epoch-millisecond number or an RFC 3339 string and
// returns it in the decoder's zone. Epoch values are UTC.
func (d *Decoder) timestamp(raw json.RawMessage) (time.Time, error) {
	if isAbsent(raw) {
		return time.Time{}, ErrMissingTimestamp
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return time.Time{}, ErrMissingTimestamp
		}
		t, err := parseTimeString(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrMissingTimestamp, err)
		}
		return t.In(d.loc), nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil || ms <= 0 || math.IsInf(ms, 0) {
		return time.Time{}, ErrMissingTimestamp
	}
	return time.UnixMilli(int64(ms)).UTC().In(d.loc), nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimeString accepts RFC 3339. Strings without an offset are UTC.
func parseTimeString(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	var err error
	for _, layout := range naiveLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
