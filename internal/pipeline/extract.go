package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/reader"
)

// Query selects messages for Extract. Zero fields match everything.
type Query struct {
	Date     model.Date
	Text     string // case-insensitive substring of the message
	Model    string // case-insensitive substring of the model id
	Markdown bool   // render Text() as markdown instead of plain text
}

// Message is one extracted message, already sanitized.
type Message struct {
	At      time.Time  `json:"at"`
	Role    model.Role `json:"role"`
	Model   string     `json:"model,omitempty"`
	Session string     `json:"session,omitempty"`
	Text    string     `json:"text"`
}

// Extraction is the result of Extract.
type Extraction struct {
	Query    Query     `json:"-"`
	Messages []Message `json:"messages"`
}

func (Extraction) Kind() string { return "extract" }

func (e Extraction) Text() string {
	if len(e.Messages) == 0 {
		return "No matching messages."
	}
	var b strings.Builder
	if e.Query.Markdown {
		day := ""
		for _, m := range e.Messages {
			if d := model.DateOf(m.At).String(); d != day {
				day = d
				fmt.Fprintf(&b, "## %s\n\n", d)
			}
			fmt.Fprintf(&b, "**%s** %s", m.Role, m.At.Format("15:04"))
			if m.Model != "" {
				fmt.Fprintf(&b, " _(%s)_", m.Model)
			}
			fmt.Fprintf(&b, "\n\n%s\n\n", m.Text)
		}
		return strings.TrimRight(b.String(), "\n")
	}
	for i, m := range e.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s", m.At.Format("2006-01-02 15:04"), strings.ToUpper(string(m.Role)))
		if m.Model != "" {
			fmt.Fprintf(&b, " (%s)", m.Model)
		}
		fmt.Fprintf(&b, ": %s\n", m.Text)
	}
	return b.String()
}

func (q Query) match(ev model.Event) bool {
	if ev.RawContent == "" {
		return false
	}
	if !q.Date.IsZero() && model.DateOf(ev.Timestamp) != q.Date {
		return false
	}
	if q.Model != "" && !strings.Contains(strings.ToLower(ev.ModelID), strings.ToLower(q.Model)) {
		return false
	}
	if q.Text != "" && !strings.Contains(strings.ToLower(ev.RawContent), strings.ToLower(q.Text)) {
		return false
	}
	return true
}

// Extract returns the messages matching q in time order. Session files are
// streamed one at a time rather than scanned whole. The query text is
// matched against raw content, but only sanitized text is returned.
func (p *Pipeline) Extract(ctx context.Context, q Query) (Extraction, error) {
	files, err := reader.FindSessionFiles(p.cfg.SessionsDir)
	if err != nil {
		return Extraction{}, fmt.Errorf("pipeline scan: %w", err)
	}
	ex := Extraction{Query: q}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return Extraction{}, err
		}
		for ev := range p.reader.Events(f.Path) {
			if !q.match(ev) {
				continue
			}
			ex.Messages = append(ex.Messages, Message{
				At:      ev.Timestamp,
				Role:    ev.Role,
				Model:   ev.ModelID,
				Session: ev.SessionID,
				Text:    p.san.Sanitize(ev.RawContent),
			})
		}
	}
	slices.SortStableFunc(ex.Messages, func(a, b Message) int {
		return a.At.Compare(b.At)
	})
	return ex, p.emit(ctx, ex)
}
