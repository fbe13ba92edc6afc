package compose

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/transitions"
)

// maxFlow caps the Session Flow section.
const maxFlow = 40

// summaryLen caps each Context Summary excerpt, in runes.
const summaryLen = 1500

// sanitizedDay holds a day's free text after redaction. Every section is
// built from these strings, never from raw event content.
type sanitizedDay struct {
	user      []string
	assistant []string
	flow      []flowItem
	summaries []string
}

func (c *Composer) sanitizeDay(day model.DayActivity) sanitizedDay {
	var sd sanitizedDay
	for _, ev := range day.Events {
		text := strings.TrimSpace(ev.RawContent)
		if text == "" {
			continue
		}
		clean := defuse(c.san.Sanitize(text))
		switch ev.Role {
		case model.RoleUser:
			sd.user = append(sd.user, clean)
			sd.flow = append(sd.flow, flowItem{At: ev.Timestamp, Text: firstLine(clean, flowExcerptLen)})
		case model.RoleAssistant:
			sd.assistant = append(sd.assistant, clean)
		}
	}
	for _, cp := range day.Compactions {
		if s := strings.TrimSpace(cp.Summary); s != "" {
			sd.summaries = append(sd.summaries, truncate(defuse(c.san.Sanitize(s)), summaryLen, "..."))
		}
	}
	return sd
}

// Render builds the generated region for a day: header, marker line, the
// content sections and the footer marker. ts are the day's transitions,
// whose context is already sanitized; it is sanitized again here.
func (c *Composer) Render(day model.DayActivity, ts []model.Transition) string {
	sd := c.sanitizeDay(day)

	var b strings.Builder
	b.WriteString(Header(day.Date) + "\n\n")
	b.WriteString(GeneratedLine(day.MessageCount) + "\n\n")

	b.WriteString("## Topics\n\n")
	tops := topics(append(append([]string{}, sd.user...), sd.assistant...))
	if len(tops) == 0 {
		b.WriteString("- No recurring topics detected\n")
	}
	for _, t := range tops {
		fmt.Fprintf(&b, "- %s (%d)\n", t.word, t.count)
	}

	b.WriteString("\n## Session Flow\n\n")
	flow := collapseFlow(sd.flow, FlowWindow)
	if len(flow) == 0 {
		b.WriteString("- No user messages\n")
	}
	for i, it := range flow {
		if i == maxFlow {
			fmt.Fprintf(&b, "- ... %d more\n", len(flow)-maxFlow)
			break
		}
		fmt.Fprintf(&b, "- %s %s\n", it.At.Format("15:04"), it.Text)
	}

	if ds := decisions(append(append([]string{}, sd.assistant...), sd.user...)); len(ds) > 0 {
		b.WriteString("\n## Decisions\n\n")
		for _, d := range ds {
			b.WriteString("- " + d + "\n")
		}
	}

	if td := techDetails(append(append([]string{}, sd.user...), sd.assistant...)); !td.Empty() {
		b.WriteString("\n## Technical Details\n\n")
		writeList(&b, "Files", td.Files)
		writeList(&b, "Commands", td.Commands)
		writeList(&b, "Errors", td.Errors)
	}

	if len(ts) > 0 {
		b.WriteString("\n## Model Transitions\n\n")
		for _, t := range ts {
			fmt.Fprintf(&b, "- %s %s\n", t.At.Format("15:04"), transitions.Describe(t))
			if t.PrecedingContext != "" {
				fmt.Fprintf(&b, "  - before: %s\n", defuse(c.san.Sanitize(t.PrecedingContext)))
			}
		}
	}

	if len(sd.summaries) > 0 {
		b.WriteString("\n## Context Summary\n\n")
		b.WriteString(strings.Join(sd.summaries, "\n\n") + "\n")
	}

	b.WriteString("\n---\n\n" + FooterMarker + "\n")
	return b.String()
}

func writeList(b *strings.Builder, name string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", name, strings.Join(items, ", "))
}
