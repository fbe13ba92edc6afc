package compose

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/summarize"
	"github.com/crimson-sun/daybook/internal/transitions"
)

const (
	// DefaultMaxInputChars caps the conversation text sent to a summarizer.
	DefaultMaxInputChars = 100000

	messageLimit    = 2000
	toolResultLimit = 500
)

const systemPrompt = `You are an assistant keeping a daily journal of your own working sessions. Write in the first person. The entry is read days or weeks later to recover what happened, who was involved and why it mattered.`

const dailyPrompt = `Write the journal entry for %s (%s) from the conversation below.

Style:
- Organize by events and topics with descriptive "##" headings, not generic categories.
- Mix short narrative with bullets. Keep technical specifics such as file names, command names and error types, without full command arguments.
- Record decisions and the reason for them.
- Finish with an "## Open Threads" section listing follow-ups.

Security:
- Never include API keys, tokens, passwords, connection strings or any other credential.
- Never include values of environment variables that hold secrets.
- Text already shown as [REDACTED-...] must stay redacted.
- When unsure whether something is secret, describe it without the value.

%s

Start the entry with the line "%s".

CONVERSATION (%d messages):

%s`

const mergePrompt = `

EXISTING ENTRY (hand-written notes for this date):
%s

The entry above was written earlier for this date. Treat it as a baseline to augment:
- Keep chronological order.
- Keep its structure and style.
- Merge by topic instead of repeating points.
- Keep hand-written reflections.`

// conversationText renders a day's events for a summarizer. Every message is
// sanitized here, independently of any earlier pass. Long messages are cut
// and the total is capped at maxChars.
func (c *Composer) conversationText(events []model.Event, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	var lines []string
	total := 0
	for i, ev := range events {
		text := strings.TrimSpace(ev.RawContent)
		if text == "" {
			continue
		}
		text = truncate(c.san.Sanitize(text), messageLimit, "... [truncated]")

		at := ev.Timestamp.Format("15:04")
		var line string
		switch ev.Role {
		case model.RoleUser:
			line = fmt.Sprintf("[%s] USER: %s", at, text)
		case model.RoleAssistant:
			info := ""
			if ev.ModelID != "" {
				info = " (" + ev.ModelID + ")"
			}
			var extras []string
			if ev.HasThinking {
				extras = append(extras, "thinking")
			}
			if ev.HasToolCalls {
				extras = append(extras, "tool calls")
			}
			if len(extras) > 0 {
				info += " [" + strings.Join(extras, ", ") + "]"
			}
			line = fmt.Sprintf("[%s] ASSISTANT%s: %s", at, info, text)
		default:
			line = fmt.Sprintf("[%s] TOOL RESULT: %s", at, truncate(text, toolResultLimit, "..."))
		}

		if total+len(line) > maxChars {
			lines = append(lines, fmt.Sprintf("... [%d more messages truncated]", len(events)-i))
			break
		}
		lines = append(lines, line)
		total += len(line)
	}
	return strings.Join(lines, "\n\n")
}

func transitionsNote(ts []model.Transition) string {
	if len(ts) == 0 {
		return "MODEL TRANSITIONS: none today."
	}
	lines := []string{"MODEL TRANSITIONS today:"}
	for _, t := range ts {
		lines = append(lines, fmt.Sprintf("  %s: %s", t.At.Format("15:04"), transitions.Describe(t)))
	}
	lines = append(lines, "(Mention these where they matter to the story.)")
	return strings.Join(lines, "\n")
}

// Prompt builds the summarizer request for a day. existing, when not empty,
// is the preserved region of the current artifact; it is sanitized before
// it is included.
func (c *Composer) Prompt(day model.DayActivity, ts []model.Transition, existing string) summarize.Request {
	conv := c.conversationText(day.Events, c.maxInputChars)
	prompt := fmt.Sprintf(dailyPrompt,
		day.Date, day.Date.Weekday(),
		transitionsNote(ts),
		Header(day.Date),
		day.MessageCount,
		conv,
	)
	if strings.TrimSpace(existing) != "" {
		prompt += fmt.Sprintf(mergePrompt, c.san.Sanitize(existing))
	}
	return summarize.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: summarize.DefaultMaxTokens,
	}
}
