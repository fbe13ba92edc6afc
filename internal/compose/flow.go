package compose

import (
	"fmt"
	"time"
)

// FlowWindow is how long after a prompt an identical prompt is folded into it.
const FlowWindow = 10 * time.Minute

// flowExcerptLen is the longest flow bullet, in runes.
const flowExcerptLen = 120

// flowItem is one Session Flow bullet.
type flowItem struct {
	At    time.Time
	Text  string
	Count int
}

// group accumulates prompts with the same normalized key.
type group struct {
	item     flowItem
	firstTS  time.Time
	latestTS time.Time
}

// collapseFlow folds repeated prompts within window of the first occurrence
// of the same prompt. Returns items in first-occurrence order with Count set
// on merged items.
func collapseFlow(items []flowItem, window time.Duration) []flowItem {
	if len(items) == 0 {
		return nil
	}

	var order []*group
	groups := make(map[string]*group)

	for _, it := range items {
		key := normalizeKey(it.Text)

		g, exists := groups[key]
		if exists && it.At.Sub(g.firstTS) <= window {
			g.item.Count++
			if it.At.After(g.latestTS) {
				g.latestTS = it.At
			}
			continue
		}

		g = &group{item: it, firstTS: it.At, latestTS: it.At}
		g.item.Count = 1
		groups[key] = g
		order = append(order, g)
	}

	result := make([]flowItem, 0, len(order))
	for _, g := range order {
		it := g.item
		if it.Count > 1 {
			it.Text = fmt.Sprintf("%s (x%d in %s)", it.Text, it.Count, formatDuration(g.latestTS.Sub(g.firstTS)))
		}
		result = append(result, it)
	}
	return result
}

// formatDuration produces a human-readable short duration string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
