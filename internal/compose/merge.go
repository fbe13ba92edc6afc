package compose

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/daybook/internal/model"
)

// FooterMarker separates the generated region from the hand-edited region.
const FooterMarker = "*Review and edit this draft to capture what's actually important.*"

// Header returns the first line of a date's artifact.
func Header(d model.Date) string {
	return fmt.Sprintf("# %s (%s)", d, d.Weekday())
}

// GeneratedLine returns the marker line naming the message count.
func GeneratedLine(n int) string {
	return fmt.Sprintf("*Auto-generated from %d session messages*", n)
}

// Split divides an artifact at the first footer marker. generated ends with
// the marker line; preserved is everything after it, verbatim. When the
// marker is missing the whole document is hand-written and is returned as
// preserved.
func Split(doc string) (generated, preserved string, found bool) {
	i := strings.Index(doc, FooterMarker)
	if i < 0 {
		return "", doc, false
	}
	end := i + len(FooterMarker)
	if end < len(doc) && doc[end] == '\n' {
		end++
	}
	return doc[:end], doc[end:], true
}

// Merge joins a generated region and a preserved region. The generated
// region gets the footer marker if it lacks one.
func Merge(generated, preserved string) string {
	if !strings.Contains(generated, FooterMarker) {
		generated = strings.TrimRight(generated, "\n") + "\n\n---\n\n" + FooterMarker + "\n"
	}
	if !strings.HasSuffix(generated, "\n") {
		generated += "\n"
	}
	return generated + preserved
}

// defuse keeps free text from carrying the footer marker into a generated
// region, so the first marker in a document is always the real one.
func defuse(s string) string {
	return strings.ReplaceAll(s, FooterMarker, strings.Trim(FooterMarker, "*"))
}
