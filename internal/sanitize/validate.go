package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrLeak is returned by SafeSanitize when secrets are still detected after
// re-sanitizing. The content must not be written or sent anywhere.
var ErrLeak = errors.New("sanitize: secrets remain after sanitization")

// Violation describes one secret-shaped span found by Validate. It never
// carries the matched text.
type Violation struct {
	Pattern string
	Label   string
	Class   Class
	Folded  bool // found only after NFKC folding
}

func (v Violation) String() string {
	s := fmt.Sprintf("%s (%s, %s)", v.Label, v.Pattern, v.Class)
	if v.Folded {
		s += " after unicode folding"
	}
	return s
}

// Validate reports every pattern match outside existing labels. Text is
// checked as given and again after NFKC folding, so full-width or
// compatibility look-alikes of a key are reported too.
func (s *Sanitizer) Validate(text string) []Violation {
	var out []Violation
	seen := make(map[string]bool)
	scan := func(t string, folded bool) {
		for i := range s.rules {
			r := &s.rules[i]
			s.forEachMatch(r, t, func(string) {
				key := r.Name
				if folded {
					key += "/folded"
				}
				if seen[r.Name] || seen[key] {
					return
				}
				seen[key] = true
				out = append(out, Violation{Pattern: r.Name, Label: r.Label, Class: r.Class, Folded: folded})
			})
		}
	}
	scan(text, false)
	if folded := norm.NFKC.String(text); folded != text {
		scan(folded, true)
	}
	return out
}

// SafeSanitize sanitizes text and validates the result. When validation
// still finds secrets, the NFKC-folded text is sanitized and validated once
// more; if that also fails, ErrLeak is returned with the violations.
func (s *Sanitizer) SafeSanitize(text string) (string, error) {
	out := s.Sanitize(text)
	v := s.Validate(out)
	if len(v) == 0 {
		return out, nil
	}
	out = s.Sanitize(norm.NFKC.String(out))
	if v = s.Validate(out); len(v) == 0 {
		return out, nil
	}
	names := make([]string, len(v))
	for i, x := range v {
		names[i] = x.String()
	}
	return "", fmt.Errorf("%w: %s", ErrLeak, strings.Join(names, "; "))
}

// Sensitivity is a coarse content classification.
type Sensitivity int

const (
	Safe      Sensitivity = iota // can be summarized and stored
	Sensitive                    // mentions credentials; store redacted
	Secret                       // contains a secret-shaped value
)

func (l Sensitivity) String() string {
	switch l {
	case Safe:
		return "safe"
	case Sensitive:
		return "sensitive"
	case Secret:
		return "secret"
	default:
		return "unknown"
	}
}

var sensitiveWords = regexp.MustCompile(`(?i)\$[A-Z_]*(?:KEY|SECRET|TOKEN|PASSWORD)|\bapi[_-]?key\b|\bpassword\b|\btoken\b|\bsecret\b`)

// Classify returns the sensitivity of text.
func (s *Sanitizer) Classify(text string) Sensitivity {
	if len(s.Validate(text)) > 0 {
		return Secret
	}
	if sensitiveWords.MatchString(text) {
		return Sensitive
	}
	return Safe
}
