package compose

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	maxTopics     = 8
	maxDecisions  = 10
	maxTechItems  = 10
	minTopicCount = 2
	minTopicLen   = 4
	decisionLen   = 160
)

var stopwords = toSet(`
about above after again against all also and any are aren because been before
being below between both but can cannot could couldn did didn does doesn doing
done don down during each even every few for from further get gets getting got
had hadn has hasn have haven having here hers herself him himself his how however
into isn its itself just let lets like make made many may maybe might more most
much must need needs now off once only other our ours ourselves out over own
please really same see seems should shouldn since some still such sure than that
thats the their theirs them themselves then there these they this those though
through too under until use used using very want was wasn way well were weren
what when where which while who whom why will with within without won would
wouldn yes yet you your yours yourself yourselves thing things something
anything okay thanks thank going know think look looks right work works
file files code line lines first next last time new one two
`)

func toSet(words string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		m[w] = true
	}
	return m
}

type counted struct {
	word  string
	count int
}

// topics returns the most frequent non-stopword terms across texts. Terms
// seen fewer than minTopicCount times are dropped. Redaction labels never
// count as topics.
func topics(texts []string) []counted {
	freq := make(map[string]int)
	for _, t := range texts {
		t = labelRE.ReplaceAllString(t, " ")
		for _, w := range strings.FieldsFunc(strings.ToLower(t), notWordRune) {
			w = strings.Trim(w, "-_")
			if len([]rune(w)) < minTopicLen || stopwords[w] || allDigits(w) {
				continue
			}
			freq[w]++
		}
	}
	out := make([]counted, 0, len(freq))
	for w, n := range freq {
		if n >= minTopicCount {
			out = append(out, counted{w, n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].word < out[j].word
	})
	if len(out) > maxTopics {
		out = out[:maxTopics]
	}
	return out
}

var labelRE = regexp.MustCompile(`\[REDACTED-[A-Z0-9-]+\]`)

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var (
	decisionCue = regexp.MustCompile(`(?i)\b(decided|decision|we'll go with|let's go with|going with|chose|choose to|switch(?:ed|ing)? to|will use|settled on|agreed|plan is)\b`)
	sentenceEnd = regexp.MustCompile(`[.!?]\s+|\n+`)
)

// decisions returns sentences that carry a decision cue, in order, without
// repeats.
func decisions(texts []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range texts {
		for _, s := range sentenceEnd.Split(t, -1) {
			s = strings.TrimSpace(strings.TrimLeft(s, "-*# "))
			if s == "" || !decisionCue.MatchString(s) {
				continue
			}
			key := normalizeKey(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, truncate(strings.Join(strings.Fields(s), " "), decisionLen, "..."))
			if len(out) == maxDecisions {
				return out
			}
		}
	}
	return out
}

// TechDetails lists the technical names mentioned during a day.
type TechDetails struct {
	Files    []string
	Commands []string
	Errors   []string
}

// Empty reports whether nothing was found.
func (t TechDetails) Empty() bool {
	return len(t.Files) == 0 && len(t.Commands) == 0 && len(t.Errors) == 0
}

var (
	fileRE   = regexp.MustCompile(`\b[\w.-]*[\w-]\.(?:go|py|ts|tsx|js|jsx|md|json|ya?ml|toml|sh|sql|rs|rb|java|c|h|cpp|css|html|proto|mod|txt|lock)\b`)
	errorRE  = regexp.MustCompile(`\b[A-Z][A-Za-z]*(?:Error|Exception)\b`)
	inlineRE = regexp.MustCompile("`([^`\n]+)`")
	promptRE = regexp.MustCompile(`(?m)^\s*\$\s+(\S+)`)
)

var knownCommands = toSet(`
git go npm npx pnpm yarn node make docker kubectl helm terraform pip pip3
python python3 pytest cargo rustc curl wget ssh scp rsync psql sqlite3 redis-cli
brew apt systemctl journalctl grep rg sed awk jq gh aws gcloud az uv poetry
`)

// techDetails collects file names, command names and error types. Only the
// command name is kept, never its arguments. Paths are reduced to base names.
func techDetails(texts []string) TechDetails {
	files := make(map[string]bool)
	cmds := make(map[string]bool)
	errs := make(map[string]bool)
	for _, t := range texts {
		for _, m := range fileRE.FindAllString(t, -1) {
			if i := strings.LastIndexAny(m, "/\\"); i >= 0 {
				m = m[i+1:]
			}
			files[m] = true
		}
		for _, m := range errorRE.FindAllString(t, -1) {
			errs[m] = true
		}
		for _, m := range inlineRE.FindAllStringSubmatch(t, -1) {
			if f := strings.Fields(m[1]); len(f) > 0 && knownCommands[f[0]] {
				cmds[f[0]] = true
			}
		}
		for _, m := range promptRE.FindAllStringSubmatch(t, -1) {
			if knownCommands[m[1]] {
				cmds[m[1]] = true
			}
		}
	}
	return TechDetails{
		Files:    capped(files),
		Commands: capped(cmds),
		Errors:   capped(errs),
	}
}

func capped(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	if len(out) > maxTechItems {
		out = out[:maxTechItems]
	}
	return out
}
