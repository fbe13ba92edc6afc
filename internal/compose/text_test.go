package compose

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// --- truncate tests ---

func TestTruncateRuneSafety(t *testing.T) {
	// CJK characters are 3 bytes each in UTF-8.
	input := strings.Repeat("日本語", 100)
	result := truncate(input, 10, "...")

	if !utf8.ValidString(result) {
		t.Fatal("truncated string is not valid UTF-8")
	}
	if utf8.RuneCountInString(result) != 13 {
		t.Fatalf("expected 13 runes (10 + ...), got %d", utf8.RuneCountInString(result))
	}
}

func TestTruncateShortInput(t *testing.T) {
	if result := truncate("exact", 5, "..."); result != "exact" {
		t.Fatalf("expected unchanged input, got %q", result)
	}
}

// --- firstLine tests ---

func TestFirstLine(t *testing.T) {
	input := "\n\n  ERROR: connection   refused\n\tat main.go:42"
	if result := firstLine(input, 120); result != "ERROR: connection refused" {
		t.Fatalf("expected first line, got %q", result)
	}
}

func TestFirstLineWordBoundary(t *testing.T) {
	input := strings.Repeat("word ", 40)
	result := firstLine(input, 22)
	if result != "word word word word..." {
		t.Fatalf("expected cut at a word boundary, got %q", result)
	}
}

// --- EstimateTokens tests ---

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello", 2},
		{"hello world", 3},
		{strings.Repeat("word ", 500), 650},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Fatalf("EstimateTokens(%.20q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// --- collapseFlow tests ---

var t0 = time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)

func item(text string, offset time.Duration) flowItem {
	return flowItem{At: t0.Add(offset), Text: text}
}

func TestCollapseFlowEmpty(t *testing.T) {
	if result := collapseFlow(nil, FlowWindow); result != nil {
		t.Fatalf("expected nil, got %v", result)
	}
}

func TestCollapseFlowNoDuplicates(t *testing.T) {
	items := []flowItem{
		item("run the tests", 0),
		item("fix the parser", time.Minute),
		item("ship it", 2*time.Minute),
	}
	result := collapseFlow(items, FlowWindow)
	if len(result) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result))
	}
	for _, it := range result {
		if it.Count != 1 {
			t.Fatalf("expected Count=1, got %d", it.Count)
		}
	}
}

func TestCollapseFlowNearDuplicates(t *testing.T) {
	items := []flowItem{
		item("Run the tests", 0),
		item("run the tests!", time.Minute),
		item("fix the parser", 90*time.Second),
		item("run  the tests", 2*time.Minute),
	}
	result := collapseFlow(items, FlowWindow)
	if len(result) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result))
	}
	if result[0].Count != 3 {
		t.Fatalf("expected Count=3, got %d", result[0].Count)
	}
	if result[0].Text != "Run the tests (x3 in 2m)" {
		t.Fatalf("unexpected text: %q", result[0].Text)
	}
	if result[1].Text != "fix the parser" {
		t.Fatalf("expected first-occurrence order, got %q", result[1].Text)
	}
}

func TestCollapseFlowOutsideWindow(t *testing.T) {
	items := []flowItem{
		item("run the tests", 0),
		item("run the tests", FlowWindow+time.Second),
	}
	if result := collapseFlow(items, FlowWindow); len(result) != 2 {
		t.Fatalf("expected 2 items outside the window, got %d", len(result))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{3 * time.Second, "3s"},
		{2 * time.Minute, "2m"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Fatalf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// --- extraction tests ---

func TestTopicsSkipsStopwordsAndLabels(t *testing.T) {
	texts := []string{
		"the migration script failed on the migration table",
		"rerun the migration with [REDACTED-API-KEY] [REDACTED-API-KEY]",
		"script done",
	}
	got := topics(texts)
	if len(got) != 2 {
		t.Fatalf("expected 2 topics, got %v", got)
	}
	if got[0].word != "migration" || got[0].count != 3 {
		t.Fatalf("unexpected top topic: %+v", got[0])
	}
	if got[1].word != "script" || got[1].count != 2 {
		t.Fatalf("unexpected second topic: %+v", got[1])
	}
}

func TestDecisions(t *testing.T) {
	texts := []string{
		"I looked at both. We decided to keep SQLite for now. Tests pass.",
		"we decided to keep sqlite for now",
		"Let's go with the smaller patch!",
	}
	got := decisions(texts)
	want := []string{"We decided to keep SQLite for now", "Let's go with the smaller patch!"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decision %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestTechDetails(t *testing.T) {
	texts := []string{
		"edited internal/reader/reader.go and go.mod",
		"run `git push origin main` then\n$ docker compose up",
		"saw a KeyError and a TimeoutException; `notacommand --x`",
	}
	td := techDetails(texts)
	if strings.Join(td.Files, ",") != "go.mod,reader.go" {
		t.Fatalf("unexpected files: %v", td.Files)
	}
	if strings.Join(td.Commands, ",") != "docker,git" {
		t.Fatalf("unexpected commands: %v", td.Commands)
	}
	if strings.Join(td.Errors, ",") != "KeyError,TimeoutException" {
		t.Fatalf("unexpected errors: %v", td.Errors)
	}
	if (TechDetails{}).Empty() != true || td.Empty() {
		t.Fatal("Empty reports the wrong value")
	}
}
