package coverage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/crimson-sun/daybook/internal/model"
)

// DefaultMinValidSize is the smallest artifact Validate accepts, in bytes.
const DefaultMinValidSize = 100

// Artifact is a dated file in the artifact directory.
type Artifact struct {
	Date model.Date `json:"date"`
	Path string     `json:"path"`
	Size int64      `json:"size"`
}

// Name returns the artifact file name for d.
func Name(d model.Date) string {
	return d.String() + ".md"
}

// Index maps dates to their artifact.
type Index map[model.Date]Artifact

// NewIndex builds an Index from a list of artifacts.
func NewIndex(arts []Artifact) Index {
	idx := make(Index, len(arts))
	for _, a := range arts {
		idx[a.Date] = a
	}
	return idx
}

// Sorted returns the artifacts in date order.
func (idx Index) Sorted() []Artifact {
	out := make([]Artifact, 0, len(idx))
	for _, a := range idx {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ListArtifacts returns the YYYY-MM-DD.md files in dir sorted by date.
// Other files are ignored and a missing dir yields nothing.
func ListArtifacts(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("coverage: list %s: %w", dir, err)
	}
	var out []Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d, ok := dateFromName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{Date: d, Path: filepath.Join(dir, e.Name()), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func dateFromName(name string) (model.Date, bool) {
	stem, ok := strings.CutSuffix(name, ".md")
	if !ok || len(stem) != len(model.DateLayout) {
		return model.Date{}, false
	}
	d, err := model.ParseDate(stem)
	if err != nil {
		return model.Date{}, false
	}
	return d, true
}

// IssueType classifies a validation finding.
type IssueType string

const (
	IssueNaming         IssueType = "naming"
	IssueHeaderMismatch IssueType = "header_mismatch"
	IssueTooSmall       IssueType = "too_small"
	IssueOrphaned       IssueType = "orphaned"
	IssueUnreadable     IssueType = "parse_error"
)

var issueLabels = map[IssueType]string{
	IssueNaming:         "Naming Issues",
	IssueHeaderMismatch: "Header Mismatches",
	IssueTooSmall:       "Files Too Small",
	IssueOrphaned:       "Orphaned Files (no session activity)",
	IssueUnreadable:     "Parse Errors",
}

var issueOrder = []IssueType{IssueUnreadable, IssueNaming, IssueHeaderMismatch, IssueTooSmall, IssueOrphaned}

// Severity of a validation finding.
type Severity string

const (
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Issue is one validation finding.
type Issue struct {
	Path        string    `json:"path"`
	Type        IssueType `json:"type"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
}

// Validation is the result of Validate.
type Validation struct {
	Issues []Issue `json:"issues"`
	Valid  int     `json:"valid"`
	Total  int     `json:"total"`
}

func (Validation) Kind() string { return "validate" }

var headerDate = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)

// Validate checks every *.md file in dir except MEMORY.md: the name must be
// a date, the first-line header date must match it, the file must be at
// least minSize bytes, and its date must have activity.
func Validate(dir string, active map[model.Date]bool, minSize int64) Validation {
	var v Validation
	entries, err := os.ReadDir(dir)
	if err != nil {
		v.Issues = append(v.Issues, Issue{
			Path:        dir,
			Type:        IssueUnreadable,
			Description: fmt.Sprintf("cannot read artifact directory: %v", err),
			Severity:    Error,
		})
		return v
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".md" || strings.EqualFold(name, "MEMORY.md") {
			continue
		}
		v.Total++
		path := filepath.Join(dir, name)
		issues := validateOne(path, name, active, minSize)
		if len(issues) == 0 {
			v.Valid++
		}
		v.Issues = append(v.Issues, issues...)
	}
	return v
}

func validateOne(path, name string, active map[model.Date]bool, minSize int64) []Issue {
	var issues []Issue
	add := func(t IssueType, sev Severity, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Type: t, Description: fmt.Sprintf(format, args...), Severity: sev})
	}

	d, ok := dateFromName(name)
	if !ok {
		add(IssueNaming, Warning, "filename does not match YYYY-MM-DD.md: %s", name)
	} else {
		first, err := firstLine(path)
		switch {
		case err != nil:
			add(IssueUnreadable, Error, "could not read file: %v", err)
		default:
			if m := headerDate.FindStringSubmatch(first); m != nil {
				if hd, err := model.ParseDate(m[1]); err == nil && hd != d {
					add(IssueHeaderMismatch, Warning, "header date %s does not match filename date %s", hd, d)
				}
			}
		}
		if !active[d] {
			add(IssueOrphaned, Warning, "no session activity found for %s", d)
		}
	}

	if info, err := os.Stat(path); err == nil && info.Size() < minSize {
		add(IssueTooSmall, Warning, "file too small: %d bytes (minimum: %d)", info.Size(), minSize)
	}
	return issues
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return sc.Text(), nil
	}
	return "", sc.Err()
}

// Text renders the validation as a report.
func (v Validation) Text() string {
	var b strings.Builder
	b.WriteString("Artifact Validation Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Total files checked: %d\n", v.Total)
	fmt.Fprintf(&b, "Valid files: %d\n", v.Valid)
	fmt.Fprintf(&b, "Files with issues: %d\n\n", v.Total-v.Valid)
	if len(v.Issues) == 0 {
		b.WriteString("All files passed validation!\n")
		return b.String()
	}

	byType := make(map[IssueType][]Issue)
	for _, is := range v.Issues {
		byType[is.Type] = append(byType[is.Type], is)
	}
	for _, t := range issueOrder {
		list := byType[t]
		if len(list) == 0 {
			continue
		}
		icon := "~"
		for _, is := range list {
			if is.Severity == Error {
				icon = "!"
			}
		}
		fmt.Fprintf(&b, "%s %s (%d)\n", icon, issueLabels[t], len(list))
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, is := range list {
			fmt.Fprintf(&b, "  %s: %s\n", filepath.Base(is.Path), is.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
