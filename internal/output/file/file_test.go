package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type redactAll struct{}

func (redactAll) Sanitize(s string) string {
	return strings.ReplaceAll(s, "hunter2", "[REDACTED]")
}

type entry struct {
	Name string `json:"name"`
}

func (entry) Kind() string { return "entry" }
func (e entry) Text() string { return e.Name }

func TestWriteAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	if err := WriteAtomic(path, []byte("one"), 0o600); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if err := WriteAtomic(path, []byte("two"), 0o600); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "two" {
		t.Fatalf("read back %q, %v", data, err)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want 1", len(entries))
	}
}

func TestWriteAtomicFailureKeepsOld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := WriteAtomic(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A directory in the way of the rename target.
	blocked := filepath.Join(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(blocked, []byte("new"), 0o644); err == nil {
		t.Fatal("expected rename over a non-empty directory to fail")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Fatalf("old content changed: %q", data)
	}
}

func TestSingleRecordIsObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	out := New(path, redactAll{})
	if err := out.Write(context.Background(), entry{Name: "pw hunter2"}); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	var e entry
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if e.Name != "pw [REDACTED]" {
		t.Fatalf("name = %q", e.Name)
	}
}

func TestManyRecordsAreArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	out := New(path, redactAll{})
	for _, n := range []string{"a", "b", "c"} {
		out.Write(context.Background(), entry{Name: n})
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	var got []entry
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 3 || got[2].Name != "c" {
		t.Fatalf("got %+v", got)
	}
}

func TestBackupsRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	for _, n := range []string{"first", "second", "third"} {
		out := New(path, redactAll{}, WithBackups(1))
		out.Write(context.Background(), entry{Name: n})
		if err := out.Close(); err != nil {
			t.Fatal(err)
		}
	}
	cur, _ := os.ReadFile(path)
	prev, _ := os.ReadFile(path + ".1")
	if !strings.Contains(string(cur), "third") || !strings.Contains(string(prev), "second") {
		t.Fatalf("cur=%s prev=%s", cur, prev)
	}
	if _, err := os.Stat(path + ".2"); !os.IsNotExist(err) {
		t.Fatalf("unexpected second backup: %v", err)
	}
}

func TestCloseWithoutRecordsWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := New(path, redactAll{}).Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file should not exist: %v", err)
	}
}
