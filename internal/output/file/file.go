package file

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/daybook/internal/output"
)

// WriteAtomic replaces path with data. The bytes go to a temp file in the
// same directory, which is synced and renamed over path, so readers see
// either the old content or the new content and never a partial write.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file output: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file output: temp for %s: %w", path, err)
	}
	name := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(name)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("file output: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("file output: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("file output: close %s: %w", name, err)
	}
	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return fmt.Errorf("file output: chmod %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("file output: rename to %s: %w", path, err)
	}
	return nil
}

// Option configures a file Output.
type Option func(*Output)

// WithBackups keeps up to n previous exports as {path}.1 ... {path}.n.
// 0 (default) overwrites the previous export.
func WithBackups(n int) Option {
	return func(o *Output) { o.backups = n }
}

// WithPerm sets the file mode of the export. Default: 0644.
func WithPerm(perm os.FileMode) Option {
	return func(o *Output) { o.perm = perm }
}

// Output exports sanitized reports as JSON. Records are buffered and the
// file is replaced atomically on Close: one record is written as an object,
// several as an array.
type Output struct {
	mu      sync.Mutex
	path    string
	san     output.Sanitizer
	records [][]byte
	backups int
	perm    os.FileMode
}

// New creates a file output for path.
func New(path string, san output.Sanitizer, opts ...Option) *Output {
	o := &Output{path: path, san: san, perm: 0o644}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Path returns the export path.
func (o *Output) Path() string { return o.path }

// Write renders the record as sanitized JSON and buffers it.
func (o *Output) Write(_ context.Context, rec output.Record) error {
	data, err := output.Render(rec, output.JSON, o.san)
	if err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	o.mu.Lock()
	o.records = append(o.records, data)
	o.mu.Unlock()
	return nil
}

// Close writes the buffered records. Nothing is written when no record was.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.records) == 0 {
		return nil
	}
	var data []byte
	if len(o.records) == 1 {
		data = o.records[0]
	} else {
		data = append([]byte("[\n"), bytes.Join(o.records, []byte(",\n"))...)
		data = append(data, "\n]"...)
	}
	data = append(data, '\n')

	if o.backups > 0 {
		o.rotate()
	}
	if err := WriteAtomic(o.path, data, o.perm); err != nil {
		return err
	}
	o.records = nil
	return nil
}

// rotate shifts {path}.n-1 to {path}.n down to the current file becoming
// {path}.1. Missing files are skipped.
func (o *Output) rotate() {
	for i := o.backups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", o.path, i), fmt.Sprintf("%s.%d", o.path, i+1))
	}
	os.Rename(o.path, o.path+".1")
}
