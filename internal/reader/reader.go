// Package reader parses append-only session logs into events.
//
// The logs may be appended to by a live process while they are read. The
// reader only opens files for reading, skips malformed or truncated lines,
// and never treats a lock marker as a log source.
package reader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/daybook/internal/model"
)

// MaxLineSize bounds a single log line. Longer lines are skipped.
const MaxLineSize = 10 << 20

// File is a discovered session log.
type File struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Stem returns the file name without its extension.
func (f File) Stem() string {
	return strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
}

// Stats counts what a scan saw.
type Stats struct {
	Files            int
	Lines            int
	Malformed        int
	MissingTimestamp int
	Oversize         int
	Events           int
	Compactions      int
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.Lines += o.Lines
	s.Malformed += o.Malformed
	s.MissingTimestamp += o.MissingTimestamp
	s.Oversize += o.Oversize
	s.Events += o.Events
	s.Compactions += o.Compactions
}

// Session is the parsed content of one session file.
type Session struct {
	File        File
	ID          string
	Events      []model.Event
	Compactions []model.Compaction
	Stats       Stats
}

// Scan is the merged result of reading many session files.
type Scan struct {
	Sessions    []Session // in input file order
	Events      []model.Event
	Compactions []model.Compaction
	Stats       Stats
}

// Reader reads session logs.
type Reader struct {
	logger  *zap.Logger
	loc     *time.Location
	workers int
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// WithLocation sets the zone events are normalized to. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(r *Reader) { r.loc = loc }
}

// WithWorkers sets how many files are scanned concurrently.
func WithWorkers(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New creates a Reader.
func New(opts ...Option) *Reader {
	r := &Reader{logger: zap.NewNop(), loc: time.Local, workers: 4}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location is the zone events are normalized to and days are cut in.
func (r *Reader) Location() *time.Location { return r.loc }

// FindSessionFiles lists *.jsonl files in dir, oldest modification first.
// Lock markers are skipped. A missing dir yields no files.
func FindSessionFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reader: list %s: %w", dir, err)
	}
	var files []File
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, ".lock") || filepath.Ext(name) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between listing and stat.
			continue
		}
		files = append(files, File{
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// Events returns a lazy sequence of the message events in path. Each
// iteration reopens the file, so the sequence can be ranged over again and
// sees lines appended since. Unreadable files yield nothing.
func (r *Reader) Events(path string) iter.Seq[model.Event] {
	return func(yield func(model.Event) bool) {
		f, err := os.Open(path)
		if err != nil {
			r.logger.Warn("cannot open session file", zap.String("path", path), zap.Error(err))
			return
		}
		defer f.Close()

		dec := NewDecoder(File{Path: path}.Stem(), r.loc)
		_ = eachLine(f, func(line []byte, tooLong bool) bool {
			if tooLong {
				return true
			}
			it, err := dec.Decode(line)
			if err != nil || it.Kind != KindEvent {
				return true
			}
			return yield(it.Event)
		})
	}
}

// ReadFile parses one session file completely.
func (r *Reader) ReadFile(ctx context.Context, file File) (Session, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return Session{}, fmt.Errorf("reader: open %s: %w", file.Path, err)
	}
	defer f.Close()

	s := Session{File: file, Stats: Stats{Files: 1}}
	dec := NewDecoder(file.Stem(), r.loc)
	err = eachLine(f, func(line []byte, tooLong bool) bool {
		s.Stats.Lines++
		if s.Stats.Lines%4096 == 0 && ctx.Err() != nil {
			return false
		}
		if tooLong {
			s.Stats.Oversize++
			return true
		}
		it, err := dec.Decode(line)
		switch {
		case errors.Is(err, ErrMissingTimestamp):
			s.Stats.MissingTimestamp++
		case err != nil:
			s.Stats.Malformed++
		case it.Kind == KindEvent:
			s.Events = append(s.Events, it.Event)
			s.Stats.Events++
		case it.Kind == KindCompaction:
			s.Compactions = append(s.Compactions, it.Compaction)
			s.Stats.Compactions++
		}
		return true
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return Session{}, fmt.Errorf("reader: read %s: %w", file.Path, err)
	}
	s.ID = dec.SessionID()
	if s.Stats.Malformed > 0 || s.Stats.Oversize > 0 {
		r.logger.Warn("skipped unreadable lines",
			zap.String("path", file.Path),
			zap.Int("malformed", s.Stats.Malformed),
			zap.Int("oversize", s.Stats.Oversize))
	}
	return s, nil
}

// ScanFiles reads files concurrently and merges their events in timestamp
// order. Ties keep input file order, then line order. A file that cannot be
// opened is logged and skipped.
func (r *Reader) ScanFiles(ctx context.Context, files []File) (Scan, error) {
	sessions := make([]Session, len(files))
	ok := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, file := range files {
		g.Go(func() error {
			s, err := r.ReadFile(gctx, file)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Warn("skipping session file", zap.String("path", file.Path), zap.Error(err))
				return nil
			}
			sessions[i], ok[i] = s, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Scan{}, err
	}

	var scan Scan
	for i, s := range sessions {
		if !ok[i] {
			continue
		}
		scan.Sessions = append(scan.Sessions, s)
		scan.Stats.add(s.Stats)
		for _, ev := range s.Events {
			ev.Seq = len(scan.Events)
			scan.Events = append(scan.Events, ev)
		}
		scan.Compactions = append(scan.Compactions, s.Compactions...)
	}
	model.SortEvents(scan.Events)
	sort.SliceStable(scan.Compactions, func(i, j int) bool {
		return scan.Compactions[i].Timestamp.Before(scan.Compactions[j].Timestamp)
	})
	r.logger.Debug("scanned session files",
		zap.Int("files", scan.Stats.Files),
		zap.Int("events", scan.Stats.Events),
		zap.Int("malformed", scan.Stats.Malformed),
		zap.Int("missing_timestamp", scan.Stats.MissingTimestamp))
	return scan, nil
}

// ScanDir finds and scans every session file in dir.
func (r *Reader) ScanDir(ctx context.Context, dir string) (Scan, error) {
	files, err := FindSessionFiles(dir)
	if err != nil {
		return Scan{}, err
	}
	return r.ScanFiles(ctx, files)
}

// eachLine calls fn with every line of rd, without the trailing newline.
// Lines longer than MaxLineSize are reported once with tooLong set and an
// empty line. Returning false from fn stops the walk.
func eachLine(rd io.Reader, fn func(line []byte, tooLong bool) bool) error {
	br := bufio.NewReaderSize(rd, 64<<10)
	var buf []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if len(buf)+len(chunk) > MaxLineSize {
			tooLong = true
			buf = buf[:0]
		} else if !tooLong {
			buf = append(buf, chunk...)
		}
		switch {
		case err == nil:
			line := bytes.TrimRight(buf, "\r\n")
			if tooLong {
				line = nil
			}
			if !fn(line, tooLong) {
				return nil
			}
			buf, tooLong = buf[:0], false
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				fn(nil, true)
			} else if len(buf) > 0 {
				fn(bytes.TrimRight(buf, "\r\n"), false)
			}
			return nil
		default:
			return err
		}
	}
}
