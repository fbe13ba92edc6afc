package daybook

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	sessionsDir     string
	memoryDir       string
	stateFile       string
	sparseThreshold float64
	minValidSize    int64
	location        *time.Location
	workers         int
	backend         string
	model           string
	apiKey          string
	timeout         time.Duration
	logger          *zap.Logger
}

// Option configures a Daybook instance.
type Option func(*options)

// WithSessionsDir sets the directory holding *.jsonl session logs.
func WithSessionsDir(dir string) Option {
	return func(o *options) {
		o.sessionsDir = dir
	}
}

// WithMemoryDir sets the directory memory files are written to.
func WithMemoryDir(dir string) Option {
	return func(o *options) {
		o.memoryDir = dir
	}
}

// WithStateFile sets where the last-run watermark is kept.
// Default: ~/.daybook/state.json.
func WithStateFile(path string) Option {
	return func(o *options) {
		o.stateFile = path
	}
}

// WithSparseThreshold sets the bytes-per-message ratio below which an
// existing memory file counts as sparse. Default: 5.
func WithSparseThreshold(t float64) Option {
	return func(o *options) {
		o.sparseThreshold = t
	}
}

// WithLocation sets the time zone days are cut in. Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

// WithWorkers sets how many session files are read concurrently.
// Default: 4.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithSummarizer selects a narrative backend: "genai", "openai" or
// "anthropic". An empty model uses the backend's default.
func WithSummarizer(backend, model, apiKey string) Option {
	return func(o *options) {
		o.backend = backend
		o.model = model
		o.apiKey = apiKey
	}
}

// WithSummarizerTimeout bounds each narrative call. Default: 120s.
func WithSummarizerTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func defaultOptions() options {
	return options{
		sparseThreshold: 5,
		minValidSize:    100,
		location:        time.Local,
		workers:         4,
		timeout:         120 * time.Second,
		logger:          zap.NewNop(),
	}
}
