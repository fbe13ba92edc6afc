package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/daybook/internal/sanitize"
	"github.com/crimson-sun/daybook/internal/state"
)

// Config holds all daybook configuration.
type Config struct {
	SessionsDir string          `yaml:"sessions_dir"`
	MemoryDir   string          `yaml:"memory_dir"`
	StateFile   string          `yaml:"state_file"`
	Coverage    CoverageConfig  `yaml:"coverage"`
	Sanitize    SanitizeConfig  `yaml:"sanitize"`
	Summarize   SummarizeConfig `yaml:"summarize"`
	Scan        ScanConfig      `yaml:"scan"`
	Log         LogConfig       `yaml:"log"`
}

// CoverageConfig holds gap detection settings.
type CoverageConfig struct {
	SparseThreshold float64 `yaml:"sparse_threshold"` // bytes per message
	MinValidSize    int64   `yaml:"min_valid_size"`   // bytes
}

// SanitizeConfig tunes the high-entropy fallback.
type SanitizeConfig struct {
	EntropyMinLength  int     `yaml:"entropy_min_length"`
	EntropyMinClasses int     `yaml:"entropy_min_classes"`
	EntropyMinBits    float64 `yaml:"entropy_min_bits"`
	EntropyMaxWordLen int     `yaml:"entropy_max_word_len"`
}

// Entropy converts the settings for the sanitizer.
func (s SanitizeConfig) Entropy() sanitize.EntropyConfig {
	return sanitize.EntropyConfig{
		MinLength:  s.EntropyMinLength,
		MinClasses: s.EntropyMinClasses,
		MinBits:    s.EntropyMinBits,
		MaxWordLen: s.EntropyMaxWordLen,
	}
}

// SummarizeConfig selects the narrative backend.
type SummarizeConfig struct {
	Backend       string        `yaml:"backend"` // "none", "genai", "openai", "anthropic"
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"api_key"`
	Endpoint      string        `yaml:"endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxInputChars int           `yaml:"max_input_chars"`
}

// ScanConfig controls session log scanning.
type ScanConfig struct {
	Workers int `yaml:"workers"`
}

// LogConfig controls diagnostics on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Backends lists the accepted summarize backends.
var Backends = []string{"none", "genai", "openai", "anthropic"}

// backendKeyVars are the conventional API key variables per backend.
var backendKeyVars = map[string][]string{
	"genai":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		StateFile: state.DefaultPath(),
		Coverage: CoverageConfig{
			SparseThreshold: 5,
			MinValidSize:    100,
		},
		Sanitize: SanitizeConfig{
			EntropyMinLength:  32,
			EntropyMinClasses: 3,
			EntropyMinBits:    4.2,
			EntropyMaxWordLen: 20,
		},
		Summarize: SummarizeConfig{
			Backend:       "none",
			Timeout:       120 * time.Second,
			MaxInputChars: 100000,
		},
		Scan: ScanConfig{Workers: 4},
		Log:  LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty or the file does not exist), then DAYBOOK_*
// environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.SessionsDir = getenv("DAYBOOK_SESSIONS_DIR", c.SessionsDir)
	c.MemoryDir = getenv("DAYBOOK_MEMORY_DIR", c.MemoryDir)
	c.StateFile = getenv("DAYBOOK_STATE_FILE", c.StateFile)

	c.Coverage.SparseThreshold = getenvFloat("DAYBOOK_SPARSE_THRESHOLD", c.Coverage.SparseThreshold)
	c.Coverage.MinValidSize = int64(getenvInt("DAYBOOK_MIN_VALID_SIZE", int(c.Coverage.MinValidSize)))

	c.Sanitize.EntropyMinLength = getenvInt("DAYBOOK_ENTROPY_MIN_LENGTH", c.Sanitize.EntropyMinLength)
	c.Sanitize.EntropyMinClasses = getenvInt("DAYBOOK_ENTROPY_MIN_CLASSES", c.Sanitize.EntropyMinClasses)
	c.Sanitize.EntropyMinBits = getenvFloat("DAYBOOK_ENTROPY_MIN_BITS", c.Sanitize.EntropyMinBits)
	c.Sanitize.EntropyMaxWordLen = getenvInt("DAYBOOK_ENTROPY_MAX_WORD_LEN", c.Sanitize.EntropyMaxWordLen)

	c.Summarize.Backend = getenv("DAYBOOK_SUMMARIZER", c.Summarize.Backend)
	c.Summarize.Model = getenv("DAYBOOK_SUMMARIZER_MODEL", c.Summarize.Model)
	c.Summarize.Endpoint = getenv("DAYBOOK_SUMMARIZER_ENDPOINT", c.Summarize.Endpoint)
	c.Summarize.Timeout = getenvDuration("DAYBOOK_SUMMARIZER_TIMEOUT", c.Summarize.Timeout)
	c.Summarize.MaxInputChars = getenvInt("DAYBOOK_MAX_INPUT_CHARS", c.Summarize.MaxInputChars)
	c.Summarize.APIKey = getenv("DAYBOOK_API_KEY", c.Summarize.APIKey)
	if c.Summarize.APIKey == "" {
		for _, key := range backendKeyVars[c.Summarize.Backend] {
			if v := os.Getenv(key); v != "" {
				c.Summarize.APIKey = v
				break
			}
		}
	}

	c.Scan.Workers = getenvInt("DAYBOOK_WORKERS", c.Scan.Workers)
	c.Log.Level = getenv("DAYBOOK_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("DAYBOOK_LOG_FORMAT", c.Log.Format)
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error
	if c.SessionsDir == "" {
		errs = append(errs, errors.New("sessions directory is required"))
	}
	if c.MemoryDir == "" {
		errs = append(errs, errors.New("memory directory is required"))
	}
	if c.Coverage.SparseThreshold <= 0 {
		errs = append(errs, fmt.Errorf("sparse threshold must be > 0, got %g", c.Coverage.SparseThreshold))
	}
	if c.Coverage.MinValidSize < 0 {
		errs = append(errs, fmt.Errorf("min valid size must be >= 0, got %d", c.Coverage.MinValidSize))
	}
	if c.Sanitize.EntropyMinLength < 8 {
		errs = append(errs, fmt.Errorf("entropy min length must be >= 8, got %d", c.Sanitize.EntropyMinLength))
	}
	if c.Sanitize.EntropyMinClasses < 1 || c.Sanitize.EntropyMinClasses > 4 {
		errs = append(errs, fmt.Errorf("entropy min classes must be 1-4, got %d", c.Sanitize.EntropyMinClasses))
	}
	if c.Sanitize.EntropyMinBits < 0 || c.Sanitize.EntropyMinBits > 8 {
		errs = append(errs, fmt.Errorf("entropy min bits must be 0-8, got %g", c.Sanitize.EntropyMinBits))
	}
	if c.Sanitize.EntropyMaxWordLen < 0 {
		errs = append(errs, fmt.Errorf("entropy max word length must be >= 0, got %d", c.Sanitize.EntropyMaxWordLen))
	}
	if !slices.Contains(Backends, c.Summarize.Backend) {
		errs = append(errs, fmt.Errorf("unknown summarizer %q (want one of %s)", c.Summarize.Backend, strings.Join(Backends, ", ")))
	} else if c.Summarize.Backend != "none" && c.Summarize.APIKey == "" {
		errs = append(errs, fmt.Errorf("summarizer %q needs an API key (DAYBOOK_API_KEY)", c.Summarize.Backend))
	}
	if c.Summarize.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("summarizer timeout must be > 0, got %s", c.Summarize.Timeout))
	}
	if c.Summarize.MaxInputChars <= 0 {
		errs = append(errs, fmt.Errorf("max input chars must be > 0, got %d", c.Summarize.MaxInputChars))
	}
	if c.Scan.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Scan.Workers))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
