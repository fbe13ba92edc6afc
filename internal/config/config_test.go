package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"DAYBOOK_SESSIONS_DIR", "DAYBOOK_MEMORY_DIR", "DAYBOOK_STATE_FILE",
	"DAYBOOK_SPARSE_THRESHOLD", "DAYBOOK_MIN_VALID_SIZE",
	"DAYBOOK_ENTROPY_MIN_LENGTH", "DAYBOOK_ENTROPY_MIN_CLASSES",
	"DAYBOOK_ENTROPY_MIN_BITS", "DAYBOOK_ENTROPY_MAX_WORD_LEN",
	"DAYBOOK_SUMMARIZER", "DAYBOOK_SUMMARIZER_MODEL", "DAYBOOK_SUMMARIZER_ENDPOINT",
	"DAYBOOK_SUMMARIZER_TIMEOUT", "DAYBOOK_MAX_INPUT_CHARS", "DAYBOOK_API_KEY",
	"DAYBOOK_WORKERS", "DAYBOOK_LOG_LEVEL", "DAYBOOK_LOG_FORMAT",
	"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
}

// clearEnv blanks every variable Load reads; getenv treats "" as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Coverage.SparseThreshold != 5 {
		t.Fatalf("expected default sparse threshold 5, got %v", cfg.Coverage.SparseThreshold)
	}
	if cfg.Coverage.MinValidSize != 100 {
		t.Fatalf("expected default min valid size 100, got %d", cfg.Coverage.MinValidSize)
	}
	if cfg.Summarize.Backend != "none" {
		t.Fatalf("expected default backend 'none', got %q", cfg.Summarize.Backend)
	}
	if cfg.Summarize.Timeout != 120*time.Second {
		t.Fatalf("expected default timeout 120s, got %v", cfg.Summarize.Timeout)
	}
	if cfg.Scan.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Scan.Workers)
	}
	if !strings.HasSuffix(cfg.StateFile, filepath.Join(".daybook", "state.json")) {
		t.Fatalf("unexpected default state file %q", cfg.StateFile)
	}
	e := cfg.Sanitize.Entropy()
	if e.MinLength != 32 || e.MinClasses != 3 || e.MinBits != 4.2 || e.MaxWordLen != 20 {
		t.Fatalf("unexpected entropy defaults: %+v", e)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Coverage.SparseThreshold != 5 {
		t.Fatalf("expected defaults, got %+v", cfg.Coverage)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "daybook.yaml")
	yml := `
sessions_dir: /logs
memory_dir: /memory
coverage:
  sparse_threshold: 8.5
summarize:
  backend: anthropic
  api_key: from-file
  timeout: 30s
scan:
  workers: 2
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SessionsDir != "/logs" || cfg.MemoryDir != "/memory" {
		t.Fatalf("unexpected dirs: %q %q", cfg.SessionsDir, cfg.MemoryDir)
	}
	if cfg.Coverage.SparseThreshold != 8.5 {
		t.Fatalf("expected 8.5, got %v", cfg.Coverage.SparseThreshold)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Coverage.MinValidSize != 100 {
		t.Fatalf("expected default min valid size, got %d", cfg.Coverage.MinValidSize)
	}
	if cfg.Summarize.Timeout != 30*time.Second {
		t.Fatalf("expected 30s, got %v", cfg.Summarize.Timeout)
	}
	if cfg.Scan.Workers != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.Scan.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "daybook.yaml")
	if err := os.WriteFile(path, []byte("coverage: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "daybook.yaml")
	if err := os.WriteFile(path, []byte("coverage:\n  sparse_threshold: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DAYBOOK_SPARSE_THRESHOLD", "3.5")
	t.Setenv("DAYBOOK_SUMMARIZER_TIMEOUT", "5s")
	t.Setenv("DAYBOOK_WORKERS", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Coverage.SparseThreshold != 3.5 {
		t.Fatalf("expected env to win, got %v", cfg.Coverage.SparseThreshold)
	}
	if cfg.Summarize.Timeout != 5*time.Second {
		t.Fatalf("expected 5s, got %v", cfg.Summarize.Timeout)
	}
	if cfg.Scan.Workers != 4 {
		t.Fatalf("expected unparsable env to keep default, got %d", cfg.Scan.Workers)
	}
}

func TestLoad_BackendKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("DAYBOOK_SUMMARIZER", "openai")
	t.Setenv("OPENAI_API_KEY", "from-openai-var")

	cfg, _ := Load("")
	if cfg.Summarize.APIKey != "from-openai-var" {
		t.Fatalf("expected backend key fallback, got %q", cfg.Summarize.APIKey)
	}

	t.Setenv("DAYBOOK_API_KEY", "explicit")
	cfg, _ = Load("")
	if cfg.Summarize.APIKey != "explicit" {
		t.Fatalf("expected DAYBOOK_API_KEY to win, got %q", cfg.Summarize.APIKey)
	}
}

func validConfig() Config {
	cfg := Default()
	cfg.SessionsDir = "/logs"
	cfg.MemoryDir = "/memory"
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"sessions dir", func(c *Config) { c.SessionsDir = "" }, "sessions directory"},
		{"threshold", func(c *Config) { c.Coverage.SparseThreshold = 0 }, "sparse threshold"},
		{"entropy length", func(c *Config) { c.Sanitize.EntropyMinLength = 4 }, "entropy min length"},
		{"entropy classes", func(c *Config) { c.Sanitize.EntropyMinClasses = 5 }, "entropy min classes"},
		{"backend", func(c *Config) { c.Summarize.Backend = "markov" }, "unknown summarizer"},
		{"api key", func(c *Config) { c.Summarize.Backend = "genai" }, "needs an API key"},
		{"timeout", func(c *Config) { c.Summarize.Timeout = 0 }, "timeout"},
		{"workers", func(c *Config) { c.Scan.Workers = 0 }, "workers"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.SessionsDir = ""
	cfg.MemoryDir = ""
	cfg.Scan.Workers = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if n := len(strings.Split(err.Error(), "\n")); n != 3 {
		t.Fatalf("expected 3 joined errors, got %d: %v", n, err)
	}
}
