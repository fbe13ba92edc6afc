package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/daybook/internal/compose"
	"github.com/crimson-sun/daybook/internal/config"
	"github.com/crimson-sun/daybook/internal/logging"
	"github.com/crimson-sun/daybook/internal/output"
	"github.com/crimson-sun/daybook/internal/output/file"
	"github.com/crimson-sun/daybook/internal/output/multi"
	"github.com/crimson-sun/daybook/internal/output/stdout"
	"github.com/crimson-sun/daybook/internal/pipeline"
	"github.com/crimson-sun/daybook/internal/reader"
	"github.com/crimson-sun/daybook/internal/sanitize"
	"github.com/crimson-sun/daybook/internal/state"
	"github.com/crimson-sun/daybook/internal/summarize"

	// Register summarizer backends.
	_ "github.com/crimson-sun/daybook/internal/summarize/anthropic"
	_ "github.com/crimson-sun/daybook/internal/summarize/gemini"
	_ "github.com/crimson-sun/daybook/internal/summarize/openai"
)

var Version = "dev"

// app carries what every subcommand shares once the root has run.
type app struct {
	configPath  string
	sessionsDir string
	memoryDir   string
	format      string
	reportFile  string

	cfg    config.Config
	logger *zap.Logger
	san    *sanitize.Sanitizer
	runID  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "daybook:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "daybook",
		Short:         "Turn agent session logs into daily memory files",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", os.Getenv("DAYBOOK_CONFIG"), "YAML config file")
	pf.StringVar(&a.sessionsDir, "sessions", "", "session log directory (overrides config)")
	pf.StringVar(&a.memoryDir, "memory", "", "artifact directory (overrides config)")
	pf.StringVarP(&a.format, "format", "f", "text", "report format: text or json")
	pf.StringVar(&a.reportFile, "report-file", "", "also write the report to this file")

	root.AddCommand(
		compareCmd(a),
		backfillCmd(a),
		transitionsCmd(a),
		validateCmd(a),
		statsCmd(a),
		extractCmd(a),
		sanitizeCmd(a),
	)
	return root
}

// setup loads configuration, builds the logger and the sanitizer. A
// sanitizer that cannot be built stops every command.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.sessionsDir != "" {
		cfg.SessionsDir = a.sessionsDir
	}
	if a.memoryDir != "" {
		cfg.MemoryDir = a.memoryDir
	}
	a.cfg = cfg
	a.runID = uuid.NewString()
	a.logger = logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format).
		With(zap.String("run_id", a.runID))

	san, err := sanitize.New(
		sanitize.WithEntropy(cfg.Sanitize.Entropy()),
		sanitize.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.san = san
	return nil
}

// output builds the report destination: stdout, plus the report file when
// one was given.
func (a *app) output(cmd *cobra.Command) (output.Output, error) {
	f, err := output.ParseFormat(a.format)
	if err != nil {
		return nil, err
	}
	out := output.Output(stdout.New(cmd.OutOrStdout(), f, a.san))
	if a.reportFile != "" {
		out = multi.New(out, file.New(a.reportFile, a.san))
	}
	return out, nil
}

// pipeline validates the configuration and assembles a Pipeline.
func (a *app) pipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	out, err := a.output(cmd)
	if err != nil {
		return nil, err
	}

	composeOpts := []compose.Option{
		compose.WithLogger(a.logger),
		compose.WithMaxInputChars(a.cfg.Summarize.MaxInputChars),
	}
	if a.cfg.Summarize.Backend != "none" {
		s, err := summarize.New(summarize.Config{
			Backend:  a.cfg.Summarize.Backend,
			Model:    a.cfg.Summarize.Model,
			APIKey:   a.cfg.Summarize.APIKey,
			Endpoint: a.cfg.Summarize.Endpoint,
			Timeout:  a.cfg.Summarize.Timeout,
		})
		if err != nil {
			return nil, err
		}
		composeOpts = append(composeOpts, compose.WithSummarizer(s))
	}

	return pipeline.New(pipeline.Config{
		SessionsDir:     a.cfg.SessionsDir,
		MemoryDir:       a.cfg.MemoryDir,
		SparseThreshold: a.cfg.Coverage.SparseThreshold,
		MinValidSize:    a.cfg.Coverage.MinValidSize,
	}, a.san,
		pipeline.WithReader(reader.New(reader.WithLogger(a.logger), reader.WithWorkers(a.cfg.Scan.Workers))),
		pipeline.WithComposer(compose.New(a.san, composeOpts...)),
		pipeline.WithStore(state.NewStore(a.cfg.StateFile, a.logger)),
		pipeline.WithOutput(out),
		pipeline.WithLogger(a.logger),
		pipeline.WithRunID(a.runID),
	)
}

// run builds a pipeline, calls fn and closes the pipeline, keeping the
// first error.
func (a *app) run(cmd *cobra.Command, fn func(context.Context, *pipeline.Pipeline) error) error {
	p, err := a.pipeline(cmd)
	if err != nil {
		return err
	}
	err = fn(cmd.Context(), p)
	if cerr := p.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if errors.Is(err, context.Canceled) {
		a.logger.Warn("interrupted")
	}
	return err
}
