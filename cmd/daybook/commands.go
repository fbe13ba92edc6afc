package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/daybook/internal/compose"
	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/pipeline"
)

func compareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Report active days without an adequate memory file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Compare(ctx)
				return err
			})
		},
	}
}

func backfillCmd(a *app) *cobra.Command {
	var (
		date, since                    string
		today, allMissing, incremental bool
		includeSparse, dryRun          bool
		force, preserve, narrative     bool
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Write memory files for the selected dates",
		Long: `Write memory files for the selected dates. Exactly one of --date, --today,
--since, --all-missing or --incremental picks the dates.

Existing files are skipped unless --force replaces them or --preserve keeps
everything after their footer marker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := selection(date, since, today, allMissing, incremental)
			if err != nil {
				return err
			}
			sel.IncludeSparse = includeSparse
			opts := compose.Options{Preserve: preserve, Overwrite: force, DryRun: dryRun}
			if narrative {
				opts.Mode = compose.Narrative
			}
			return a.run(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Backfill(ctx, sel, opts)
				return err
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&date, "date", "", "process one date (YYYY-MM-DD)")
	f.BoolVar(&today, "today", false, "process today")
	f.StringVar(&since, "since", "", "process every active date from this one on (YYYY-MM-DD)")
	f.BoolVar(&allMissing, "all-missing", false, "process every date without a memory file")
	f.BoolVar(&incremental, "incremental", false, "process dates whose logs changed since the last run")
	f.BoolVar(&includeSparse, "include-sparse", false, "with --all-missing, also regenerate sparse files")
	f.BoolVar(&dryRun, "dry-run", false, "compose without writing files or run state")
	f.BoolVar(&force, "force", false, "overwrite existing files")
	f.BoolVar(&preserve, "preserve", false, "keep the hand-written part of existing files")
	f.BoolVar(&narrative, "narrative", false, "ask the configured summarizer for the generated part")
	cmd.MarkFlagsMutuallyExclusive("date", "today", "since", "all-missing", "incremental")
	cmd.MarkFlagsOneRequired("date", "today", "since", "all-missing", "incremental")
	cmd.MarkFlagsMutuallyExclusive("force", "preserve")
	return cmd
}

// selection turns the backfill mode flags into a Selection.
func selection(date, since string, today, allMissing, incremental bool) (pipeline.Selection, error) {
	switch {
	case date != "":
		d, err := model.ParseDate(date)
		if err != nil {
			return pipeline.Selection{}, fmt.Errorf("--date: %w", err)
		}
		return pipeline.Selection{Mode: pipeline.SingleDate, Date: d}, nil
	case since != "":
		d, err := model.ParseDate(since)
		if err != nil {
			return pipeline.Selection{}, fmt.Errorf("--since: %w", err)
		}
		return pipeline.Selection{Mode: pipeline.SinceDate, Date: d}, nil
	case today:
		return pipeline.Selection{Mode: pipeline.Today}, nil
	case allMissing:
		return pipeline.Selection{Mode: pipeline.AllMissing}, nil
	case incremental:
		return pipeline.Selection{Mode: pipeline.Incremental}, nil
	default:
		return pipeline.Selection{}, errors.New("choose one of --date, --today, --since, --all-missing, --incremental")
	}
}

func transitionsCmd(a *app) *cobra.Command {
	var (
		since   string
		export  string
		backups int
	)
	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "List model switches with the message that preceded them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var d model.Date
			if since != "" {
				var err error
				if d, err = model.ParseDate(since); err != nil {
					return fmt.Errorf("--since: %w", err)
				}
			}
			return a.run(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				r, err := p.Transitions(ctx, d)
				if err != nil || export == "" {
					return err
				}
				_, err = p.ExportTransitions(ctx, r, export, backups)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "only transitions on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&export, "export", "", "also write the transitions as JSON to this file")
	cmd.Flags().IntVar(&backups, "backups", 0, "previous exports to keep as <file>.1 ... <file>.N")
	return cmd
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check memory files for naming, header, size and orphan problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Validate(ctx)
				return err
			})
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize session logs and memory files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Stats(ctx)
				return err
			})
		},
	}
}

func extractCmd(a *app) *cobra.Command {
	var (
		date, query, modelID string
		markdown             bool
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print messages matching a date, text or model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := pipeline.Query{Text: query, Model: modelID, Markdown: markdown}
			if date != "" {
				d, err := model.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				q.Date = d
			}
			return a.run(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
				_, err := p.Extract(ctx, q)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "only messages on this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&query, "query", "", "only messages containing this text")
	cmd.Flags().StringVar(&modelID, "model", "", "only messages from a matching model")
	cmd.Flags().BoolVar(&markdown, "md", false, "render text output as markdown")
	return cmd
}

func sanitizeCmd(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "sanitize [text...]",
		Short: "Redact secrets from the arguments or standard input",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(data)
			}
			w := cmd.OutOrStdout()
			if check {
				fmt.Fprintf(w, "sensitivity: %s\n", a.san.Classify(text))
				for _, v := range a.san.Validate(text) {
					fmt.Fprintf(w, "  %s\n", v)
				}
				return nil
			}
			out, err := a.san.SafeSanitize(text)
			if err != nil {
				return err
			}
			fmt.Fprint(w, out)
			if !strings.HasSuffix(out, "\n") {
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "classify the text and list what would be redacted")
	return cmd
}
