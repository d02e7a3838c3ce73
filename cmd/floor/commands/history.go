package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobiAdawiya/andalan-solution/internal/history"
	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/internal/timespec"
)

type historyFlags struct {
	output  string
	since   string
	until   string
	machine string
	limit   int
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded sessions, product runs and telemetry",
		Long: `Inspect the ledger.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one row per line

Time Filters:
  --since  - Show rows recorded at or after this time
  --until  - Show rows recorded at or before this time

Examples:
  # Operator check-ins and check-outs of the last shift
  floor history sessions --since=8h

  # Product runs on one machine as JSONL
  floor history runs --machine=M1 --output=jsonl | jq .product_id

  # Latest 50 telemetry samples
  floor history telemetry --limit=50`,
	}

	for _, kind := range []history.Kind{history.KindSessions, history.KindRuns, history.KindTelemetry} {
		cmd.AddCommand(newHistoryListCmd(opts, kind))
	}
	return cmd
}

func newHistoryListCmd(opts *globalOptions, kind history.Kind) *cobra.Command {
	flags := &historyFlags{}

	cmd := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("List recorded %s", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts, kind, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "default", "Output format: default or jsonl")
	cmd.Flags().StringVar(&flags.since, "since", "", "Show rows after time (duration or RFC3339)")
	cmd.Flags().StringVar(&flags.until, "until", "", "Show rows before time (duration or RFC3339)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Show only the most recent N rows (0 = all)")
	if kind != history.KindSessions {
		cmd.Flags().StringVar(&flags.machine, "machine", "", "Filter by machine id (exact match)")
	}
	return cmd
}

func runHistory(cmd *cobra.Command, opts *globalOptions, kind history.Kind, flags *historyFlags) error {
	p := newPrinter(cmd)

	format := history.OutputFormat(flags.output)
	if format != history.OutputFormatDefault && format != history.OutputFormatJSONL {
		return p.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", flags.output),
			[]string{"Valid formats: default, jsonl"},
		)
	}
	if flags.limit < 0 {
		return p.Error("invalid limit", fmt.Sprintf("--limit must be >= 0, got %d", flags.limit), nil)
	}

	since, until, err := timespec.ParseRange(flags.since, flags.until, time.Now())
	if err != nil {
		return p.Error(
			"invalid time range",
			err.Error(),
			[]string{"Use a duration like '2h' or an RFC3339 time like '2025-10-29T13:00:00Z'"},
		)
	}

	cfg, err := opts.loadConfig(p)
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return p.ErrorWithContext("ledger unavailable", err.Error(), map[string]string{"path": cfg.Ledger.Path}, nil)
	}
	defer store.Close()

	filter := ledger.HistoryFilter{
		Since:     since,
		Until:     until,
		MachineID: flags.machine,
		Limit:     flags.limit,
	}
	return history.List(context.Background(), store, kind, filter, format, cmd.OutOrStdout())
}
