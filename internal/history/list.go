package history

import (
	"context"
	"fmt"
	"io"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
)

// OutputFormat specifies how to format listings.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete rows as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Kind selects which ledger table to list.
type Kind string

const (
	KindSessions  Kind = "sessions"
	KindRuns      Kind = "runs"
	KindTelemetry Kind = "telemetry"
)

// Source is the read side of the ledger.
type Source interface {
	ListSessions(ctx context.Context, f ledger.HistoryFilter) ([]ledger.OperatorSession, error)
	ListRuns(ctx context.Context, f ledger.HistoryFilter) ([]ledger.ProductRun, error)
	ListSamples(ctx context.Context, f ledger.HistoryFilter) ([]ledger.TelemetrySample, error)
}

// List reads one ledger table through filter and writes it to w, oldest first.
func List(ctx context.Context, src Source, kind Kind, filter ledger.HistoryFilter, format OutputFormat, w io.Writer) error {
	if format == "" {
		format = OutputFormatDefault
	}
	if format != OutputFormatDefault && format != OutputFormatJSONL {
		return fmt.Errorf("unknown output format: %s", format)
	}

	switch kind {
	case KindSessions:
		rows, err := src.ListSessions(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if format == OutputFormatJSONL {
			return FormatJSONL(w, rows)
		}
		FormatSessions(w, rows)

	case KindRuns:
		rows, err := src.ListRuns(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if format == OutputFormatJSONL {
			return FormatJSONL(w, rows)
		}
		FormatRuns(w, rows)

	case KindTelemetry:
		rows, err := src.ListSamples(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list telemetry: %w", err)
		}
		if format == OutputFormatJSONL {
			return FormatJSONL(w, rows)
		}
		FormatSamples(w, rows)

	default:
		return fmt.Errorf("unknown history kind: %s", kind)
	}
	return nil
}
