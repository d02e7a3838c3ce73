package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatSessions writes operator sessions as a table.
// Returns the number of rows formatted.
func FormatSessions(w io.Writer, sessions []ledger.OperatorSession) int {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No operator sessions found")
		return 0
	}

	fmt.Fprintf(w, "%-6s %-12s %-20s %-7s %s\n", "ID", "OPERATOR", "NAME", "STATUS", "TIME (UTC)")
	fmt.Fprintf(w, "%-6s %-12s %-20s %-7s %s\n", "------", "------------", "--------------------", "-------", "-------------------")
	for _, s := range sessions {
		fmt.Fprintf(w, "%-6d %-12s %-20s %-7s %s\n",
			s.ID,
			truncate(s.OperatorID, 12),
			truncate(s.OperatorName, 20),
			s.Status,
			formatTime(s.CreatedAt),
		)
	}

	printCount(w, len(sessions), "session")
	return len(sessions)
}

// FormatRuns writes product runs as a table.
func FormatRuns(w io.Writer, runs []ledger.ProductRun) int {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No product runs found")
		return 0
	}

	fmt.Fprintf(w, "%-6s %-12s %-16s %-6s %-20s %s\n", "ID", "MACHINE", "PRODUCT", "ACTION", "OPERATOR", "TIME (UTC)")
	fmt.Fprintf(w, "%-6s %-12s %-16s %-6s %-20s %s\n", "------", "------------", "----------------", "------", "--------------------", "-------------------")
	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-12s %-16s %-6s %-20s %s\n",
			r.ID,
			truncate(r.MachineID, 12),
			truncate(r.ProductID, 16),
			r.Action,
			dash(truncate(r.OperatorName, 20)),
			formatTime(r.CreatedAt),
		)
	}

	printCount(w, len(runs), "run")
	return len(runs)
}

// FormatSamples writes telemetry samples as a table.
func FormatSamples(w io.Writer, samples []ledger.TelemetrySample) int {
	if len(samples) == 0 {
		fmt.Fprintln(w, "No telemetry samples found")
		return 0
	}

	fmt.Fprintf(w, "%-6s %-12s %-24s %-10s %-19s %s\n", "ID", "MACHINE", "TAG", "VALUE", "TIME (UTC)", "DEVICE TIME")
	fmt.Fprintf(w, "%-6s %-12s %-24s %-10s %-19s %s\n", "------", "------------", "------------------------", "----------", "-------------------", "-----------")
	for _, s := range samples {
		fmt.Fprintf(w, "%-6d %-12s %-24s %-10s %-19s %s\n",
			s.ID,
			dash(truncate(s.MachineID, 12)),
			truncate(s.TagName, 24),
			strconv.FormatFloat(s.TagValue, 'g', -1, 64),
			formatTime(s.CreatedAt),
			dash(s.RecordedAt),
		)
	}

	printCount(w, len(samples), "sample")
	return len(samples)
}

// FormatJSONL writes rows as line-delimited JSON, one object per line.
func FormatJSONL[T any](w io.Writer, rows []T) error {
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

func printCount(w io.Writer, n int, noun string) {
	if n != 1 {
		noun += "s"
	}
	fmt.Fprintf(w, "\n%d %s found\n", n, noun)
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}
