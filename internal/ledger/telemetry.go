package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// sampleColumnCount is the number of bound parameters per inserted sample.
const sampleColumnCount = 5

// samplesPerStatement keeps a multi-row insert under SQLite's 999 host parameter limit.
const samplesPerStatement = 999 / sampleColumnCount

// AppendSample appends a single telemetry sample and sets sample.ID.
func (s *Store) AppendSample(ctx context.Context, sample *TelemetrySample) error {
	if sample.TagName == "" {
		return fmt.Errorf("write sample: tag_name is required")
	}
	if sample.CreatedAt.IsZero() {
		return fmt.Errorf("write sample: created_at is required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO telemetry_samples (machine_id, tag_name, tag_value, created_at, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		sample.MachineID,
		sample.TagName,
		sample.TagValue,
		sample.CreatedAt.UTC(),
		nullableString(sample.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	sample.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// InsertSamples writes a whole batch in one transaction. Either every sample
// is stored or none is. IDs are not populated.
func (s *Store) InsertSamples(ctx context.Context, samples []TelemetrySample) error {
	if len(samples) == 0 {
		return nil
	}
	for i := range samples {
		if samples[i].TagName == "" {
			return fmt.Errorf("write samples: sample %d: tag_name is required", i)
		}
		if samples[i].CreatedAt.IsZero() {
			return fmt.Errorf("write samples: sample %d: created_at is required", i)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write samples: begin: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(samples); start += samplesPerStatement {
		end := start + samplesPerStatement
		if end > len(samples) {
			end = len(samples)
		}
		query, args := buildSampleInsert(samples[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write samples: commit: %w", err)
	}
	return nil
}

func buildSampleInsert(samples []TelemetrySample) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO telemetry_samples (machine_id, tag_name, tag_value, created_at, recorded_at) VALUES ")

	args := make([]any, 0, len(samples)*sampleColumnCount)
	for i, sample := range samples {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?)")
		args = append(args,
			sample.MachineID,
			sample.TagName,
			sample.TagValue,
			sample.CreatedAt.UTC(),
			nullableString(sample.RecordedAt),
		)
	}
	return b.String(), args
}

// LatestTagValue returns the value of the most recent sample for tag.
// Returns ErrNotFound if the tag has never been reported.
func (s *Store) LatestTagValue(ctx context.Context, tag string) (float64, error) {
	var value float64
	err := s.db.QueryRowContext(ctx, `
		SELECT tag_value
		FROM telemetry_samples
		WHERE tag_name = ?
		ORDER BY id DESC
		LIMIT 1
	`, tag).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read tag %s: %w", tag, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read tag %s: %w", tag, err)
	}
	return value, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
