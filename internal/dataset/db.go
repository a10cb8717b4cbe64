// Package dataset persists emitted stroke tensors for model training. It is
// a consumer of the pipeline's output stream, not part of the pipeline: the
// store subscribes as a sink and the pipeline never depends on it.
package dataset

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/penovate/penstream/internal/pen"
	"github.com/penovate/penstream/internal/pen/pipeline"
)

// DB wraps the sqlite handle for the stroke dataset.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the dataset database at path and
// applies pending schema migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("dataset: migration failed: %w", err)
	}
	return db, nil
}

// StrokeRecord is one stored stroke with its label and metadata.
type StrokeRecord struct {
	StrokeID           string
	Label              string
	StartTSUnixNanos   int64
	EndTSUnixNanos     int64
	RowCount           int
	Truncated          bool
	DegenerateChannels int
	SkippedShort       uint64
	Rows               [][pen.NumChannels]float64
}

// RecordStroke stores one emitted tensor under the given label. The tensor
// rows are serialized as JSON so the export format matches what the training
// side consumes.
func (db *DB) RecordStroke(label string, st *pipeline.StrokeTensor) error {
	if label == "" {
		return fmt.Errorf("dataset: label is required")
	}

	seq, err := json.Marshal(st.Rows)
	if err != nil {
		return fmt.Errorf("dataset: failed to encode sequence: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO strokes (
			stroke_id, label, start_ts_unix_nanos, end_ts_unix_nanos,
			row_count, truncated, degenerate_channels, skipped_short, sequence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.StrokeID, label, st.StartTSUnixNanos, st.EndTSUnixNanos,
		len(st.Rows), boolToInt(st.Truncated), st.DegenerateChannels,
		st.SkippedShortSinceLast, string(seq),
	)
	if err != nil {
		return fmt.Errorf("dataset: failed to insert stroke: %w", err)
	}
	return nil
}

// GetStroke loads one stored stroke by ID.
func (db *DB) GetStroke(strokeID string) (*StrokeRecord, error) {
	row := db.QueryRow(`
		SELECT stroke_id, label, start_ts_unix_nanos, end_ts_unix_nanos,
		       row_count, truncated, degenerate_channels, skipped_short, sequence
		FROM strokes WHERE stroke_id = ?`, strokeID)

	var rec StrokeRecord
	var truncated int
	var seq string
	err := row.Scan(&rec.StrokeID, &rec.Label, &rec.StartTSUnixNanos, &rec.EndTSUnixNanos,
		&rec.RowCount, &truncated, &rec.DegenerateChannels, &rec.SkippedShort, &seq)
	if err != nil {
		return nil, fmt.Errorf("dataset: failed to load stroke %s: %w", strokeID, err)
	}
	rec.Truncated = truncated != 0

	if err := json.Unmarshal([]byte(seq), &rec.Rows); err != nil {
		return nil, fmt.Errorf("dataset: failed to decode sequence for %s: %w", strokeID, err)
	}
	return &rec, nil
}

// StrokeSummary identifies a stored stroke for listing.
type StrokeSummary struct {
	StrokeID string `json:"stroke_id"`
	Label    string `json:"label"`
	RowCount int    `json:"row_count"`
}

// ListStrokes returns up to limit stored strokes, newest first.
func (db *DB) ListStrokes(limit int) ([]StrokeSummary, error) {
	rows, err := db.Query(`
		SELECT stroke_id, label, row_count FROM strokes
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StrokeSummary
	for rows.Next() {
		var s StrokeSummary
		if err := rows.Scan(&s.StrokeID, &s.Label, &s.RowCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LabelCounts returns the number of stored strokes per label, sorted by
// label.
func (db *DB) LabelCounts() ([]LabelCount, error) {
	rows, err := db.Query(`SELECT label, COUNT(*) FROM strokes GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []LabelCount
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Label < counts[j].Label })
	return counts, nil
}

// LabelCount pairs a label with its stored stroke count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// RowCounts returns the pre-padding row count of every stored stroke, in
// insertion order. Used by the report tool for length-distribution charts.
func (db *DB) RowCounts() ([]int, error) {
	rows, err := db.Query(`SELECT row_count FROM strokes ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		counts = append(counts, n)
	}
	return counts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
