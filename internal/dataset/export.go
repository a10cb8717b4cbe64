package dataset

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/penovate/penstream/internal/pen"
)

// ExportSample is one labelled sequence in the combined export.
type ExportSample struct {
	Character      string                     `json:"character"`
	Sequence       [][pen.NumChannels]float64 `json:"sequence"`
	SequenceLength int                        `json:"sequence_length"`
	Truncated      bool                       `json:"truncated,omitempty"`
}

// ExportMetadata summarises the combined export.
type ExportMetadata struct {
	NumSamples          int            `json:"num_samples"`
	Characters          []string       `json:"characters"`
	SamplesPerCharacter map[string]int `json:"samples_per_character"`
}

// Export is the combined dataset document the training side consumes.
type Export struct {
	Data     []ExportSample `json:"data"`
	Metadata ExportMetadata `json:"metadata"`
}

// ExportJSON writes the full combined dataset to w as indented JSON.
func (db *DB) ExportJSON(w io.Writer) error {
	rows, err := db.Query(`
		SELECT label, truncated, sequence FROM strokes ORDER BY label, created_at`)
	if err != nil {
		return fmt.Errorf("dataset: export query failed: %w", err)
	}
	defer rows.Close()

	out := Export{
		Data: []ExportSample{},
		Metadata: ExportMetadata{
			Characters:          []string{},
			SamplesPerCharacter: map[string]int{},
		},
	}

	for rows.Next() {
		var label, seq string
		var truncated int
		if err := rows.Scan(&label, &truncated, &seq); err != nil {
			return err
		}

		var sequence [][pen.NumChannels]float64
		if err := json.Unmarshal([]byte(seq), &sequence); err != nil {
			return fmt.Errorf("dataset: failed to decode stored sequence: %w", err)
		}

		out.Data = append(out.Data, ExportSample{
			Character:      label,
			Sequence:       sequence,
			SequenceLength: len(sequence),
			Truncated:      truncated != 0,
		})
		if out.Metadata.SamplesPerCharacter[label] == 0 {
			out.Metadata.Characters = append(out.Metadata.Characters, label)
		}
		out.Metadata.SamplesPerCharacter[label]++
		out.Metadata.NumSamples++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
