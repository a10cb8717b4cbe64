package tensor

import "github.com/penovate/penstream/internal/pen"

// Pad shapes normalized rows to exactly targetLen rows. Shorter inputs get
// trailing all-zero rows; longer inputs keep their first targetLen rows and
// report truncated. Inputs of exactly targetLen pass through unchanged.
func Pad(rows [][pen.NumChannels]float64, targetLen int) (out [][pen.NumChannels]float64, truncated bool) {
	switch {
	case len(rows) == targetLen:
		return rows, false
	case len(rows) > targetLen:
		return rows[:targetLen], true
	default:
		out = make([][pen.NumChannels]float64, targetLen)
		copy(out, rows)
		return out, false
	}
}
