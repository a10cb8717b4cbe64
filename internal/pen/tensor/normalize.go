// Package tensor converts finalized stroke windows into fixed-length,
// per-channel normalized tensors for the recognition layer.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/penovate/penstream/internal/pen"
)

// Policy selects how one channel is rescaled to the target range.
type Policy int

const (
	// PolicyFixedBounds rescales with design-time bounds. Needs no
	// look-ahead, so it is reproducible sample-by-sample; values outside
	// the bounds are clamped to keep outputs within the target range.
	PolicyFixedBounds Policy = iota
	// PolicyPerWindow rescales with the min/max observed over the whole
	// window. Requires the complete window; used for channels that cannot
	// carry fixed bounds (e.g. pressure varies per writer).
	PolicyPerWindow
)

func (p Policy) String() string {
	switch p {
	case PolicyFixedBounds:
		return "fixed"
	case PolicyPerWindow:
		return "per_window"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "fixed":
		return PolicyFixedBounds, nil
	case "per_window":
		return PolicyPerWindow, nil
	default:
		return 0, fmt.Errorf("tensor: unknown normalization policy %q", s)
	}
}

// Range is the target numeric range channels are rescaled into.
type Range struct {
	Lo, Hi float64
}

// The two supported target ranges.
var (
	RangeUnit      = Range{Lo: 0, Hi: 1}
	RangeSymmetric = Range{Lo: -1, Hi: 1}
)

// Neutral is the value substituted for a degenerate (zero-variance) channel
// under the per-window policy: the midpoint of the target range.
func (r Range) Neutral() float64 { return (r.Lo + r.Hi) / 2 }

func (r Range) valid() bool { return r.Hi > r.Lo }

// ChannelSpec declares the normalization policy for one channel. The policy
// per channel is fixed at construction time, never switched at runtime.
type ChannelSpec struct {
	Policy Policy
	// Min and Max are the design-time bounds for PolicyFixedBounds;
	// ignored under PolicyPerWindow.
	Min, Max float64
}

// Normalizer rescales each channel of a stroke window independently into the
// target range.
type Normalizer struct {
	target Range
	specs  [pen.NumChannels]ChannelSpec
}

// NewNormalizer validates the per-channel specs and target range.
func NewNormalizer(target Range, specs [pen.NumChannels]ChannelSpec) (*Normalizer, error) {
	if !target.valid() {
		return nil, fmt.Errorf("tensor: invalid target range [%g, %g]", target.Lo, target.Hi)
	}
	for i, spec := range specs {
		if spec.Policy == PolicyFixedBounds && spec.Max <= spec.Min {
			return nil, fmt.Errorf("tensor: channel %s: fixed bounds [%g, %g] are degenerate",
				pen.ChannelNames[i], spec.Min, spec.Max)
		}
	}
	return &Normalizer{target: target, specs: specs}, nil
}

// Target returns the configured target range.
func (n *Normalizer) Target() Range { return n.target }

// Normalize produces a new row set from the window; the window itself is
// left untouched. degenerate counts the channels that had zero variance
// under the per-window policy and were replaced by the neutral value.
func (n *Normalizer) Normalize(w *pen.StrokeWindow) (rows [][pen.NumChannels]float64, degenerate int) {
	rows = make([][pen.NumChannels]float64, len(w.Frames))

	col := make([]float64, len(w.Frames))
	for ch := 0; ch < pen.NumChannels; ch++ {
		for i, fr := range w.Frames {
			col[i] = fr.Values[ch]
		}

		spec := n.specs[ch]
		lo, hi := spec.Min, spec.Max
		if spec.Policy == PolicyPerWindow {
			lo, hi = floats.Min(col), floats.Max(col)
			if hi == lo {
				// Zero variance: substitute the neutral value rather
				// than dividing by zero.
				for i := range rows {
					rows[i][ch] = n.target.Neutral()
				}
				degenerate++
				continue
			}
		}

		span := n.target.Hi - n.target.Lo
		for i, v := range col {
			u := (v - lo) / (hi - lo)
			if spec.Policy == PolicyFixedBounds {
				if u < 0 {
					u = 0
				} else if u > 1 {
					u = 1
				}
			}
			rows[i][ch] = n.target.Lo + u*span
		}
	}
	return rows, degenerate
}
