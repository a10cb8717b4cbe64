// Package filter implements the per-channel low-pass filtering stage as a
// cascade of second-order IIR sections with persistent state. Filter state
// survives stroke boundaries so the output carries no per-stroke transients;
// the only transient is the initial warm-up from zero state when a chain is
// created.
package filter

// Coefficients holds the transfer function coefficients for a single
// second-order section (biquad). a0 is normalized to 1 and not stored.
//
// The sign convention follows Direct Form II Transposed:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64 // feedforward (numerator)
	A1, A2     float64 // feedback (denominator)
}

// Section is a single biquad with coefficients and internal state,
// implementing Direct Form II Transposed processing.
type Section struct {
	Coefficients

	d0, d1 float64
}

// NewSection returns a Section with the given coefficients and zero state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// ProcessSample filters one input sample and returns the output.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y
	return y
}

// Reset clears the section state back to the warm-up condition.
func (s *Section) Reset() {
	s.d0, s.d1 = 0, 0
}

// Chain is a cascade of sections processing one scalar channel. A Chain is
// the owned FilterState for that channel: it persists for the life of the
// stream and is deliberately never reset at stroke boundaries.
//
// Warm-up policy: a new Chain assumes zero history (all section state zero),
// so the first samples of a stream see the filter settle from zero. This is
// deterministic and reproducible for a given input stream.
type Chain struct {
	sections []*Section
}

// NewChain builds a cascade from the given section coefficients.
func NewChain(cs []Coefficients) *Chain {
	sections := make([]*Section, len(cs))
	for i, c := range cs {
		sections[i] = NewSection(c)
	}
	return &Chain{sections: sections}
}

// ProcessSample runs one sample through every section in order.
func (c *Chain) ProcessSample(x float64) float64 {
	for _, s := range c.sections {
		x = s.ProcessSample(x)
	}
	return x
}

// NumSections returns the number of second-order sections in the cascade.
func (c *Chain) NumSections() int { return len(c.sections) }

// Reset clears all section state. Only intended for explicit stream
// restarts, never for stroke boundaries.
func (c *Chain) Reset() {
	for _, s := range c.sections {
		s.Reset()
	}
}
