package filter

import (
	"fmt"
	"math"
)

// ButterworthLP designs a lowpass Butterworth cascade for the given cutoff
// frequency (Hz), filter order, and sample rate (Hz). Coefficients are
// derived once at construction time, never per sample.
//
// Even orders produce order/2 biquad sections; odd orders append a final
// first-order section (B2=A2=0).
func ButterworthLP(cutoff float64, order int, sampleRate float64) ([]Coefficients, error) {
	if order <= 0 {
		return nil, fmt.Errorf("filter: order must be positive, got %d", order)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("filter: sample rate must be positive, got %g", sampleRate)
	}
	if cutoff <= 0 || cutoff >= sampleRate/2 {
		return nil, fmt.Errorf("filter: cutoff %g Hz outside (0, %g) for sample rate %g Hz",
			cutoff, sampleRate/2, sampleRate)
	}

	sections := make([]Coefficients, 0, (order+1)/2)
	n2 := order / 2
	for i := n2 - 1; i >= 0; i-- {
		q := butterworthQ(order, i)
		sections = append(sections, lowpassBiquad(cutoff, q, sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, firstOrderLP(cutoff, sampleRate))
	}
	return sections, nil
}

// butterworthQ returns the quality factor for Butterworth section index,
// with index in [0, order/2).
func butterworthQ(order, index int) float64 {
	theta := math.Pi * float64(2*index+1) / (2 * float64(order))
	s := math.Sin(theta)
	if s == 0 {
		return 1 / math.Sqrt2
	}
	return 1 / (2 * s)
}

// lowpassBiquad designs one lowpass biquad at freq (Hz) with quality factor
// q via the bilinear transform (RBJ cookbook form), normalized to a0=1.
func lowpassBiquad(freq, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	a0 := 1 + alpha
	return Coefficients{
		B0: (1 - cw) / 2 / a0,
		B1: (1 - cw) / a0,
		B2: (1 - cw) / 2 / a0,
		A1: -2 * cw / a0,
		A2: (1 - alpha) / a0,
	}
}

// firstOrderLP designs the first-order section used by odd-order cascades.
func firstOrderLP(freq, sampleRate float64) Coefficients {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)
	return Coefficients{
		B0: k * norm,
		B1: k * norm,
		A1: (k - 1) * norm,
	}
}
