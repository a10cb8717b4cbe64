// Package motion derives the relative motion signal from the paired IMUs.
// Subtracting the grip reference from the tip reading cancels common hand
// tremor and whole-hand travel, leaving the fine pen motion that encodes
// the written shape.
package motion

import "github.com/penovate/penstream/internal/pen"

// Relative returns tip minus grip for the six motion components, in channel
// order (accel x/y/z, gyro x/y/z). Stateless and deterministic; it cannot
// produce NaN for finite inputs.
func Relative(tip, grip pen.MotionReading) [6]float64 {
	a := tip.Components()
	b := grip.Components()

	var out [6]float64
	for i := range out {
		out[i] = a[i] - b[i]
	}
	return out
}
