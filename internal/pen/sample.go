// Package pen defines the data model for the pen sensor stream: raw samples
// from the dual-IMU + pressure hardware, preprocessed frames, and stroke
// windows bounded by pressure rise/fall events.
package pen

import (
	"errors"
	"fmt"
	"math"
)

// NumChannels is the width of every preprocessed frame and emitted tensor:
// the six relative-motion components followed by the pressure channel.
const NumChannels = 7

// Channel indices into Frame.Values and tensor rows.
const (
	ChanRelAccelX = iota
	ChanRelAccelY
	ChanRelAccelZ
	ChanRelGyroX
	ChanRelGyroY
	ChanRelGyroZ
	ChanPressure
)

// ChannelNames maps channel indices to stable names used in configuration
// and storage.
var ChannelNames = [NumChannels]string{
	"rel_accel_x",
	"rel_accel_y",
	"rel_accel_z",
	"rel_gyro_x",
	"rel_gyro_y",
	"rel_gyro_z",
	"pressure",
}

// ChannelIndex returns the index for a channel name, or -1 if unknown.
func ChannelIndex(name string) int {
	for i, n := range ChannelNames {
		if n == name {
			return i
		}
	}
	return -1
}

// MotionReading is one IMU reading: accelerometer and gyroscope, three axes
// each. Units are whatever the firmware streams; the pipeline never assumes
// a physical scale.
type MotionReading struct {
	AccelX float64
	AccelY float64
	AccelZ float64
	GyroX  float64
	GyroY  float64
	GyroZ  float64
}

// Components returns the six motion values in channel order.
func (m MotionReading) Components() [6]float64 {
	return [6]float64{m.AccelX, m.AccelY, m.AccelZ, m.GyroX, m.GyroY, m.GyroZ}
}

func (m MotionReading) hasBadValue() bool {
	for _, v := range m.Components() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Sample is one timestamped reading from the pen: the tip IMU, the grip
// reference IMU, and the FSR contact pressure. All channels share the same
// sampling instant.
type Sample struct {
	TSUnixNanos int64
	Tip         MotionReading
	Grip        MotionReading
	Pressure    float64
}

// ErrMalformedSample reports a sample carrying NaN or infinite values. It is
// fatal to the stream: the orchestrator stops and must be restarted.
var ErrMalformedSample = errors.New("pen: malformed sample")

// Validate rejects samples with NaN or infinite fields.
func (s Sample) Validate() error {
	if s.Tip.hasBadValue() || s.Grip.hasBadValue() ||
		math.IsNaN(s.Pressure) || math.IsInf(s.Pressure, 0) {
		return fmt.Errorf("%w: non-finite value at ts=%d", ErrMalformedSample, s.TSUnixNanos)
	}
	return nil
}

// Frame is one fully preprocessed timestep: the filtered relative motion of
// tip vs grip plus the filtered pressure, in channel order.
type Frame struct {
	TSUnixNanos int64
	Values      [NumChannels]float64
}

// StrokeWindow is an ordered run of frames bounded by a detected pressure
// rise and a detected pressure fall. Created by the segmenter; consumed by
// the normalizer and padder, which produce new outputs rather than mutating
// the window.
type StrokeWindow struct {
	Frames []Frame
}

// Len returns the number of frames in the window.
func (w *StrokeWindow) Len() int { return len(w.Frames) }

// StartTSUnixNanos returns the timestamp of the first frame, or 0 for an
// empty window.
func (w *StrokeWindow) StartTSUnixNanos() int64 {
	if len(w.Frames) == 0 {
		return 0
	}
	return w.Frames[0].TSUnixNanos
}

// EndTSUnixNanos returns the timestamp of the last frame, or 0 for an empty
// window.
func (w *StrokeWindow) EndTSUnixNanos() int64 {
	if len(w.Frames) == 0 {
		return 0
	}
	return w.Frames[len(w.Frames)-1].TSUnixNanos
}
