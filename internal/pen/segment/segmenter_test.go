package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penovate/penstream/internal/pen"
)

func frameAt(i int, pressure float64) pen.Frame {
	fr := pen.Frame{TSUnixNanos: int64(i) * 10_000_000} // 100 Hz spacing
	fr.Values[pen.ChanPressure] = pressure
	return fr
}

// feedPressures drives the segmenter with a pressure trace and collects
// emitted windows and skip events.
func feedPressures(t *testing.T, s *Segmenter, pressures []float64) (windows []*pen.StrokeWindow, skips int) {
	t.Helper()
	for i, p := range pressures {
		w, skipped := s.Feed(frameAt(i, p))
		if w != nil {
			windows = append(windows, w)
		}
		if skipped {
			skips++
		}
	}
	return windows, skips
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 2, MinStrokeSamples: 3}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.FallThreshold = 8
	assert.Error(t, bad.Validate(), "fall above rise breaks hysteresis")

	bad = valid
	bad.FallDebounceSamples = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.MinStrokeSamples = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.LookbackSamples = -1
	assert.Error(t, bad.Validate())
}

func TestSegmenter_ReferenceTrace(t *testing.T) {
	t.Parallel()

	s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 2, MinStrokeSamples: 3})
	require.NoError(t, err)

	windows, skips := feedPressures(t, s, []float64{0, 0, 0, 8, 9, 9, 8, 2, 1, 0, 0})

	require.Len(t, windows, 1)
	assert.Zero(t, skips)
	w := windows[0]
	require.Equal(t, 6, w.Len(), "window must span trace indices 3..8")
	assert.Equal(t, int64(3*10_000_000), w.StartTSUnixNanos())
	assert.Equal(t, int64(8*10_000_000), w.EndTSUnixNanos())
	assert.Equal(t, StateIdle, s.State())
}

func TestSegmenter_DebounceBoundary(t *testing.T) {
	t.Parallel()

	t.Run("debounce-1 below-threshold samples do not terminate", func(t *testing.T) {
		t.Parallel()
		s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 3, MinStrokeSamples: 1})
		require.NoError(t, err)

		// Two below-fall samples (debounce-1), then pressure recovers.
		windows, _ := feedPressures(t, s, []float64{8, 8, 1, 1, 8, 8})
		assert.Empty(t, windows)
		assert.Equal(t, StateInStroke, s.State(), "dropout shorter than debounce must not end the stroke")
	})

	t.Run("exactly debounce below-threshold samples terminate", func(t *testing.T) {
		t.Parallel()
		s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 3, MinStrokeSamples: 1})
		require.NoError(t, err)

		windows, _ := feedPressures(t, s, []float64{8, 8, 1, 1, 1})
		require.Len(t, windows, 1)
		assert.Equal(t, 5, windows[0].Len())
		assert.Equal(t, StateIdle, s.State())
	})

	t.Run("recovery resets the debounce run", func(t *testing.T) {
		t.Parallel()
		s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 2, MinStrokeSamples: 1})
		require.NoError(t, err)

		// below, recover, below: never two consecutive below-fall samples.
		windows, _ := feedPressures(t, s, []float64{8, 1, 8, 1, 8})
		assert.Empty(t, windows)
		assert.Equal(t, StateInStroke, s.State())
	})
}

func TestSegmenter_MinStrokeBoundary(t *testing.T) {
	t.Parallel()

	t.Run("min-1 samples discarded as skip", func(t *testing.T) {
		t.Parallel()
		s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 1, MinStrokeSamples: 3})
		require.NoError(t, err)

		// Window: trigger + one debounce sample = 2 frames < 3.
		windows, skips := feedPressures(t, s, []float64{8, 1})
		assert.Empty(t, windows)
		assert.Equal(t, 1, skips)
		assert.Equal(t, StateIdle, s.State())
	})

	t.Run("exactly min samples emitted", func(t *testing.T) {
		t.Parallel()
		s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 1, MinStrokeSamples: 3})
		require.NoError(t, err)

		windows, skips := feedPressures(t, s, []float64{8, 8, 1})
		require.Len(t, windows, 1)
		assert.Zero(t, skips)
		assert.Equal(t, 3, windows[0].Len())
	})
}

func TestSegmenter_Lookback(t *testing.T) {
	t.Parallel()

	s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 1, MinStrokeSamples: 1, LookbackSamples: 2})
	require.NoError(t, err)

	windows, _ := feedPressures(t, s, []float64{0, 1, 2, 8, 1})
	require.Len(t, windows, 1)
	w := windows[0]

	// Two pre-trigger frames (indices 1,2) + trigger (3) + debounce tail (4).
	require.Equal(t, 4, w.Len())
	assert.Equal(t, int64(1*10_000_000), w.StartTSUnixNanos())
	assert.Equal(t, float64(1), w.Frames[0].Values[pen.ChanPressure])
	assert.Equal(t, float64(2), w.Frames[1].Values[pen.ChanPressure])
	assert.Equal(t, float64(8), w.Frames[2].Values[pen.ChanPressure])
}

func TestSegmenter_LookbackClearedBetweenStrokes(t *testing.T) {
	t.Parallel()

	s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 1, MinStrokeSamples: 1, LookbackSamples: 4})
	require.NoError(t, err)

	windows, _ := feedPressures(t, s, []float64{0, 8, 1, 9, 1})
	require.Len(t, windows, 2)

	// Second window must not contain frames from the first stroke: only
	// the post-finalize idle gap may feed its lookback (there is none here).
	assert.Equal(t, 2, windows[1].Len())
	assert.Equal(t, float64(9), windows[1].Frames[0].Values[pen.ChanPressure])
}

func TestSegmenter_NoOverlap(t *testing.T) {
	t.Parallel()

	s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 2, MinStrokeSamples: 1})
	require.NoError(t, err)

	windows, _ := feedPressures(t, s, []float64{8, 8, 1, 1, 0, 9, 9, 1, 1})
	require.Len(t, windows, 2)

	first, second := windows[0], windows[1]
	assert.Less(t, first.EndTSUnixNanos(), second.StartTSUnixNanos(),
		"windows must be disjoint in time")
}

func TestSegmenter_Flush(t *testing.T) {
	t.Parallel()

	s, err := New(Config{RiseThreshold: 7, FallThreshold: 3, FallDebounceSamples: 2, MinStrokeSamples: 1})
	require.NoError(t, err)

	s.Feed(frameAt(0, 8))
	s.Feed(frameAt(1, 8))
	assert.Equal(t, StateInStroke, s.State())

	assert.True(t, s.Flush(), "flush mid-stroke must report a discarded partial window")
	assert.Equal(t, StateIdle, s.State())
	assert.False(t, s.Flush(), "flush while idle discards nothing")
}
