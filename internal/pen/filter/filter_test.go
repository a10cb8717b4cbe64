package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButterworthLP_Design(t *testing.T) {
	t.Parallel()

	t.Run("order 2 produces one biquad", func(t *testing.T) {
		t.Parallel()
		cs, err := ButterworthLP(20, 2, 100)
		require.NoError(t, err)
		require.Len(t, cs, 1)
		assert.NotZero(t, cs[0].B0)
		assert.NotZero(t, cs[0].A2)
	})

	t.Run("odd order appends first-order section", func(t *testing.T) {
		t.Parallel()
		cs, err := ButterworthLP(20, 3, 100)
		require.NoError(t, err)
		require.Len(t, cs, 2)
		last := cs[len(cs)-1]
		assert.Zero(t, last.B2)
		assert.Zero(t, last.A2)
	})

	t.Run("unity DC gain per section", func(t *testing.T) {
		t.Parallel()
		cs, err := ButterworthLP(20, 4, 100)
		require.NoError(t, err)
		for _, c := range cs {
			// H(1) = (B0+B1+B2)/(1+A1+A2) must be 1 at DC for a lowpass.
			dc := (c.B0 + c.B1 + c.B2) / (1 + c.A1 + c.A2)
			assert.InDelta(t, 1.0, dc, 1e-9)
		}
	})

	t.Run("rejects invalid parameters", func(t *testing.T) {
		t.Parallel()
		_, err := ButterworthLP(20, 0, 100)
		assert.Error(t, err)
		_, err = ButterworthLP(0, 2, 100)
		assert.Error(t, err)
		_, err = ButterworthLP(60, 2, 100) // above Nyquist
		assert.Error(t, err)
		_, err = ButterworthLP(20, 2, 0)
		assert.Error(t, err)
	})
}

func TestChain_SettlesToDC(t *testing.T) {
	t.Parallel()

	cs, err := ButterworthLP(20, 2, 100)
	require.NoError(t, err)
	chain := NewChain(cs)

	var y float64
	for i := 0; i < 500; i++ {
		y = chain.ProcessSample(1.0)
	}
	assert.InDelta(t, 1.0, y, 1e-6, "lowpass must pass DC after warm-up")
}

func TestChain_WarmUpFromZeroState(t *testing.T) {
	t.Parallel()

	cs, err := ButterworthLP(20, 2, 100)
	require.NoError(t, err)
	chain := NewChain(cs)

	// With zero history the first output of a step input is attenuated,
	// not equal to the input.
	y0 := chain.ProcessSample(1.0)
	assert.Less(t, y0, 1.0)
	assert.Greater(t, y0, 0.0)
}

func TestChain_Deterministic(t *testing.T) {
	t.Parallel()

	cs, err := ButterworthLP(20, 2, 100)
	require.NoError(t, err)

	input := make([]float64, 200)
	for i := range input {
		input[i] = math.Sin(2*math.Pi*5*float64(i)/100) + 0.3*math.Sin(2*math.Pi*40*float64(i)/100)
	}

	run := func() []float64 {
		chain := NewChain(cs)
		out := make([]float64, len(input))
		for i, x := range input {
			out[i] = chain.ProcessSample(x)
		}
		return out
	}

	assert.Equal(t, run(), run(), "same input through fresh chains must be identical")
}

func TestChain_AttenuatesAboveCutoff(t *testing.T) {
	t.Parallel()

	cs, err := ButterworthLP(5, 2, 100)
	require.NoError(t, err)
	chain := NewChain(cs)

	// 40 Hz tone at 100 Hz sampling, well above the 5 Hz cutoff.
	var peak float64
	for i := 0; i < 1000; i++ {
		y := chain.ProcessSample(math.Sin(2 * math.Pi * 40 * float64(i) / 100))
		if i > 200 && math.Abs(y) > peak {
			peak = math.Abs(y)
		}
	}
	assert.Less(t, peak, 0.05, "stopband tone must be strongly attenuated")
}

func TestChain_StateContinuity(t *testing.T) {
	t.Parallel()

	cs, err := ButterworthLP(20, 2, 100)
	require.NoError(t, err)

	input := make([]float64, 100)
	for i := range input {
		input[i] = math.Sin(2 * math.Pi * 3 * float64(i) / 100)
	}

	// One continuous pass.
	cont := NewChain(cs)
	want := make([]float64, len(input))
	for i, x := range input {
		want[i] = cont.ProcessSample(x)
	}

	// Same pass split at an arbitrary "stroke boundary": no reset between
	// halves, so output must be numerically identical.
	split := NewChain(cs)
	got := make([]float64, len(input))
	for i, x := range input[:40] {
		got[i] = split.ProcessSample(x)
	}
	for i, x := range input[40:] {
		got[40+i] = split.ProcessSample(x)
	}

	assert.Equal(t, want, got)
}

func TestChain_Reset(t *testing.T) {
	t.Parallel()

	cs, err := ButterworthLP(20, 2, 100)
	require.NoError(t, err)
	chain := NewChain(cs)

	first := chain.ProcessSample(1.0)
	for i := 0; i < 50; i++ {
		chain.ProcessSample(1.0)
	}
	chain.Reset()
	assert.Equal(t, first, chain.ProcessSample(1.0), "reset must restore warm-up behaviour")
}
