package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penovate/penstream/internal/pen"
	"github.com/penovate/penstream/internal/pen/pipeline"
	"github.com/penovate/penstream/internal/pen/tensor"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100.0, cfg.GetSampleRateHz())
	assert.Equal(t, 20.0, cfg.GetFilterCutoffHz())
	assert.Equal(t, 2, cfg.GetFilterOrder())
	assert.Equal(t, 200, cfg.GetFixedLength())
	assert.Equal(t, "unit", cfg.GetTargetRange())
}

func TestLoad_PartialConfigInheritsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"rise_threshold": 11.5, "fixed_length": 150}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 11.5, cfg.GetRiseThreshold())
	assert.Equal(t, 150, cfg.GetFixedLength())
	assert.Equal(t, DefaultFallThreshold, cfg.GetFallThreshold())
	assert.Equal(t, DefaultSampleRateHz, cfg.GetSampleRateHz())
}

func TestLoad_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("non-json extension", func(t *testing.T) {
		t.Parallel()
		_, err := Load("tuning.yaml")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, `{"rise_threshold": `))
		assert.Error(t, err)
	})

	t.Run("fall above rise", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, `{"rise_threshold": 2, "fall_threshold": 5}`))
		assert.Error(t, err)
	})

	t.Run("cutoff above Nyquist", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, `{"sample_rate_hz": 100, "filter_cutoff_hz": 60}`))
		assert.Error(t, err)
	})

	t.Run("unknown channel name", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, `{"channels": {"altitude": {"policy": "fixed"}}}`))
		assert.Error(t, err)
	})

	t.Run("unknown target range", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, `{"target_range": "percent"}`))
		assert.Error(t, err)
	})
}

func TestPipelineConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
		"target_range": "symmetric",
		"channels": {
			"pressure": {"policy": "fixed", "min": 0, "max": 1023}
		}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	sink := pipeline.SinkFunc(func(*pipeline.StrokeTensor) {})
	pc, err := cfg.PipelineConfig(sink)
	require.NoError(t, err)

	assert.Equal(t, tensor.RangeSymmetric, pc.Target)
	assert.Equal(t, tensor.PolicyFixedBounds, pc.Channels[pen.ChanPressure].Policy)
	assert.Equal(t, 1023.0, pc.Channels[pen.ChanPressure].Max)
	assert.Equal(t, tensor.PolicyPerWindow, pc.Channels[pen.ChanRelAccelX].Policy)

	// The assembled config must construct a working orchestrator.
	_, err = pipeline.New(pc)
	assert.NoError(t, err)
}

func TestPipelineConfig_BadChannelPolicy(t *testing.T) {
	t.Parallel()

	cfg := Default()
	bad := "zscore"
	cfg.Channels = map[string]ChannelTuning{"pressure": {Policy: &bad}}

	_, err := cfg.PipelineConfig(pipeline.SinkFunc(func(*pipeline.StrokeTensor) {}))
	assert.Error(t, err)
}
