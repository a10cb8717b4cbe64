// Package config loads and validates the pipeline tuning parameters. Fields
// are pointers so a partial JSON file inherits defaults for everything it
// omits; the Get* accessors supply the fallback values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/penovate/penstream/internal/pen"
	"github.com/penovate/penstream/internal/pen/pipeline"
	"github.com/penovate/penstream/internal/pen/segment"
	"github.com/penovate/penstream/internal/pen/tensor"
)

// Defaults. Filter values follow the original hardware bring-up: 100 Hz
// sampling, second-order low-pass at 20 Hz.
const (
	DefaultSampleRateHz        = 100.0
	DefaultFilterCutoffHz      = 20.0
	DefaultFilterOrder         = 2
	DefaultRiseThreshold       = 7.0
	DefaultFallThreshold       = 3.0
	DefaultFallDebounceSamples = 5
	DefaultMinStrokeSamples    = 20
	DefaultLookbackSamples     = 10
	DefaultFixedLength         = 200
	DefaultTargetRange         = "unit"
	DefaultQueueCapacity       = 64
)

// ChannelTuning overrides the normalization policy and fixed bounds for one
// channel.
type ChannelTuning struct {
	Policy *string  `json:"policy,omitempty"` // "fixed" | "per_window"
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// Tuning is the root configuration. The JSON schema uses the option names
// the pipeline documents: sample_rate_hz, filter_cutoff_hz, and so on.
type Tuning struct {
	SampleRateHz        *float64 `json:"sample_rate_hz,omitempty"`
	FilterCutoffHz      *float64 `json:"filter_cutoff_hz,omitempty"`
	FilterOrder         *int     `json:"filter_order,omitempty"`
	RiseThreshold       *float64 `json:"rise_threshold,omitempty"`
	FallThreshold       *float64 `json:"fall_threshold,omitempty"`
	FallDebounceSamples *int     `json:"fall_debounce_samples,omitempty"`
	MinStrokeSamples    *int     `json:"min_stroke_samples,omitempty"`
	LookbackSamples     *int     `json:"lookback_samples,omitempty"`
	FixedLength         *int     `json:"fixed_length,omitempty"`

	// TargetRange selects the normalization target: "unit" for [0,1] or
	// "symmetric" for [-1,1].
	TargetRange *string `json:"target_range,omitempty"`

	// Channels is keyed by channel name (rel_accel_x … pressure). Channels
	// not listed default to the per-window policy.
	Channels map[string]ChannelTuning `json:"channels,omitempty"`

	QueueCapacity *int `json:"queue_capacity,omitempty"`
}

// Default returns a Tuning with all fields unset, which resolves to the
// package defaults through the accessors.
func Default() *Tuning { return &Tuning{} }

// Load reads a Tuning from a JSON file. Partial configs are safe: omitted
// fields keep their defaults.
func Load(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 << 20
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Tuning{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (t *Tuning) GetSampleRateHz() float64 {
	if t.SampleRateHz != nil {
		return *t.SampleRateHz
	}
	return DefaultSampleRateHz
}

func (t *Tuning) GetFilterCutoffHz() float64 {
	if t.FilterCutoffHz != nil {
		return *t.FilterCutoffHz
	}
	return DefaultFilterCutoffHz
}

func (t *Tuning) GetFilterOrder() int {
	if t.FilterOrder != nil {
		return *t.FilterOrder
	}
	return DefaultFilterOrder
}

func (t *Tuning) GetRiseThreshold() float64 {
	if t.RiseThreshold != nil {
		return *t.RiseThreshold
	}
	return DefaultRiseThreshold
}

func (t *Tuning) GetFallThreshold() float64 {
	if t.FallThreshold != nil {
		return *t.FallThreshold
	}
	return DefaultFallThreshold
}

func (t *Tuning) GetFallDebounceSamples() int {
	if t.FallDebounceSamples != nil {
		return *t.FallDebounceSamples
	}
	return DefaultFallDebounceSamples
}

func (t *Tuning) GetMinStrokeSamples() int {
	if t.MinStrokeSamples != nil {
		return *t.MinStrokeSamples
	}
	return DefaultMinStrokeSamples
}

func (t *Tuning) GetLookbackSamples() int {
	if t.LookbackSamples != nil {
		return *t.LookbackSamples
	}
	return DefaultLookbackSamples
}

func (t *Tuning) GetFixedLength() int {
	if t.FixedLength != nil {
		return *t.FixedLength
	}
	return DefaultFixedLength
}

func (t *Tuning) GetTargetRange() string {
	if t.TargetRange != nil {
		return *t.TargetRange
	}
	return DefaultTargetRange
}

func (t *Tuning) GetQueueCapacity() int {
	if t.QueueCapacity != nil {
		return *t.QueueCapacity
	}
	return DefaultQueueCapacity
}

// Validate checks field-level constraints. Cross-component constraints
// (e.g. cutoff below Nyquist) are enforced again by the pipeline
// constructor, so a valid Tuning can still be rejected there.
func (t *Tuning) Validate() error {
	if t.GetSampleRateHz() <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %g", t.GetSampleRateHz())
	}
	if t.GetFilterOrder() < 1 {
		return fmt.Errorf("filter_order must be at least 1, got %d", t.GetFilterOrder())
	}
	if t.GetFilterCutoffHz() <= 0 || t.GetFilterCutoffHz() >= t.GetSampleRateHz()/2 {
		return fmt.Errorf("filter_cutoff_hz %g must lie in (0, %g)",
			t.GetFilterCutoffHz(), t.GetSampleRateHz()/2)
	}
	if t.GetFallThreshold() > t.GetRiseThreshold() {
		return fmt.Errorf("fall_threshold %g must not exceed rise_threshold %g",
			t.GetFallThreshold(), t.GetRiseThreshold())
	}
	if t.GetFallDebounceSamples() < 1 {
		return fmt.Errorf("fall_debounce_samples must be at least 1, got %d", t.GetFallDebounceSamples())
	}
	if t.GetMinStrokeSamples() < 1 {
		return fmt.Errorf("min_stroke_samples must be at least 1, got %d", t.GetMinStrokeSamples())
	}
	if t.GetLookbackSamples() < 0 {
		return fmt.Errorf("lookback_samples must not be negative, got %d", t.GetLookbackSamples())
	}
	if t.GetFixedLength() < 1 {
		return fmt.Errorf("fixed_length must be at least 1, got %d", t.GetFixedLength())
	}
	if t.GetQueueCapacity() < 0 {
		return fmt.Errorf("queue_capacity must not be negative, got %d", t.GetQueueCapacity())
	}
	switch t.GetTargetRange() {
	case "unit", "symmetric":
	default:
		return fmt.Errorf("target_range must be \"unit\" or \"symmetric\", got %q", t.GetTargetRange())
	}
	for name := range t.Channels {
		if pen.ChannelIndex(name) < 0 {
			return fmt.Errorf("unknown channel %q", name)
		}
	}
	return nil
}

// targetRange resolves the configured target range.
func (t *Tuning) targetRange() tensor.Range {
	if t.GetTargetRange() == "symmetric" {
		return tensor.RangeSymmetric
	}
	return tensor.RangeUnit
}

// channelSpecs resolves the per-channel normalization declarations. The
// default for every channel is the per-window policy, which needs no
// device-specific calibration.
func (t *Tuning) channelSpecs() ([pen.NumChannels]tensor.ChannelSpec, error) {
	var specs [pen.NumChannels]tensor.ChannelSpec
	for i := range specs {
		specs[i] = tensor.ChannelSpec{Policy: tensor.PolicyPerWindow}
	}
	for name, ct := range t.Channels {
		idx := pen.ChannelIndex(name)
		if idx < 0 {
			return specs, fmt.Errorf("unknown channel %q", name)
		}
		spec := specs[idx]
		if ct.Policy != nil {
			p, err := tensor.ParsePolicy(*ct.Policy)
			if err != nil {
				return specs, fmt.Errorf("channel %s: %w", name, err)
			}
			spec.Policy = p
		}
		if ct.Min != nil {
			spec.Min = *ct.Min
		}
		if ct.Max != nil {
			spec.Max = *ct.Max
		}
		specs[idx] = spec
	}
	return specs, nil
}

// PipelineConfig assembles the orchestrator configuration for the given
// sink.
func (t *Tuning) PipelineConfig(sink pipeline.Sink) (pipeline.Config, error) {
	if err := t.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	specs, err := t.channelSpecs()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		SampleRateHz:   t.GetSampleRateHz(),
		FilterCutoffHz: t.GetFilterCutoffHz(),
		FilterOrder:    t.GetFilterOrder(),
		Segmenter: segment.Config{
			RiseThreshold:       t.GetRiseThreshold(),
			FallThreshold:       t.GetFallThreshold(),
			FallDebounceSamples: t.GetFallDebounceSamples(),
			MinStrokeSamples:    t.GetMinStrokeSamples(),
			LookbackSamples:     t.GetLookbackSamples(),
		},
		FixedLength:   t.GetFixedLength(),
		Target:        t.targetRange(),
		Channels:      specs,
		QueueCapacity: t.GetQueueCapacity(),
		Sink:          sink,
	}, nil
}
