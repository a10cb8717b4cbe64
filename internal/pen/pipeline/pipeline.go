// Package pipeline orchestrates the pen preprocessing stages over a
// continuous sample stream: per-channel low-pass filtering, relative motion
// derivation, stroke segmentation, normalization, and padding.
//
// This package is the composition root: it owns all filter state and the
// single in-progress stroke window, and it is the only component with memory
// across samples. Stage packages (filter, motion, segment, tensor) never
// import pipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/penovate/penstream/internal/pen"
	"github.com/penovate/penstream/internal/pen/filter"
	"github.com/penovate/penstream/internal/pen/motion"
	"github.com/penovate/penstream/internal/pen/segment"
	"github.com/penovate/penstream/internal/pen/tensor"
)

// ErrOutOfOrderInput reports a sample whose timestamp did not strictly
// increase. It is fatal to the current stream position: the orchestrator
// stops and the stream must be resynchronized via Restart.
var ErrOutOfOrderInput = errors.New("pipeline: out-of-order input")

// rawChannels is the number of raw sensor channels filtered independently:
// six motion components per IMU, times two IMUs, plus pressure.
const rawChannels = 13

const pressureChain = rawChannels - 1

// StrokeTensor is the unit handed to the recognition layer: a fixed-length,
// channel-normalized tensor plus stroke metadata.
type StrokeTensor struct {
	// StrokeID uniquely identifies the emitted stroke.
	StrokeID string
	// Rows has exactly the configured fixed length; each row carries the
	// six relative-motion channels plus pressure.
	Rows [][pen.NumChannels]float64
	// StartTSUnixNanos and EndTSUnixNanos bound the source window before
	// any truncation.
	StartTSUnixNanos int64
	EndTSUnixNanos   int64
	// Truncated reports that the source window exceeded the fixed length
	// and lost its tail.
	Truncated bool
	// DegenerateChannels counts zero-variance channels replaced by the
	// neutral value during normalization.
	DegenerateChannels int
	// SkippedShortSinceLast counts too-short strokes discarded since the
	// previous emission.
	SkippedShortSinceLast uint64
}

// Sink receives finalized stroke tensors. Implementations must not retain
// the tensor's Rows slice beyond the call unless they copy it.
type Sink interface {
	EmitStroke(st *StrokeTensor)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(st *StrokeTensor)

// EmitStroke calls f.
func (f SinkFunc) EmitStroke(st *StrokeTensor) { f(st) }

// Config holds the dependencies and tuning for the orchestrator.
type Config struct {
	// SampleRateHz is the shared sampling rate of all channels.
	SampleRateHz float64
	// FilterCutoffHz and FilterOrder define the per-channel low-pass.
	FilterCutoffHz float64
	FilterOrder    int

	// Segmenter holds the stroke detection thresholds.
	Segmenter segment.Config

	// FixedLength is the row count of every emitted tensor.
	FixedLength int
	// Target is the normalization target range.
	Target tensor.Range
	// Channels declares the per-channel normalization policy and bounds.
	Channels [pen.NumChannels]tensor.ChannelSpec

	// QueueCapacity bounds the input queue used by Run. Zero means
	// unbuffered. The queue applies backpressure by blocking the
	// producer; samples are never dropped.
	QueueCapacity int

	// Sink receives emitted tensors. Required.
	Sink Sink
}

// Stats is a snapshot of the orchestrator's observable counters. Every
// non-fatal condition increments exactly one counter; nothing is silently
// swallowed.
type Stats struct {
	SamplesProcessed           uint64
	StrokesEmitted             uint64
	ShortStrokesDiscarded      uint64
	StrokesTruncated           uint64
	DegenerateChannels         uint64
	IncompleteStrokesDiscarded uint64
}

// Orchestrator drives the preprocessing pipeline. Processing is
// single-threaded: ProcessSample runs each sample to completion before the
// next is accepted, so no locking guards the filter or segmenter state.
type Orchestrator struct {
	cfg    Config
	coeffs []filter.Coefficients
	chains [rawChannels]*filter.Chain
	seg    *segment.Segmenter
	norm   *tensor.Normalizer

	in chan pen.Sample

	lastTS  int64
	started bool
	failed  error

	samplesProcessed           atomic.Uint64
	strokesEmitted             atomic.Uint64
	shortStrokesDiscarded      atomic.Uint64
	strokesTruncated           atomic.Uint64
	degenerateChannels         atomic.Uint64
	incompleteStrokesDiscarded atomic.Uint64

	skippedSinceLast uint64
}

// New validates the configuration and builds an orchestrator with warm-up
// (zero) filter state.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Sink == nil {
		return nil, errors.New("pipeline: sink is required")
	}
	if cfg.FixedLength < 1 {
		return nil, fmt.Errorf("pipeline: fixed length must be at least 1, got %d", cfg.FixedLength)
	}
	if cfg.QueueCapacity < 0 {
		return nil, fmt.Errorf("pipeline: queue capacity must not be negative, got %d", cfg.QueueCapacity)
	}

	coeffs, err := filter.ButterworthLP(cfg.FilterCutoffHz, cfg.FilterOrder, cfg.SampleRateHz)
	if err != nil {
		return nil, err
	}
	seg, err := segment.New(cfg.Segmenter)
	if err != nil {
		return nil, err
	}
	norm, err := tensor.NewNormalizer(cfg.Target, cfg.Channels)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:    cfg,
		coeffs: coeffs,
		seg:    seg,
		norm:   norm,
		in:     make(chan pen.Sample, cfg.QueueCapacity),
	}
	for i := range o.chains {
		o.chains[i] = filter.NewChain(coeffs)
	}
	return o, nil
}

// Samples returns the bounded input queue for Run. Sends block when the
// processing side falls behind; that backpressure is the documented policy
// (no drop-oldest).
func (o *Orchestrator) Samples() chan<- pen.Sample { return o.in }

// Stats returns a snapshot of the observable counters. Safe to call from
// other goroutines.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		SamplesProcessed:           o.samplesProcessed.Load(),
		StrokesEmitted:             o.strokesEmitted.Load(),
		ShortStrokesDiscarded:      o.shortStrokesDiscarded.Load(),
		StrokesTruncated:           o.strokesTruncated.Load(),
		DegenerateChannels:         o.degenerateChannels.Load(),
		IncompleteStrokesDiscarded: o.incompleteStrokesDiscarded.Load(),
	}
}

// Err returns the latched fatal error, if any.
func (o *Orchestrator) Err() error { return o.failed }

// ProcessSample runs one raw sample synchronously through the pipeline.
//
// Fatal conditions (malformed sample, out-of-order timestamp) latch: every
// subsequent call returns the same error until Restart. Non-fatal stroke
// conditions are counted and reported through the sink metadata instead.
func (o *Orchestrator) ProcessSample(s pen.Sample) error {
	if o.failed != nil {
		return o.failed
	}

	if err := s.Validate(); err != nil {
		o.failed = err
		opsf("stopping: %v", err)
		return err
	}
	if o.started && s.TSUnixNanos <= o.lastTS {
		o.failed = fmt.Errorf("%w: ts=%d after ts=%d", ErrOutOfOrderInput, s.TSUnixNanos, o.lastTS)
		opsf("stopping: %v", o.failed)
		return o.failed
	}
	o.started = true
	o.lastTS = s.TSUnixNanos

	fr := o.preprocess(s)
	o.samplesProcessed.Add(1)
	tracef("sample ts=%d pressure=%.3f state=%s", s.TSUnixNanos, fr.Values[pen.ChanPressure], o.seg.State())

	window, skipped := o.seg.Feed(fr)
	if skipped {
		o.shortStrokesDiscarded.Add(1)
		o.skippedSinceLast++
		diagf("short stroke discarded (%d since last emission)", o.skippedSinceLast)
		return nil
	}
	if window != nil {
		o.finalize(window)
	}
	return nil
}

// preprocess filters the thirteen raw channels and folds the two IMUs into
// one relative-motion frame. Filter state carries across stroke boundaries.
func (o *Orchestrator) preprocess(s pen.Sample) pen.Frame {
	tip := s.Tip.Components()
	grip := s.Grip.Components()

	var ftipC, fgripC [6]float64
	for i := 0; i < 6; i++ {
		ftipC[i] = o.chains[i].ProcessSample(tip[i])
		fgripC[i] = o.chains[6+i].ProcessSample(grip[i])
	}
	ftip := pen.MotionReading{
		AccelX: ftipC[0], AccelY: ftipC[1], AccelZ: ftipC[2],
		GyroX: ftipC[3], GyroY: ftipC[4], GyroZ: ftipC[5],
	}
	fgrip := pen.MotionReading{
		AccelX: fgripC[0], AccelY: fgripC[1], AccelZ: fgripC[2],
		GyroX: fgripC[3], GyroY: fgripC[4], GyroZ: fgripC[5],
	}

	rel := motion.Relative(ftip, fgrip)

	fr := pen.Frame{TSUnixNanos: s.TSUnixNanos}
	copy(fr.Values[:6], rel[:])
	fr.Values[pen.ChanPressure] = o.chains[pressureChain].ProcessSample(s.Pressure)
	return fr
}

// finalize normalizes, pads, and emits one completed stroke window.
func (o *Orchestrator) finalize(w *pen.StrokeWindow) {
	rows, degenerate := o.norm.Normalize(w)
	rows, truncated := tensor.Pad(rows, o.cfg.FixedLength)

	st := &StrokeTensor{
		StrokeID:              uuid.NewString(),
		Rows:                  rows,
		StartTSUnixNanos:      w.StartTSUnixNanos(),
		EndTSUnixNanos:        w.EndTSUnixNanos(),
		Truncated:             truncated,
		DegenerateChannels:    degenerate,
		SkippedShortSinceLast: o.skippedSinceLast,
	}
	o.skippedSinceLast = 0

	o.strokesEmitted.Add(1)
	if truncated {
		o.strokesTruncated.Add(1)
		opsf("stroke %s truncated: window %d frames exceeds fixed length %d",
			st.StrokeID, w.Len(), o.cfg.FixedLength)
	}
	if degenerate > 0 {
		o.degenerateChannels.Add(uint64(degenerate))
		diagf("stroke %s: %d degenerate channels replaced by neutral value", st.StrokeID, degenerate)
	}
	diagf("stroke %s emitted: %d frames, span %dns",
		st.StrokeID, w.Len(), st.EndTSUnixNanos-st.StartTSUnixNanos)

	o.cfg.Sink.EmitStroke(st)
}

// Run consumes samples from the input queue until the context is cancelled
// or a fatal error latches. On clean stop any in-progress stroke is
// discarded and counted, never emitted as a partial tensor.
//
// Acquisition and processing may thus run as two concurrently scheduled
// activities: the producer sends into Samples() while Run processes, with
// the bounded queue absorbing momentary stalls.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			o.discardInProgress()
			return nil
		case s, ok := <-o.in:
			if !ok {
				o.discardInProgress()
				return nil
			}
			if err := o.ProcessSample(s); err != nil {
				return err
			}
		}
	}
}

func (o *Orchestrator) discardInProgress() {
	if o.seg.Flush() {
		o.incompleteStrokesDiscarded.Add(1)
		opsf("incomplete stroke discarded on stop")
	}
}

// Restart clears a latched fatal error and resets the stream position and
// all per-stroke state so a resynchronized stream can be fed. Filter chains
// are reset to warm-up state: the new stream is a new time axis, so carrying
// old history would be wrong. Counters are preserved.
func (o *Orchestrator) Restart() {
	o.discardInProgress()
	for _, c := range o.chains {
		c.Reset()
	}
	o.failed = nil
	o.started = false
	o.lastTS = 0
	o.skippedSinceLast = 0
	diagf("restarted after fatal error; stream position cleared")
}
