package qc

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Engine runs the segmenter and the flag battery over profiles. An Engine
// holds only read-only state and is safe for concurrent use.
type Engine struct {
	tables      Tables
	aggregation Aggregation
	clock       Clock
	landMask    LandMask
	logger      *zap.SugaredLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithAggregation selects how contributing checks combine into the
// per-sample flag. The default is AggregateOverwrite.
func WithAggregation(a Aggregation) Option {
	return func(e *Engine) { e.aggregation = a }
}

// WithClock sets the processing time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLandMask enables the position-on-land test.
func WithLandMask(m LandMask) Option {
	return func(e *Engine) { e.landMask = m }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an engine evaluating profiles against a private copy
// of tables.
func NewEngine(tables Tables, opts ...Option) *Engine {
	e := &Engine{
		tables:      copyTables(tables),
		aggregation: AggregateOverwrite,
		clock:       RealClock{},
		logger:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Aggregation reports the engine's aggregation policy.
func (e *Engine) Aggregation() Aggregation { return e.aggregation }

// Process returns an annotated copy of p. Every sample gets its phase, one
// flag per applicable check and the combined flag. p is not modified.
//
// A sample without pressure or temperature, or a gear, sensor or zone
// missing from the tables, rejects the whole profile.
func (e *Engine) Process(p Profile) (Profile, error) {
	sensor, clima, err := e.tables.resolve(p)
	if err != nil {
		return Profile{}, err
	}
	if err := validate(p); err != nil {
		return Profile{}, err
	}

	out := p.clone()
	if len(out.Samples) == 0 {
		e.logger.Debugw("empty profile, skipping checks", "vessel", p.Vessel)
		return out, nil
	}

	seg := Segment(out.Samples, sensor.GapSegmentation)
	e.logger.Debugw("segmented profile",
		"vessel", p.Vessel,
		"samples", len(out.Samples),
		"strategy", seg.Strategy.String(),
		"descent", seg.Count(Descent),
		"bottom", seg.Count(Bottom),
		"ascent", seg.Count(Ascent),
	)
	for i := range out.Samples {
		out.Samples[i].Phase = seg.Phases[i]
	}

	b := newBattery(out, seg.Phases, e.tables, sensor, clima, e.clock.Now(), e.landMask)
	combined := fill(len(out.Samples), Pass)
	for _, c := range pipeline {
		result := c.run(b)
		if result == nil {
			continue
		}
		for i := range out.Samples {
			out.Samples[i].Flags[c.name] = result[i]
		}
		if c.contributes {
			e.aggregation.merge(combined, result)
		}
	}
	for i := range out.Samples {
		out.Samples[i].Flag = combined[i]
	}
	return out, nil
}

// Segment labels the phases of p without running the battery.
func (e *Engine) Segment(p Profile) (Segmentation, error) {
	sensor, ok := e.tables.Sensors[p.Sensor]
	if !ok {
		return Segmentation{}, fmt.Errorf("%w: sensor type %q", ErrUnknownConfiguration, p.Sensor)
	}
	if err := validate(p); err != nil {
		return Segmentation{}, err
	}
	return Segment(p.Samples, sensor.GapSegmentation), nil
}

func validate(p Profile) error {
	for i, s := range p.Samples {
		if math.IsNaN(s.Pressure) || math.IsInf(s.Pressure, 0) {
			return fmt.Errorf("%w: sample %d has no pressure", ErrMissingRequiredField, i)
		}
		if math.IsNaN(s.Temperature) || math.IsInf(s.Temperature, 0) {
			return fmt.Errorf("%w: sample %d has no temperature", ErrMissingRequiredField, i)
		}
	}
	return nil
}
