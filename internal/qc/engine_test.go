package qc

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(testTables(), append([]Option{WithClock(processedAt)}, opts...)...)
}

func combinedFlags(p Profile) []FlagCode {
	out := make([]FlagCode, len(p.Samples))
	for i, s := range p.Samples {
		out[i] = s.Flag
	}
	return out
}

func TestProcessNominalCast(t *testing.T) {
	in := castProfile()
	out, err := newTestEngine().Process(in)
	require.NoError(t, err)
	require.Len(t, out.Samples, len(in.Samples))

	for i, s := range out.Samples {
		assert.Equal(t, Pass, s.Flag, "sample %d", i)
		for name, f := range s.Flags {
			assert.Equal(t, Pass, f, "sample %d check %s", i, name)
		}
		assert.Equal(t, in.Samples[i].Time, s.Time)
	}

	s := out.Samples[0]
	assert.Contains(t, s.Flags, CheckMud)
	assert.Contains(t, s.Flags, CheckClimatology)
	assert.NotContains(t, s.Flags, CheckLand, "omitted without a land mask")
	assert.NotContains(t, s.Flags, CheckSalSpike, "omitted without salinity")
	assert.NotContains(t, s.Flags, CheckSalStuck, "omitted without salinity")
	assert.Equal(t, Descent, out.Samples[0].Phase)
	assert.Equal(t, Bottom, out.Samples[50].Phase)
	assert.Equal(t, Ascent, out.Samples[99].Phase)
}

func TestProcessImpossibleDate(t *testing.T) {
	in := castProfile()
	in.Samples[50].Time = time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC)

	out, err := newTestEngine().Process(in)
	require.NoError(t, err)

	for i, s := range out.Samples {
		if i == 50 {
			assert.Equal(t, Fail, s.Flags[CheckDate])
			assert.Equal(t, Fail, s.Flag)
			continue
		}
		assert.Equal(t, Pass, s.Flag, "sample %d", i)
	}
}

// driftingCast moves the fix 50 m north over the cast.
func driftingCast() Profile {
	p := castProfile()
	p.Gear = GearMobile
	step := 0.00045 / float64(len(p.Samples)-1)
	for i := range p.Samples {
		p.Samples[i].Latitude += step * float64(i)
	}
	return p
}

func TestProcessGearMismatch(t *testing.T) {
	in := driftingCast()
	first, last := in.Samples[0], in.Samples[len(in.Samples)-1]
	require.Less(t, Distance(first.Latitude, first.Longitude, last.Latitude, last.Longitude), 60.0)

	out, err := newTestEngine().Process(in)
	require.NoError(t, err)
	for i, s := range out.Samples {
		assert.Equal(t, Suspect, s.Flags[CheckGear], "sample %d", i)
		assert.Equal(t, Suspect, s.Flag, "sample %d", i)
	}
}

func TestAggregationPolicies(t *testing.T) {
	in := driftingCast()
	in.Samples[50].Temperature += 10

	tests := []struct {
		name        string
		aggregation Aggregation
		expected    FlagCode
	}{
		// Rollover and rate of change run after the spike test and
		// overwrite its fail with suspect.
		{"overwrite", AggregateOverwrite, Suspect},
		{"worst case", AggregateWorstCase, Fail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newTestEngine(WithAggregation(tt.aggregation)).Process(in)
			require.NoError(t, err)

			spiked := out.Samples[50]
			assert.Equal(t, Fail, spiked.Flags[CheckTempSpike])
			assert.Equal(t, Suspect, spiked.Flags[CheckRollover])
			assert.Equal(t, tt.expected, spiked.Flag)
			assert.Equal(t, Suspect, out.Samples[51].Flag)
			assert.Equal(t, Suspect, out.Samples[10].Flag)
		})
	}
}

func TestProcessFlagDomain(t *testing.T) {
	in := driftingCast()
	in.Samples[3].Temperature = 60
	in.Samples[20].Pressure = -2
	in.Samples[70].Time = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, agg := range []Aggregation{AggregateOverwrite, AggregateWorstCase} {
		out, err := newTestEngine(WithAggregation(agg)).Process(in)
		require.NoError(t, err)
		require.Len(t, out.Samples, len(in.Samples))
		for i, s := range out.Samples {
			assert.Contains(t, []FlagCode{Pass, Suspect, Fail}, s.Flag, "sample %d", i)
		}
	}
}

func TestProcessDeterministicAndPure(t *testing.T) {
	in := castProfile()
	in.Samples[40].Temperature += 3
	before := castProfile()
	before.Samples[40].Temperature += 3

	e := newTestEngine()
	first, err := e.Process(in)
	require.NoError(t, err)
	second, err := e.Process(in)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input was modified (-before +after):\n%s", diff)
	}
}

func TestProcessShortProfiles(t *testing.T) {
	e := newTestEngine()

	empty := castProfile()
	empty.Samples = nil
	out, err := e.Process(empty)
	require.NoError(t, err)
	assert.Empty(t, out.Samples)

	single := castProfile()
	single.Samples = single.Samples[:1]
	out, err = e.Process(single)
	require.NoError(t, err)
	require.Len(t, out.Samples, 1)
	assert.Equal(t, Bottom, out.Samples[0].Phase)
	assert.Contains(t, []FlagCode{Pass, Suspect, Fail}, out.Samples[0].Flag)
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
		err    error
	}{
		{
			name:   "missing pressure",
			mutate: func(p *Profile) { p.Samples[5].Pressure = math.NaN() },
			err:    ErrMissingRequiredField,
		},
		{
			name:   "missing temperature",
			mutate: func(p *Profile) { p.Samples[7].Temperature = math.NaN() },
			err:    ErrMissingRequiredField,
		},
		{
			name:   "unknown zone",
			mutate: func(p *Profile) { p.Zone = "Baltic" },
			err:    ErrUnknownConfiguration,
		},
		{
			name:   "sensor without ranges",
			mutate: func(p *Profile) { p.Sensor = SensorMarport },
			err:    ErrUnknownConfiguration,
		},
		{
			name:   "unknown gear",
			mutate: func(p *Profile) { p.Gear = "Trawl" },
			err:    ErrUnknownConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := castProfile()
			tt.mutate(&p)
			_, err := newTestEngine().Process(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestEngineSegment(t *testing.T) {
	e := newTestEngine()
	seg, err := e.Segment(castProfile())
	require.NoError(t, err)
	assert.Equal(t, StrategyVelocity, seg.Strategy)
	assert.Equal(t, 10, seg.Count(Descent))

	moana := castProfile()
	moana.Sensor = SensorMoana
	seg, err = e.Segment(moana)
	require.NoError(t, err)
	assert.Equal(t, StrategyGap, seg.Strategy)
}

func TestEngineKeepsOwnTables(t *testing.T) {
	tables := testTables()
	e := NewEngine(tables, WithClock(processedAt))
	delete(tables.Climatology, "North Sea")
	tables.Regions[0].Zones[0] = "Atlantic"

	out, err := e.Process(castProfile())
	require.NoError(t, err)
	assert.Equal(t, Pass, out.Samples[0].Flags[CheckRegion])
}
