package qc

import (
	"math"
	"time"
)

// Segmenter tuning. These follow the historical processing chain.
const (
	minSegmentSamples = 3

	soakGap = 180 * time.Second

	velocityWindow  = 7
	directionWindow = 10

	plateauQuantileLow  = 0.1
	plateauQuantileHigh = 0.9
	plateauMaxStdDev    = 0.2

	stableInflectionFraction  = 0.9
	varyingInflectionFraction = 0.5
)

// SegmentStrategy records which segmenter labelled a profile.
type SegmentStrategy int

const (
	// StrategyTrivial labels every sample Bottom; used for profiles too
	// short to segment.
	StrategyTrivial SegmentStrategy = iota
	// StrategyGap splits on soak gaps in the sample clock.
	StrategyGap
	// StrategyVelocity uses smoothed direction plus an inflection search.
	StrategyVelocity
)

func (s SegmentStrategy) String() string {
	switch s {
	case StrategyGap:
		return "gap"
	case StrategyVelocity:
		return "velocity"
	default:
		return "trivial"
	}
}

// Segmentation is the phase label of every sample plus the diagnostics of
// how they were derived.
type Segmentation struct {
	Phases   []Phase
	Strategy SegmentStrategy

	// VelocitySmooth is the centered moving average of vertical velocity
	// in dbar/s. Velocity strategy only.
	VelocitySmooth []float64
	// PlateauStdDev is the pressure standard deviation over the central
	// 80% of the time range; NaN when it could not be computed.
	PlateauStdDev float64
	StablePlateau bool
	// DescentWindow and AscentWindow are the inflection window lengths
	// found from the start and from the end of the profile.
	DescentWindow int
	AscentWindow  int
	NoDescent     bool
	NoAscent      bool
}

// Count returns how many samples carry phase p.
func (s Segmentation) Count(p Phase) int {
	n := 0
	for _, ph := range s.Phases {
		if ph == p {
			n++
		}
	}
	return n
}

// Segment classifies every sample into Descent, Bottom or Ascent. gapBased
// selects the soak-gap strategy used by sensors that log discrete fishing
// events.
func Segment(samples []Sample, gapBased bool) Segmentation {
	n := len(samples)
	if n < minSegmentSamples {
		return Segmentation{
			Phases:        fillPhase(n, Bottom),
			Strategy:      StrategyTrivial,
			PlateauStdDev: math.NaN(),
			NoDescent:     true,
			NoAscent:      true,
		}
	}
	if gapBased {
		return segmentByGap(samples)
	}
	return segmentByVelocity(samples)
}

func segmentByGap(samples []Sample) Segmentation {
	n := len(samples)
	p := pressures(samples)
	half := maxOf(p) / 2

	first, last := -1, -1
	for i := 1; i < n; i++ {
		if samples[i].Time.Sub(samples[i-1].Time) > soakGap && p[i] > half {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	seg := Segmentation{
		Phases:        make([]Phase, n),
		Strategy:      StrategyGap,
		PlateauStdDev: math.NaN(),
	}

	if first < 0 {
		// No soak: split at the deepest sample, which closes the descent.
		deepest := 0
		for i := 1; i < n; i++ {
			if p[i] > p[deepest] {
				deepest = i
			}
		}
		for i := range seg.Phases {
			if i <= deepest {
				seg.Phases[i] = Descent
			} else {
				seg.Phases[i] = Ascent
			}
		}
		seg.NoAscent = deepest == n-1
		return seg
	}

	// The sample before the first long gap is already on the bottom.
	start := first - 1
	for i := range seg.Phases {
		switch {
		case i < start:
			seg.Phases[i] = Descent
		case i > last:
			seg.Phases[i] = Ascent
		default:
			seg.Phases[i] = Bottom
		}
	}
	seg.NoDescent = start == 0
	seg.NoAscent = last == n-1
	return seg
}

func segmentByVelocity(samples []Sample) Segmentation {
	n := len(samples)
	p := pressures(samples)
	maxP := maxOf(p)

	seg := Segmentation{
		Phases:         make([]Phase, n),
		Strategy:       StrategyVelocity,
		VelocitySmooth: centeredMean(verticalVelocity(samples), velocityWindow, 1),
	}

	descending := make([]bool, n)
	indicator := make([]float64, n)
	for i := 1; i < n; i++ {
		if p[i-1] < p[i] {
			descending[i] = true
			indicator[i] = 1
		}
	}
	confidence := centeredMean(indicator, directionWindow, 1)

	// Far from the bottom plateau the smoothed direction is unambiguous
	// and overrides single-sample jitter.
	p90 := quantile(p, plateauQuantileHigh)
	gap := make([]float64, n)
	for i := range p {
		gap[i] = math.Abs(p[i] - p90)
	}
	gapLimit := 0.5 * maxOf(gap)
	for i := range descending {
		if gap[i] <= gapLimit {
			continue
		}
		switch {
		case confidence[i] > 0.5:
			descending[i] = true
		case confidence[i] < 0.5:
			descending[i] = false
		}
	}

	seg.PlateauStdDev = plateauStdDev(samples)
	seg.StablePlateau = seg.PlateauStdDev < plateauMaxStdDev

	fraction := varyingInflectionFraction
	if seg.StablePlateau {
		fraction = stableInflectionFraction
	}
	target := fraction * maxP

	down, downFound := inflectionWindow(p, target, false)
	up, upFound := inflectionWindow(p, target, true)
	seg.DescentWindow, seg.AscentWindow = down, up
	seg.NoDescent = !downFound || (seg.StablePlateau && down == 1)
	seg.NoAscent = !upFound || (seg.StablePlateau && up == 1)

	for i := 0; i <= down && i < n; i++ {
		descending[i] = true
	}
	for i := n - up; i < n; i++ {
		if i >= 0 {
			descending[i] = false
		}
	}

	firstUp, lastDown := n, -1
	for i, d := range descending {
		if !d && firstUp == n {
			firstUp = i
		}
		if d {
			lastDown = i
		}
	}

	for i := range seg.Phases {
		switch {
		case i < firstUp:
			seg.Phases[i] = Descent
		case i > lastDown:
			seg.Phases[i] = Ascent
		default:
			seg.Phases[i] = Bottom
		}
		if (seg.Phases[i] == Descent && seg.NoDescent) || (seg.Phases[i] == Ascent && seg.NoAscent) {
			seg.Phases[i] = Bottom
		}
	}
	return seg
}

// inflectionWindow returns the shortest window, grown from the start (or
// the end when fromEnd is set), whose maximum pressure reaches target.
// The window is capped at len(p); found is false when the cap was hit
// without reaching target.
func inflectionWindow(p []float64, target float64, fromEnd bool) (size int, found bool) {
	n := len(p)
	running := math.Inf(-1)
	for k := 1; k <= n; k++ {
		v := p[k-1]
		if fromEnd {
			v = p[n-k]
		}
		if v > running {
			running = v
		}
		if running >= target {
			return k, true
		}
	}
	return n, false
}

// plateauStdDev is the pressure standard deviation of samples strictly
// inside the 10th to 90th percentile of the time range.
func plateauStdDev(samples []Sample) float64 {
	t0 := samples[0].Time
	secs := make([]float64, len(samples))
	for i, s := range samples {
		secs[i] = s.Time.Sub(t0).Seconds()
	}
	lo := quantile(secs, plateauQuantileLow)
	hi := quantile(secs, plateauQuantileHigh)

	var central []float64
	for i, t := range secs {
		if t > lo && t < hi {
			central = append(central, samples[i].Pressure)
		}
	}
	return sampleStdDev(central)
}

// verticalVelocity is the forward pressure difference per second; the
// last sample and zero time steps are NaN.
func verticalVelocity(samples []Sample) []float64 {
	n := len(samples)
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		if i == n-1 {
			v[i] = math.NaN()
			continue
		}
		dt := samples[i+1].Time.Sub(samples[i].Time).Seconds()
		if dt <= 0 {
			v[i] = math.NaN()
			continue
		}
		v[i] = (samples[i+1].Pressure - samples[i].Pressure) / dt
	}
	return v
}

func pressures(samples []Sample) []float64 {
	p := make([]float64, len(samples))
	for i, s := range samples {
		p[i] = s.Pressure
	}
	return p
}

func fillPhase(n int, p Phase) []Phase {
	out := make([]Phase, n)
	for i := range out {
		out[i] = p
	}
	return out
}
