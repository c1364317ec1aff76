package qc

import (
	"math"
	"time"
)

// Battery thresholds.
var minValidDate = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	maxDriftSpeed = 4.12 // m/s

	surfacePressureSuspect = -5.0 // dbar; [-5,0) is suspect, below is a fail

	spikeDeepPressure   = 500.0
	tempSpikeShallow    = 6.0
	tempSpikeDeep       = 2.0
	salSpikeShallow     = 0.9
	salSpikeDeep        = 0.3
	rolloverTempStep    = 0.5
	rateOfChangeStdDevs = 3.0

	timingGapLimit = 24 * time.Hour

	driftWindow   = 24 * time.Hour
	driftTempStep = 3.0
	driftSalStep  = 8.0
)

// battery is the read-only view of one profile the checks evaluate.
type battery struct {
	samples     []Sample
	phases      []Phase
	pressure    []float64
	temperature []float64
	salinity    []float64
	hasSalinity bool

	gear    GearType
	zone    Zone
	sensor  SensorRange
	clima   ClimatologyBounds
	regions []RegionBox

	gearDistance float64
	now          time.Time
	landMask     LandMask
}

func newBattery(p Profile, phases []Phase, tables Tables, sensor SensorRange, clima ClimatologyBounds, now time.Time, mask LandMask) *battery {
	n := len(p.Samples)
	b := &battery{
		samples:      p.Samples,
		phases:       phases,
		pressure:     make([]float64, n),
		temperature:  make([]float64, n),
		salinity:     make([]float64, n),
		hasSalinity:  p.HasSalinity(),
		gear:         p.Gear,
		zone:         p.Zone,
		sensor:       sensor,
		clima:        clima,
		regions:      tables.Regions,
		gearDistance: tables.GearDistanceMeters,
		now:          now,
		landMask:     mask,
	}
	for i, s := range p.Samples {
		b.pressure[i] = s.Pressure
		b.temperature[i] = s.Temperature
		b.salinity[i] = s.salinity()
	}
	return b
}

func (b *battery) n() int { return len(b.samples) }

// checkFunc evaluates one test. A nil result means the test does not apply
// to the profile and no field is written.
type checkFunc func(b *battery) []FlagCode

type checkDef struct {
	name        Check
	contributes bool
	run         checkFunc
}

// pipeline is the canonical evaluation order. Contributing checks update
// the combined flag in this order.
var pipeline = []checkDef{
	{CheckRegion, true, checkRegion},
	{CheckGear, true, checkGear},
	{CheckDate, true, checkDate},
	{CheckLocation, true, checkLocation},
	{CheckLand, true, checkLand},
	{CheckSpeed, true, checkSpeed},
	{CheckGlobalRange, true, checkGlobalRange},
	{CheckTempSpike, true, checkTempSpike},
	{CheckSalSpike, true, checkSalSpike},
	{CheckRollover, true, checkRollover},
	{CheckTempStuck, true, checkTempStuck},
	{CheckSalStuck, true, checkSalStuck},
	{CheckRateOfChange, true, checkRateOfChange},
	{CheckTimingGap, true, checkTimingGap},
	{CheckClimatology, false, checkClimatology},
	{CheckDrift, true, checkDrift},
	{CheckMud, false, checkMud},
}

// CheckInfo describes one test of the battery.
type CheckInfo struct {
	Name        Check
	Contributes bool
}

// Checks returns the battery in pipeline order.
func Checks() []CheckInfo {
	out := make([]CheckInfo, len(pipeline))
	for i, c := range pipeline {
		out[i] = CheckInfo{Name: c.name, Contributes: c.contributes}
	}
	return out
}

// checkRegion compares the declared zone with the zones of the first region
// box containing the profile's position extremes.
func checkRegion(b *battery) []FlagCode {
	lats := make([]float64, b.n())
	lons := make([]float64, b.n())
	for i, s := range b.samples {
		lats[i], lons[i] = s.Latitude, s.Longitude
	}
	minLat, maxLat := minOf(lats), maxOf(lats)
	minLon, maxLon := minOf(lons), maxOf(lons)

	var zones []Zone
	for _, box := range b.regions {
		if box.covers(minLat, maxLat, minLon, maxLon) {
			zones = box.Zones
			break
		}
	}
	for _, z := range zones {
		if z == b.zone {
			return fill(b.n(), Pass)
		}
	}
	return fill(b.n(), Suspect)
}

// InferGear classifies a haul from the distance between its first and last fix.
func InferGear(samples []Sample, thresholdMeters float64) GearType {
	if len(samples) == 0 {
		return GearFixed
	}
	first, last := samples[0], samples[len(samples)-1]
	if Distance(first.Latitude, first.Longitude, last.Latitude, last.Longitude) > thresholdMeters {
		return GearMobile
	}
	return GearFixed
}

func checkGear(b *battery) []FlagCode {
	if InferGear(b.samples, b.gearDistance) != b.gear {
		return fill(b.n(), Suspect)
	}
	return fill(b.n(), Pass)
}

func checkDate(b *battery) []FlagCode {
	out := fill(b.n(), Pass)
	for i, s := range b.samples {
		if s.Time.Before(minValidDate) || s.Time.After(b.now) {
			out[i] = Fail
		}
	}
	return out
}

func checkLocation(b *battery) []FlagCode {
	out := fill(b.n(), Pass)
	for i, s := range b.samples {
		if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
			out[i] = Fail
		}
	}
	return out
}

func checkLand(b *battery) []FlagCode {
	if b.landMask == nil {
		return nil
	}
	out := fill(b.n(), Pass)
	for i, s := range b.samples {
		if b.landMask.IsLand(s.Latitude, s.Longitude) {
			out[i] = Fail
		}
	}
	return out
}

func checkSpeed(b *battery) []FlagCode {
	out := fill(b.n(), Pass)
	for i, v := range instantSpeeds(b.samples) {
		if v > maxDriftSpeed {
			out[i] = Fail
		}
	}
	return out
}

// checkGlobalRange applies the sensor's gross limits. Rules are applied in
// ascending severity so a sample takes the worst rule it breaks.
func checkGlobalRange(b *battery) []FlagCode {
	out := fill(b.n(), Pass)
	maxP := b.sensor.maxPressure(b.hasSalinity)
	for i := range b.samples {
		p, t := b.pressure[i], b.temperature[i]
		if p >= surfacePressureSuspect && p < 0 {
			out[i] = Suspect
		}
		if p < surfacePressureSuspect || p > maxP {
			out[i] = Fail
		}
		if !b.sensor.Temperature.Contains(t) {
			out[i] = Fail
		}
		if b.hasSalinity && b.sensor.Salinity != nil {
			if s := b.salinity[i]; !math.IsNaN(s) && !b.sensor.Salinity.Contains(s) {
				out[i] = Fail
			}
		}
	}
	return out
}

// spikeMagnitude is |v - (prev+next)/2| - |next-prev|/2: how far a sample
// stands out from the straight line through its neighbours.
func spikeMagnitude(prev, v, next float64) float64 {
	return math.Abs(v-(next+prev)/2) - math.Abs((next-prev)/2)
}

func spikes(b *battery, xs []float64, shallow, deep float64) []FlagCode {
	out := fill(b.n(), Pass)
	for i := 1; i < b.n()-1; i++ {
		limit := shallow
		if b.pressure[i] >= spikeDeepPressure {
			limit = deep
		}
		if spikeMagnitude(xs[i-1], xs[i], xs[i+1]) > limit {
			out[i] = Fail
		}
	}
	return out
}

func checkTempSpike(b *battery) []FlagCode {
	return spikes(b, b.temperature, tempSpikeShallow, tempSpikeDeep)
}

func checkSalSpike(b *battery) []FlagCode {
	if !b.hasSalinity {
		return nil
	}
	return spikes(b, b.salinity, salSpikeShallow, salSpikeDeep)
}

// checkRollover is the bottom spike test: within the bottom phase the
// temperature should not jump between consecutive samples.
func checkRollover(b *battery) []FlagCode {
	out := fill(b.n(), Pass)
	for i := 1; i < b.n(); i++ {
		if b.phases[i] == Bottom && math.Abs(b.temperature[i]-b.temperature[i-1]) > rolloverTempStep {
			out[i] = Suspect
		}
	}
	return out
}

// stuck flags samples outside the bottom phase whose value equals both
// neighbours (suspect) or both neighbours on each side (fail).
func stuck(b *battery, xs []float64) []FlagCode {
	n := b.n()
	out := fill(n, Pass)
	for i := 1; i < n-1; i++ {
		if b.phases[i] == Bottom {
			continue
		}
		if xs[i-1] != xs[i] || xs[i+1] != xs[i] {
			continue
		}
		out[i] = Suspect
		if i >= 2 && i < n-2 && xs[i-2] == xs[i] && xs[i+2] == xs[i] {
			out[i] = Fail
		}
	}
	return out
}

func checkTempStuck(b *battery) []FlagCode {
	return stuck(b, b.temperature)
}

func checkSalStuck(b *battery) []FlagCode {
	if !b.hasSalinity {
		return nil
	}
	return stuck(b, b.salinity)
}

// phaseStdDevs computes the standard deviation of xs per phase.
func phaseStdDevs(phases []Phase, xs []float64) map[Phase]float64 {
	groups := make(map[Phase][]float64)
	for i, ph := range phases {
		groups[ph] = append(groups[ph], xs[i])
	}
	out := make(map[Phase]float64, len(groups))
	for ph, vals := range groups {
		out[ph] = sampleStdDev(vals)
	}
	return out
}

func rateOfChange(b *battery, xs []float64, out []FlagCode) {
	sd := phaseStdDevs(b.phases, xs)
	for i := 1; i < b.n(); i++ {
		s, ok := sd[b.phases[i]]
		// A phase with fewer than two samples or no variance has no
		// meaningful rate threshold.
		if !ok || math.IsNaN(s) || s == 0 {
			continue
		}
		if math.Abs(xs[i]-xs[i-1]) > rateOfChangeStdDevs*s {
			out[i] = Suspect
		}
	}
}

func checkRateOfChange(b *battery) []FlagCode {
	out := fill(b.n(), Pass)
	rateOfChange(b, b.temperature, out)
	if b.hasSalinity {
		rateOfChange(b, b.salinity, out)
	}
	return out
}

func checkTimingGap(b *battery) []FlagCode {
	last := b.samples[b.n()-1].Time
	if b.now.Sub(last) > timingGapLimit {
		return fill(b.n(), Suspect)
	}
	return fill(b.n(), Pass)
}

func checkClimatology(b *battery) []FlagCode {
	out := fill(b.n(), Pass)
	for i := range b.samples {
		if !b.clima.Temperature.Contains(b.temperature[i]) {
			out[i] = Suspect
		}
		if b.hasSalinity {
			if s := b.salinity[i]; !math.IsNaN(s) && !b.clima.Salinity.Contains(s) {
				out[i] = Suspect
			}
		}
	}
	return out
}

// checkDrift looks for a large change between the first and last bottom
// samples of a short soak.
func checkDrift(b *battery) []FlagCode {
	first, last := -1, -1
	for i, ph := range b.phases {
		if ph == Bottom {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 || b.samples[last].Time.Sub(b.samples[first].Time) >= driftWindow {
		return fill(b.n(), Pass)
	}
	drifted := math.Abs(b.temperature[first]-b.temperature[last]) > driftTempStep
	if b.hasSalinity && math.Abs(b.salinity[first]-b.salinity[last]) > driftSalStep {
		drifted = true
	}
	if drifted {
		return fill(b.n(), Suspect)
	}
	return fill(b.n(), Pass)
}
