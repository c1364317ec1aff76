// Package qc implements automatic quality control of vertical ocean sensor
// profiles: phase segmentation into descent, bottom and ascent, a battery of
// per-test checks, and the combined per-sample flag.
package qc

import (
	"fmt"
	"math"
	"time"
)

// FlagCode is the ordinal severity attached to a sample by a test.
type FlagCode int

const (
	Pass FlagCode = 1
	// NotEvaluated is reserved and never written by the engine.
	NotEvaluated FlagCode = 2
	Suspect      FlagCode = 3
	Fail         FlagCode = 4
	// Missing is reserved and never written by the engine.
	Missing FlagCode = 9
)

func (f FlagCode) String() string {
	switch f {
	case Pass:
		return "pass"
	case NotEvaluated:
		return "not-evaluated"
	case Suspect:
		return "suspect"
	case Fail:
		return "fail"
	case Missing:
		return "missing"
	default:
		return fmt.Sprintf("flag(%d)", int(f))
	}
}

// Phase is the structural segment a sample belongs to. The numeric values
// match the codes used by the historical processing chain.
type Phase int

const (
	PhaseUnknown Phase = 0
	Ascent       Phase = 1
	Descent      Phase = 2
	Bottom       Phase = 3
)

func (p Phase) String() string {
	switch p {
	case Ascent:
		return "ascent"
	case Descent:
		return "descent"
	case Bottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "ascent":
		return Ascent, nil
	case "descent":
		return Descent, nil
	case "bottom":
		return Bottom, nil
	case "unknown", "":
		return PhaseUnknown, nil
	}
	return PhaseUnknown, fmt.Errorf("unknown phase %q", s)
}

// GearType is the declared (or inferred) fishing gear of a deployment.
type GearType string

const (
	GearFixed  GearType = "Fixed"
	GearMobile GearType = "Mobile"
)

// SensorType identifies the tag model, which selects range limits and the
// segmentation strategy.
type SensorType string

const (
	SensorNKE       SensorType = "NKE"
	SensorMoana     SensorType = "Moana"
	SensorZebraTech SensorType = "ZebraTech"
	SensorLowell    SensorType = "Lowell"
	SensorMarport   SensorType = "Marport"
	SensorHobo      SensorType = "Hobo"
)

// KnownSensorTypes lists every sensor identifier the engine accepts in a
// range table.
var KnownSensorTypes = []SensorType{
	SensorNKE, SensorMoana, SensorZebraTech, SensorLowell, SensorMarport, SensorHobo,
}

// Zone is a named operating region, e.g. "North Sea".
type Zone string

// Check names a single test of the battery. The values double as the
// per-test field names in encoded output.
type Check string

const (
	CheckRegion       Check = "vessel_region"
	CheckGear         Check = "gear_type"
	CheckDate         Check = "date"
	CheckLocation     Check = "location"
	CheckLand         Check = "land"
	CheckSpeed        Check = "speed"
	CheckGlobalRange  Check = "global_range"
	CheckTempSpike    Check = "temp_spike"
	CheckSalSpike     Check = "sal_spike"
	CheckRollover     Check = "rollover"
	CheckTempStuck    Check = "temp_stuck"
	CheckSalStuck     Check = "sal_stuck"
	CheckRateOfChange Check = "RoC"
	CheckTimingGap    Check = "timing_gap"
	CheckClimatology  Check = "clima"
	CheckDrift        Check = "drift"
	CheckMud          Check = "mud"
)

// Sample is one measurement of a profile. Pressure and Temperature are
// required; a NaN value marks them as missing. Phase, Flags and Flag are
// written by the engine.
type Sample struct {
	Time        time.Time
	Latitude    float64
	Longitude   float64
	Pressure    float64 // dbar
	Temperature float64 // °C
	Salinity    *float64
	Speed       *float64 // m/s, derived from positions when nil

	Phase Phase
	Flags map[Check]FlagCode
	Flag  FlagCode
}

// Profile is one deployment or haul: an ordered, time-ascending sequence of
// samples plus the deployment metadata the checks are evaluated against.
type Profile struct {
	Vessel  string
	Gear    GearType
	Zone    Zone
	Sensor  SensorType
	Samples []Sample
}

// HasSalinity reports whether the profile carries a salinity channel.
func (p Profile) HasSalinity() bool {
	for i := range p.Samples {
		if p.Samples[i].Salinity != nil {
			return true
		}
	}
	return false
}

// clone returns a copy whose samples can be annotated without touching p.
// Engine-written fields are reset.
func (p Profile) clone() Profile {
	out := p
	out.Samples = make([]Sample, len(p.Samples))
	copy(out.Samples, p.Samples)
	for i := range out.Samples {
		out.Samples[i].Phase = PhaseUnknown
		out.Samples[i].Flags = make(map[Check]FlagCode)
		out.Samples[i].Flag = Pass
	}
	return out
}

func (s Sample) salinity() float64 {
	if s.Salinity == nil {
		return math.NaN()
	}
	return *s.Salinity
}
