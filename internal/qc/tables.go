package qc

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredField is returned when a sample lacks pressure or
	// temperature. The whole profile is rejected.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrUnknownConfiguration is returned when the declared zone, sensor
	// or gear of a profile is not present in the lookup tables.
	ErrUnknownConfiguration = errors.New("unknown configuration value")
)

// DefaultGearDistanceMeters is the first-to-last fix distance above which
// a haul is inferred to be mobile.
const DefaultGearDistanceMeters = 200.0

// Interval is a closed numeric range.
type Interval struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within [Min, Max].
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Min && v <= iv.Max
}

// RegionBox is a latitude/longitude rectangle mapped to the zones a vessel
// operating inside it may declare. Longitude may be split over several
// intervals for boxes that straddle the antimeridian.
type RegionBox struct {
	Name      string
	Zones     []Zone
	Latitude  Interval
	Longitude []Interval
}

func (b RegionBox) containsLon(lon float64) bool {
	for _, iv := range b.Longitude {
		if iv.Contains(lon) {
			return true
		}
	}
	return false
}

// covers reports whether every extreme of a profile's positions falls in
// the box. Each extreme is tested independently.
func (b RegionBox) covers(minLat, maxLat, minLon, maxLon float64) bool {
	return b.Latitude.Contains(minLat) && b.Latitude.Contains(maxLat) &&
		b.containsLon(minLon) && b.containsLon(maxLon)
}

// SensorRange holds the gross limits of one sensor model.
type SensorRange struct {
	Temperature Interval
	MaxPressure float64
	// Salinity is nil for sensors without a conductivity cell.
	Salinity *Interval
	// MaxPressureWithSalinity replaces MaxPressure when the profile carries
	// salinity; zero means no override.
	MaxPressureWithSalinity float64
	// GapSegmentation selects the soak-gap phase segmenter.
	GapSegmentation bool
}

func (r SensorRange) maxPressure(hasSalinity bool) float64 {
	if hasSalinity && r.MaxPressureWithSalinity > 0 {
		return r.MaxPressureWithSalinity
	}
	return r.MaxPressure
}

// ClimatologyBounds are the expected temperature and salinity ranges of a zone.
type ClimatologyBounds struct {
	Temperature Interval
	Salinity    Interval
}

// Tables is the immutable reference data the battery is evaluated against.
type Tables struct {
	// Regions are evaluated in order; the first box covering the profile wins.
	Regions     []RegionBox
	Sensors     map[SensorType]SensorRange
	Climatology map[Zone]ClimatologyBounds
	// GearDistanceMeters defaults to DefaultGearDistanceMeters when zero.
	GearDistanceMeters float64
}

// copyTables detaches t from any caller-owned slices and maps.
func copyTables(t Tables) Tables {
	out := Tables{
		Regions:            make([]RegionBox, len(t.Regions)),
		Sensors:            make(map[SensorType]SensorRange, len(t.Sensors)),
		Climatology:        make(map[Zone]ClimatologyBounds, len(t.Climatology)),
		GearDistanceMeters: t.GearDistanceMeters,
	}
	for i, r := range t.Regions {
		r.Zones = append([]Zone(nil), r.Zones...)
		r.Longitude = append([]Interval(nil), r.Longitude...)
		out.Regions[i] = r
	}
	for k, v := range t.Sensors {
		if v.Salinity != nil {
			s := *v.Salinity
			v.Salinity = &s
		}
		out.Sensors[k] = v
	}
	for k, v := range t.Climatology {
		out.Climatology[k] = v
	}
	if out.GearDistanceMeters <= 0 {
		out.GearDistanceMeters = DefaultGearDistanceMeters
	}
	return out
}

// resolve looks up the table entries a profile needs.
func (t Tables) resolve(p Profile) (SensorRange, ClimatologyBounds, error) {
	if p.Gear != GearFixed && p.Gear != GearMobile {
		return SensorRange{}, ClimatologyBounds{}, fmt.Errorf("%w: gear %q", ErrUnknownConfiguration, p.Gear)
	}
	sensor, ok := t.Sensors[p.Sensor]
	if !ok {
		return SensorRange{}, ClimatologyBounds{}, fmt.Errorf("%w: sensor type %q", ErrUnknownConfiguration, p.Sensor)
	}
	clima, ok := t.Climatology[p.Zone]
	if !ok {
		return SensorRange{}, ClimatologyBounds{}, fmt.Errorf("%w: zone %q", ErrUnknownConfiguration, p.Zone)
	}
	return sensor, clima, nil
}
