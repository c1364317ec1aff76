package config

import (
	"fmt"

	"github.com/BerringDC/BDC-qc/internal/qc"
)

// Tables validates the lookup sections of c and converts them for the QC
// engine. Call ApplyDefaults first when sections may be omitted.
func (c *ConfigData) Tables() (qc.Tables, error) {
	t := qc.Tables{
		Regions:            make([]qc.RegionBox, 0, len(c.Regions)),
		Sensors:            make(map[qc.SensorType]qc.SensorRange, len(c.Sensors)),
		Climatology:        make(map[qc.Zone]qc.ClimatologyBounds, len(c.Climatology)),
		GearDistanceMeters: c.Gear.MobileDistanceMeters,
	}

	for i, r := range c.Regions {
		box, err := r.box()
		if err != nil {
			return qc.Tables{}, fmt.Errorf("region %d (%s): %w", i, r.Name, err)
		}
		t.Regions = append(t.Regions, box)
	}

	for name, s := range c.Sensors {
		st, err := sensorType(name)
		if err != nil {
			return qc.Tables{}, err
		}
		r, err := s.sensorRange()
		if err != nil {
			return qc.Tables{}, fmt.Errorf("sensor %s: %w", name, err)
		}
		t.Sensors[st] = r
	}

	for zone, cl := range c.Climatology {
		temp, err := cl.Temperature.interval()
		if err != nil {
			return qc.Tables{}, fmt.Errorf("climatology %s temperature: %w", zone, err)
		}
		sal, err := cl.Salinity.interval()
		if err != nil {
			return qc.Tables{}, fmt.Errorf("climatology %s salinity: %w", zone, err)
		}
		t.Climatology[qc.Zone(zone)] = qc.ClimatologyBounds{Temperature: temp, Salinity: sal}
	}

	return t, nil
}

// Aggregation returns the configured aggregation policy.
func (c *ConfigData) Aggregation() (qc.Aggregation, error) {
	return qc.ParseAggregation(c.Engine.Aggregation)
}

func sensorType(name string) (qc.SensorType, error) {
	for _, st := range qc.KnownSensorTypes {
		if string(st) == name {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: sensor type %q", qc.ErrUnknownConfiguration, name)
}

func (r RangeData) interval() (qc.Interval, error) {
	if r.Min > r.Max {
		return qc.Interval{}, fmt.Errorf("min %v is greater than max %v", r.Min, r.Max)
	}
	return qc.Interval{Min: r.Min, Max: r.Max}, nil
}

func (r RegionData) box() (qc.RegionBox, error) {
	if len(r.Zones) == 0 {
		return qc.RegionBox{}, fmt.Errorf("no zones")
	}
	if len(r.Longitude) == 0 {
		return qc.RegionBox{}, fmt.Errorf("no longitude interval")
	}
	lat, err := r.Latitude.interval()
	if err != nil {
		return qc.RegionBox{}, fmt.Errorf("latitude: %w", err)
	}
	box := qc.RegionBox{Name: r.Name, Latitude: lat}
	for _, z := range r.Zones {
		box.Zones = append(box.Zones, qc.Zone(z))
	}
	for _, l := range r.Longitude {
		iv, err := l.interval()
		if err != nil {
			return qc.RegionBox{}, fmt.Errorf("longitude: %w", err)
		}
		box.Longitude = append(box.Longitude, iv)
	}
	return box, nil
}

func (s SensorData) sensorRange() (qc.SensorRange, error) {
	temp, err := s.Temperature.interval()
	if err != nil {
		return qc.SensorRange{}, fmt.Errorf("temperature: %w", err)
	}
	if s.MaxPressure <= 0 {
		return qc.SensorRange{}, fmt.Errorf("max_pressure must be positive")
	}
	r := qc.SensorRange{
		Temperature:             temp,
		MaxPressure:             s.MaxPressure,
		MaxPressureWithSalinity: s.MaxPressureWithSalinity,
		GapSegmentation:         s.GapSegmentation,
	}
	if s.Salinity != nil {
		sal, err := s.Salinity.interval()
		if err != nil {
			return qc.SensorRange{}, fmt.Errorf("salinity: %w", err)
		}
		r.Salinity = &sal
	}
	return r, nil
}
