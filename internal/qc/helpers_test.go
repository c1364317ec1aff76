package qc

import (
	"time"
)

var castStart = time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

func testTables() Tables {
	return Tables{
		Regions: []RegionBox{
			{
				Name:      "North Sea",
				Zones:     []Zone{"North Sea", "Atlantic"},
				Latitude:  Interval{Min: 50, Max: 62},
				Longitude: []Interval{{Min: -5, Max: 10}},
			},
			{
				Name:      "Atlantic",
				Zones:     []Zone{"Atlantic"},
				Latitude:  Interval{Min: -60, Max: 70},
				Longitude: []Interval{{Min: -80, Max: 20}},
			},
		},
		Sensors: map[SensorType]SensorRange{
			SensorNKE: {
				Temperature:             Interval{Min: -2, Max: 35},
				MaxPressure:             1100,
				Salinity:                &Interval{Min: 2, Max: 42},
				MaxPressureWithSalinity: 330,
			},
			SensorMoana: {
				Temperature:     Interval{Min: -2, Max: 35},
				MaxPressure:     1100,
				GapSegmentation: true,
			},
		},
		Climatology: map[Zone]ClimatologyBounds{
			"North Sea": {Temperature: Interval{Min: 2, Max: 40}, Salinity: Interval{Min: 2, Max: 38}},
			"Atlantic":  {Temperature: Interval{Min: 2, Max: 40}, Salinity: Interval{Min: 2, Max: 38}},
		},
	}
}

// castProfile is a 100-sample one-minute cast: a descent to 49 dbar over
// eight samples, a bottom plateau alternating 50 and 50.1 dbar, and an
// ascent mirroring the descent. Temperature rises 0.01 °C per sample.
func castProfile() Profile {
	const n = 100
	samples := make([]Sample, n)
	for i := range samples {
		var p float64
		switch {
		case i < 8:
			p = 7 * float64(i)
		case i < 92:
			p = 50
			if i%2 == 1 {
				p = 50.1
			}
		default:
			p = 7 * float64(n-1-i)
		}
		samples[i] = Sample{
			Time:        castStart.Add(time.Duration(i) * time.Minute),
			Latitude:    56.0,
			Longitude:   3.0,
			Pressure:    p,
			Temperature: 10 + 0.01*float64(i),
		}
	}
	return Profile{
		Vessel:  "BDC-01",
		Gear:    GearFixed,
		Zone:    "North Sea",
		Sensor:  SensorNKE,
		Samples: samples,
	}
}

// processedAt is a processing time shortly after castProfile ends.
var processedAt = FixedClock(castStart.Add(3 * time.Hour))

func phaseRange(phases []Phase, p Phase) (first, last int) {
	first, last = -1, -1
	for i, ph := range phases {
		if ph == p {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}
