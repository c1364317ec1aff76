package qc

import (
	"math"

	"github.com/tidwall/geodesic"
)

// LandMask resolves whether a position lies on land. It is optional; the
// position-on-land test is omitted when no mask is configured.
type LandMask interface {
	IsLand(lat, lon float64) bool
}

// LandMaskFunc adapts a function to LandMask.
type LandMaskFunc func(lat, lon float64) bool

func (f LandMaskFunc) IsLand(lat, lon float64) bool { return f(lat, lon) }

// Distance returns the WGS84 geodesic distance in metres between two fixes.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &s12, nil, nil)
	return s12
}

// instantSpeeds returns the speed at every sample in m/s: the supplied
// value when present, otherwise the distance from the previous fix divided
// by the elapsed time. The first derived speed is zero.
func instantSpeeds(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		if s.Speed != nil {
			out[i] = *s.Speed
			continue
		}
		if i == 0 {
			continue
		}
		prev := samples[i-1]
		d := Distance(prev.Latitude, prev.Longitude, s.Latitude, s.Longitude)
		dt := s.Time.Sub(prev.Time).Seconds()
		switch {
		case d == 0:
			out[i] = 0
		case dt <= 0:
			out[i] = math.Inf(1)
		default:
			out[i] = d / dt
		}
	}
	return out
}
