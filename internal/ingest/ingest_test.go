package ingest

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerringDC/BDC-qc/internal/qc"
)

var meta = Metadata{Vessel: "BDC-07", Gear: qc.GearMobile, Zone: "North Sea", Sensor: qc.SensorNKE}

func TestReadCSV(t *testing.T) {
	input := "DateTime,Latitude,Longitude,Pressure,Temperature,Salinity\n" +
		"2024-05-01 06:00:00,56.1,3.2,0.5,11.2,34.9\n" +
		"2024-05-01T06:01:00Z,56.1,3.2,12.0,10.8,\n" +
		"2024-05-01 06:02:00,56.1,3.2,,10.1,35.0\n"

	p, err := ReadCSV(strings.NewReader(input), meta)
	require.NoError(t, err)
	assert.Equal(t, "BDC-07", p.Vessel)
	assert.Equal(t, qc.GearMobile, p.Gear)
	require.Len(t, p.Samples, 3)

	first := p.Samples[0]
	assert.Equal(t, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, 56.1, first.Latitude)
	require.NotNil(t, first.Salinity)
	assert.Equal(t, 34.9, *first.Salinity)
	assert.Nil(t, first.Speed)

	assert.Nil(t, p.Samples[1].Salinity)
	assert.True(t, math.IsNaN(p.Samples[2].Pressure))
	assert.True(t, p.HasSalinity())
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "DATETIME,LATITUDE,LONGITUDE,PRESSURE\n2024-05-01 06:00:00,1,2,3\n"},
		{"bad time", "DATETIME,LATITUDE,LONGITUDE,PRESSURE,TEMPERATURE\nyesterday,1,2,3,4\n"},
		{"bad number", "DATETIME,LATITUDE,LONGITUDE,PRESSURE,TEMPERATURE\n2024-05-01 06:00:00,north,2,3,4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), meta)
			assert.Error(t, err)
		})
	}
}

func TestDecodeProfile(t *testing.T) {
	body := `{
		"vessel": "BDC-07", "gear": "Fixed", "zone": "Atlantic", "sensor": "Lowell",
		"samples": [
			{"datetime": "2024-05-01T06:00:00Z", "latitude": 40, "longitude": -30, "pressure": 0, "temperature": 15},
			{"datetime": "2024-05-01T06:01:00Z", "latitude": 40, "longitude": -30, "temperature": 14.5, "speed": 0.3}
		]
	}`
	p, err := DecodeProfile(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, qc.SensorLowell, p.Sensor)
	require.Len(t, p.Samples, 2)
	assert.Equal(t, 0.0, p.Samples[0].Pressure)
	assert.True(t, math.IsNaN(p.Samples[1].Pressure))
	require.NotNil(t, p.Samples[1].Speed)
	assert.Equal(t, 0.3, *p.Samples[1].Speed)
}

func TestDecodeProfileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"syntax", `{"vessel": `, ErrMalformedDocument},
		{"unknown field", `{"vessel": "x", "colour": "red"}`, ErrMalformedDocument},
		{"bad time", `{"samples": [{"datetime": "soon", "latitude": 1, "longitude": 1}]}`, ErrMalformedDocument},
		{"no position", `{"samples": [{"datetime": "2024-05-01T06:00:00Z", "latitude": 1}]}`, qc.ErrMissingRequiredField},
		{"no time", `{"samples": [{"latitude": 1, "longitude": 1}]}`, qc.ErrMissingRequiredField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProfile(strings.NewReader(tt.body))
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestEncodeProfile(t *testing.T) {
	sal := 35.1
	p := qc.Profile{
		Vessel: "BDC-07",
		Gear:   qc.GearFixed,
		Zone:   "North Sea",
		Sensor: qc.SensorNKE,
		Samples: []qc.Sample{{
			Time:        time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC),
			Latitude:    56,
			Longitude:   3,
			Pressure:    10,
			Temperature: 9,
			Salinity:    &sal,
			Phase:       qc.Bottom,
			Flags:       map[qc.Check]qc.FlagCode{qc.CheckGear: qc.Suspect, qc.CheckDate: qc.Pass},
			Flag:        qc.Suspect,
		}},
	}

	raw, err := json.Marshal(EncodeProfile(p))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	sample := decoded["samples"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "bottom", sample["phase"])
	assert.Equal(t, 3.0, sample["flag"])
	assert.Equal(t, "2024-05-01T06:00:00Z", sample["datetime"])
	assert.Equal(t, map[string]interface{}{"gear_type": 3.0, "date": 1.0}, sample["flags"])
	assert.Equal(t, 35.1, sample["salinity"])
	assert.NotContains(t, sample, "speed")
	assert.NotContains(t, decoded, "id")
}
