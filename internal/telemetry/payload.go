// Package telemetry receives profiles delivered over the vessel satellite
// link and hands them to the QC engine.
package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/BerringDC/BDC-qc/internal/qc"
)

// ErrMalformedPayload is returned for bytes that do not decode to a profile.
var ErrMalformedPayload = errors.New("malformed telemetry payload")

// Payload is the msgpack message sent by a vessel. Keys are kept short to
// fit satellite message limits.
type Payload struct {
	Vessel string `msgpack:"v"`
	Gear   string `msgpack:"g"`
	Zone   string `msgpack:"z"`
	Sensor string `msgpack:"s"`
	Rows   []Row  `msgpack:"r"`
}

// Row is one sample, encoded as a msgpack array.
type Row struct {
	_msgpack struct{} `msgpack:",as_array"`

	Time        int64 // unix milliseconds
	Latitude    float64
	Longitude   float64
	Pressure    float64
	Temperature float64
	Salinity    *float64
	Speed       *float64
}

// EncodePayload serializes the raw measurements of p. Annotations are not
// transmitted.
func EncodePayload(p qc.Profile) ([]byte, error) {
	msg := Payload{
		Vessel: p.Vessel,
		Gear:   string(p.Gear),
		Zone:   string(p.Zone),
		Sensor: string(p.Sensor),
		Rows:   make([]Row, len(p.Samples)),
	}
	for i, s := range p.Samples {
		msg.Rows[i] = Row{
			Time:        s.Time.UnixMilli(),
			Latitude:    s.Latitude,
			Longitude:   s.Longitude,
			Pressure:    s.Pressure,
			Temperature: s.Temperature,
			Salinity:    s.Salinity,
			Speed:       s.Speed,
		}
	}
	data, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// DecodePayload parses a message produced by EncodePayload.
func DecodePayload(data []byte) (qc.Profile, error) {
	if len(data) == 0 {
		return qc.Profile{}, fmt.Errorf("%w: empty message", ErrMalformedPayload)
	}
	var msg Payload
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return qc.Profile{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	p := qc.Profile{
		Vessel:  msg.Vessel,
		Gear:    qc.GearType(msg.Gear),
		Zone:    qc.Zone(msg.Zone),
		Sensor:  qc.SensorType(msg.Sensor),
		Samples: make([]qc.Sample, len(msg.Rows)),
	}
	for i, r := range msg.Rows {
		p.Samples[i] = qc.Sample{
			Time:        time.UnixMilli(r.Time).UTC(),
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			Pressure:    r.Pressure,
			Temperature: r.Temperature,
			Salinity:    r.Salinity,
			Speed:       r.Speed,
		}
	}
	return p, nil
}
