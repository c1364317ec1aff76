package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/BerringDC/BDC-qc/internal/qc"
)

// ErrMalformedDocument is returned for input that is not a valid profile
// document.
var ErrMalformedDocument = errors.New("malformed profile document")

// ProfileDocument is the JSON wire form of a profile submitted for QC.
type ProfileDocument struct {
	Vessel  string           `json:"vessel"`
	Gear    string           `json:"gear"`
	Zone    string           `json:"zone"`
	Sensor  string           `json:"sensor"`
	Samples []SampleDocument `json:"samples"`
}

// SampleDocument uses pointer fields so that an absent value can be told
// apart from zero.
type SampleDocument struct {
	Time        string   `json:"datetime"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Pressure    *float64 `json:"pressure"`
	Temperature *float64 `json:"temperature"`
	Salinity    *float64 `json:"salinity,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
}

// AnnotatedDocument is the JSON form of a processed profile.
type AnnotatedDocument struct {
	ID      string            `json:"id,omitempty"`
	Vessel  string            `json:"vessel"`
	Gear    string            `json:"gear"`
	Zone    string            `json:"zone"`
	Sensor  string            `json:"sensor"`
	Samples []AnnotatedSample `json:"samples"`
}

type AnnotatedSample struct {
	Time        string           `json:"datetime"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	Pressure    float64          `json:"pressure"`
	Temperature float64          `json:"temperature"`
	Salinity    *float64         `json:"salinity,omitempty"`
	Speed       *float64         `json:"speed,omitempty"`
	Phase       string           `json:"phase"`
	Flags       map[qc.Check]int `json:"flags"`
	Flag        int              `json:"flag"`
}

// DecodeProfile reads one ProfileDocument from r and converts it. Unknown
// fields are rejected.
func DecodeProfile(r io.Reader) (qc.Profile, error) {
	var doc ProfileDocument
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return qc.Profile{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return doc.Profile()
}

// Profile converts the document. A sample without a timestamp or position
// fails with qc.ErrMissingRequiredField; missing pressure or temperature is
// carried as NaN for the engine to reject.
func (d ProfileDocument) Profile() (qc.Profile, error) {
	p := qc.Profile{
		Vessel:  d.Vessel,
		Gear:    qc.GearType(d.Gear),
		Zone:    qc.Zone(d.Zone),
		Sensor:  qc.SensorType(d.Sensor),
		Samples: make([]qc.Sample, len(d.Samples)),
	}
	for i, sd := range d.Samples {
		if sd.Time == "" {
			return qc.Profile{}, fmt.Errorf("%w: sample %d has no datetime", qc.ErrMissingRequiredField, i)
		}
		t, err := ParseTime(sd.Time)
		if err != nil {
			return qc.Profile{}, fmt.Errorf("%w: sample %d: %v", ErrMalformedDocument, i, err)
		}
		if sd.Latitude == nil || sd.Longitude == nil {
			return qc.Profile{}, fmt.Errorf("%w: sample %d has no position", qc.ErrMissingRequiredField, i)
		}
		p.Samples[i] = qc.Sample{
			Time:        t,
			Latitude:    *sd.Latitude,
			Longitude:   *sd.Longitude,
			Pressure:    valueOrNaN(sd.Pressure),
			Temperature: valueOrNaN(sd.Temperature),
			Salinity:    sd.Salinity,
			Speed:       sd.Speed,
		}
	}
	return p, nil
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// EncodeProfile converts an annotated profile to its JSON form.
func EncodeProfile(p qc.Profile) AnnotatedDocument {
	doc := AnnotatedDocument{
		Vessel:  p.Vessel,
		Gear:    string(p.Gear),
		Zone:    string(p.Zone),
		Sensor:  string(p.Sensor),
		Samples: make([]AnnotatedSample, len(p.Samples)),
	}
	for i, s := range p.Samples {
		flags := make(map[qc.Check]int, len(s.Flags))
		for name, f := range s.Flags {
			flags[name] = int(f)
		}
		doc.Samples[i] = AnnotatedSample{
			Time:        s.Time.UTC().Format(time.RFC3339Nano),
			Latitude:    s.Latitude,
			Longitude:   s.Longitude,
			Pressure:    s.Pressure,
			Temperature: s.Temperature,
			Salinity:    s.Salinity,
			Speed:       s.Speed,
			Phase:       s.Phase.String(),
			Flags:       flags,
			Flag:        int(s.Flag),
		}
	}
	return doc
}
