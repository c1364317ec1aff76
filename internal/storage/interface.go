// Package storage defines the persistence contract for annotated profiles.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/BerringDC/BDC-qc/internal/qc"
)

// ErrNotFound is returned when no stored profile has the requested id.
var ErrNotFound = errors.New("profile not found")

// DefaultListLimit applies when ListRecent is called without a positive limit.
const DefaultListLimit = 50

// Summary describes one stored profile without its samples.
type Summary struct {
	ID          uuid.UUID     `json:"id"`
	Vessel      string        `json:"vessel"`
	Gear        qc.GearType   `json:"gear"`
	Zone        qc.Zone       `json:"zone"`
	Sensor      qc.SensorType `json:"sensor"`
	ProcessedAt time.Time     `json:"processed_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	Samples     int           `json:"samples"`
	Pass        int           `json:"pass"`
	Suspect     int           `json:"suspect"`
	Fail        int           `json:"fail"`
}

// ProfileStore persists annotated profiles.
type ProfileStore interface {
	Save(ctx context.Context, p qc.Profile) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (qc.Profile, error)
	// ListRecent returns the newest profiles first. An empty vessel matches
	// every vessel.
	ListRecent(ctx context.Context, vessel string, limit int) ([]Summary, error)
	Close() error
}

// Summarize counts the combined flags of p.
func Summarize(p qc.Profile) Summary {
	s := Summary{
		Vessel:  p.Vessel,
		Gear:    p.Gear,
		Zone:    p.Zone,
		Sensor:  p.Sensor,
		Samples: len(p.Samples),
	}
	if n := len(p.Samples); n > 0 {
		start, end := p.Samples[0].Time, p.Samples[n-1].Time
		s.StartedAt, s.EndedAt = &start, &end
	}
	for _, sample := range p.Samples {
		switch sample.Flag {
		case qc.Pass:
			s.Pass++
		case qc.Suspect:
			s.Suspect++
		case qc.Fail:
			s.Fail++
		}
	}
	return s
}
