// Package ingest reads sensor profiles from CSV exports and JSON documents
// and encodes annotated profiles for output.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BerringDC/BDC-qc/internal/qc"
)

// Metadata is the deployment information a CSV export does not carry.
type Metadata struct {
	Vessel string
	Gear   qc.GearType
	Zone   qc.Zone
	Sensor qc.SensorType
}

// CSV column names, matched case-insensitively.
const (
	colTime        = "DATETIME"
	colLatitude    = "LATITUDE"
	colLongitude   = "LONGITUDE"
	colPressure    = "PRESSURE"
	colTemperature = "TEMPERATURE"
	colSalinity    = "SALINITY"
	colSpeed       = "SPEED"
)

var requiredColumns = []string{colTime, colLatitude, colLongitude, colPressure, colTemperature}

// timeLayouts are tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ReadCSV reads one profile from r. Empty pressure or temperature cells are
// kept as missing values so the engine can reject the profile; any other
// malformed cell is an error.
func ReadCSV(r io.Reader, meta Metadata) (qc.Profile, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return qc.Profile{}, fmt.Errorf("empty CSV input")
		}
		return qc.Profile{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return qc.Profile{}, fmt.Errorf("CSV header is missing column %s", c)
		}
	}

	p := qc.Profile{
		Vessel: meta.Vessel,
		Gear:   meta.Gear,
		Zone:   meta.Zone,
		Sensor: meta.Sensor,
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return qc.Profile{}, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		s, err := parseRecord(rec, cols)
		if err != nil {
			return qc.Profile{}, fmt.Errorf("line %d: %w", line, err)
		}
		p.Samples = append(p.Samples, s)
	}
	return p, nil
}

func parseRecord(rec []string, cols map[string]int) (qc.Sample, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var s qc.Sample
	var err error
	if s.Time, err = ParseTime(cell(colTime)); err != nil {
		return s, err
	}
	if s.Latitude, err = parseFloat(colLatitude, cell(colLatitude)); err != nil {
		return s, err
	}
	if s.Longitude, err = parseFloat(colLongitude, cell(colLongitude)); err != nil {
		return s, err
	}
	if s.Pressure, err = parseMeasurement(colPressure, cell(colPressure)); err != nil {
		return s, err
	}
	if s.Temperature, err = parseMeasurement(colTemperature, cell(colTemperature)); err != nil {
		return s, err
	}
	if s.Salinity, err = parseOptional(colSalinity, cell(colSalinity)); err != nil {
		return s, err
	}
	if s.Speed, err = parseOptional(colSpeed, cell(colSpeed)); err != nil {
		return s, err
	}
	return s, nil
}

// ParseTime accepts RFC3339 and the space separated form used by logger
// exports. Times without a zone are UTC.
func ParseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q", colTime, v)
}

func parseFloat(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}

// parseMeasurement maps an empty cell to NaN.
func parseMeasurement(name, v string) (float64, error) {
	if v == "" {
		return math.NaN(), nil
	}
	return parseFloat(name, v)
}

func parseOptional(name, v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := parseFloat(name, v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
