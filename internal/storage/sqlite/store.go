// Package sqlite stores annotated profiles in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/internal/storage"
	"github.com/BerringDC/BDC-qc/pkg/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const timeFormat = time.RFC3339Nano

// Migrations returns the embedded profile schema, versioned in the
// profile_migrations table.
func Migrations() *migrate.FSProvider {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return migrate.NewFSProvider(sub, "profile_migrations")
}

// ProfileStore implements storage.ProfileStore.
type ProfileStore struct {
	db     *sql.DB
	clock  qc.Clock
	logger *zap.SugaredLogger
}

var _ storage.ProfileStore = (*ProfileStore)(nil)

// Open opens or creates the database at path and applies pending
// migrations.
func Open(path string, logger *zap.SugaredLogger) (*ProfileStore, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger = logger.Named("sqlite-profiles")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping profile database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate.NewMigrator(db, Migrations(), logger).Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate profile database: %w", err)
	}

	logger.Infow("profile store ready", "path", path)
	return &ProfileStore{db: db, clock: qc.RealClock{}, logger: logger}, nil
}

// SetClock replaces the source of processed_at timestamps.
func (s *ProfileStore) SetClock(c qc.Clock) {
	if c != nil {
		s.clock = c
	}
}

// Save writes p and its samples in one transaction and returns the new id.
func (s *ProfileStore) Save(ctx context.Context, p qc.Profile) (uuid.UUID, error) {
	id := uuid.New()
	sum := storage.Summarize(p)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles
		(id, vessel, gear, zone, sensor, processed_at, started_at, ended_at,
		 sample_count, pass_count, suspect_count, fail_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(),
		p.Vessel,
		string(p.Gear),
		string(p.Zone),
		string(p.Sensor),
		s.clock.Now().UTC().Format(timeFormat),
		formatOptionalTime(sum.StartedAt),
		formatOptionalTime(sum.EndedAt),
		sum.Samples,
		sum.Pass,
		sum.Suspect,
		sum.Fail,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples
		(profile_id, idx, observed_at, latitude, longitude, pressure, temperature,
		 salinity, speed, phase, flags, flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for i, sample := range p.Samples {
		flags, err := json.Marshal(sample.Flags)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to encode flags of sample %d: %w", i, err)
		}
		_, err = stmt.ExecContext(ctx,
			id.String(),
			i,
			sample.Time.UTC().Format(timeFormat),
			sample.Latitude,
			sample.Longitude,
			sample.Pressure,
			sample.Temperature,
			nullFloat(sample.Salinity),
			nullFloat(sample.Speed),
			int(sample.Phase),
			string(flags),
			int(sample.Flag),
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit profile: %w", err)
	}

	s.logger.Debugw("stored profile", "id", id, "vessel", p.Vessel, "samples", len(p.Samples))
	return id, nil
}

// Get loads a stored profile with its annotations.
func (s *ProfileStore) Get(ctx context.Context, id uuid.UUID) (qc.Profile, error) {
	var p qc.Profile
	var gear, zone, sensor string
	err := s.db.QueryRowContext(ctx,
		`SELECT vessel, gear, zone, sensor FROM profiles WHERE id = ?`, id.String(),
	).Scan(&p.Vessel, &gear, &zone, &sensor)
	if errors.Is(err, sql.ErrNoRows) {
		return qc.Profile{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return qc.Profile{}, fmt.Errorf("failed to query profile: %w", err)
	}
	p.Gear, p.Zone, p.Sensor = qc.GearType(gear), qc.Zone(zone), qc.SensorType(sensor)

	rows, err := s.db.QueryContext(ctx,
		`SELECT observed_at, latitude, longitude, pressure, temperature,
		        salinity, speed, phase, flags, flag
		FROM samples WHERE profile_id = ? ORDER BY idx`, id.String())
	if err != nil {
		return qc.Profile{}, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	if p.Samples, err = scanSampleRows(rows); err != nil {
		return qc.Profile{}, err
	}
	return p, nil
}

// ListRecent returns summaries of the most recently processed profiles.
func (s *ProfileStore) ListRecent(ctx context.Context, vessel string, limit int) ([]storage.Summary, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	query := `SELECT id, vessel, gear, zone, sensor, processed_at, started_at, ended_at,
	                 sample_count, pass_count, suspect_count, fail_count
	          FROM profiles`
	args := []interface{}{}
	if vessel != "" {
		query += ` WHERE vessel = ?`
		args = append(args, vessel)
	}
	query += ` ORDER BY processed_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	return scanSummaryRows(rows)
}

// Close closes the database.
func (s *ProfileStore) Close() error {
	return s.db.Close()
}

func scanSampleRows(rows *sql.Rows) ([]qc.Sample, error) {
	var samples []qc.Sample
	for rows.Next() {
		var sample qc.Sample
		var observed, flags string
		var salinity, speed sql.NullFloat64
		var phase, flag int

		err := rows.Scan(&observed, &sample.Latitude, &sample.Longitude, &sample.Pressure,
			&sample.Temperature, &salinity, &speed, &phase, &flags, &flag)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if sample.Time, err = time.Parse(timeFormat, observed); err != nil {
			return nil, fmt.Errorf("invalid stored sample time %q: %w", observed, err)
		}
		if err := json.Unmarshal([]byte(flags), &sample.Flags); err != nil {
			return nil, fmt.Errorf("invalid stored sample flags: %w", err)
		}
		sample.Salinity = floatPtr(salinity)
		sample.Speed = floatPtr(speed)
		sample.Phase = qc.Phase(phase)
		sample.Flag = qc.FlagCode(flag)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	return samples, nil
}

func scanSummaryRows(rows *sql.Rows) ([]storage.Summary, error) {
	summaries := []storage.Summary{}
	for rows.Next() {
		var sum storage.Summary
		var id, gear, zone, sensor, processed string
		var started, ended sql.NullString

		err := rows.Scan(&id, &sum.Vessel, &gear, &zone, &sensor, &processed, &started, &ended,
			&sum.Samples, &sum.Pass, &sum.Suspect, &sum.Fail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile summary: %w", err)
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid stored profile id %q: %w", id, err)
		}
		if sum.ProcessedAt, err = time.Parse(timeFormat, processed); err != nil {
			return nil, fmt.Errorf("invalid stored processed_at %q: %w", processed, err)
		}
		if sum.StartedAt, err = parseOptionalTime(started); err != nil {
			return nil, err
		}
		if sum.EndedAt, err = parseOptionalTime(ended); err != nil {
			return nil, err
		}
		sum.Gear, sum.Zone, sum.Sensor = qc.GearType(gear), qc.Zone(zone), qc.SensorType(sensor)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profile summaries: %w", err)
	}
	return summaries, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func formatOptionalTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func parseOptionalTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, v.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored time %q: %w", v.String, err)
	}
	return &t, nil
}
