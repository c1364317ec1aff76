package config

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/BerringDC/BDC-qc/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const defaultConfigName = "default"

// Migrations returns the embedded configuration schema, versioned in the
// config_migrations table.
func Migrations() *migrate.FSProvider {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return migrate.NewFSProvider(sub, "config_migrations")
}

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the configuration database and brings its schema
// up to date.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if err := migrate.NewMigrator(db, Migrations(), nil).Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate config database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from the database. An empty
// database yields the default configuration.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	var configID int64
	err := s.db.QueryRow("SELECT id FROM configs WHERE name = ?", defaultConfigName).Scan(&configID)
	if errors.Is(err, sql.ErrNoRows) {
		config.ApplyDefaults()
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up config: %w", err)
	}

	if config.Regions, err = s.regions(configID); err != nil {
		return nil, fmt.Errorf("failed to load regions: %w", err)
	}
	if config.Sensors, err = s.sensors(configID); err != nil {
		return nil, fmt.Errorf("failed to load sensors: %w", err)
	}
	if config.Climatology, err = s.climatology(configID); err != nil {
		return nil, fmt.Errorf("failed to load climatology: %w", err)
	}
	if err := s.settings(configID, config); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	config.ApplyDefaults()
	return config, nil
}

func (s *SQLiteProvider) regions(configID int64) ([]RegionData, error) {
	rows, err := s.db.Query(`
		SELECT name, zones, lat_min, lat_max, longitude
		FROM regions
		WHERE config_id = ?
		ORDER BY position`, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []RegionData
	for rows.Next() {
		var r RegionData
		var zones, longitude string
		if err := rows.Scan(&r.Name, &zones, &r.Latitude.Min, &r.Latitude.Max, &longitude); err != nil {
			return nil, fmt.Errorf("failed to scan region row: %w", err)
		}
		if err := json.Unmarshal([]byte(zones), &r.Zones); err != nil {
			return nil, fmt.Errorf("region %s zones: %w", r.Name, err)
		}
		if err := json.Unmarshal([]byte(longitude), &r.Longitude); err != nil {
			return nil, fmt.Errorf("region %s longitude: %w", r.Name, err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

func (s *SQLiteProvider) sensors(configID int64) (map[string]SensorData, error) {
	rows, err := s.db.Query(`
		SELECT sensor_type, temp_min, temp_max, max_pressure, sal_min, sal_max,
		       max_pressure_salinity, gap_segmentation
		FROM sensors
		WHERE config_id = ?`, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sensors := make(map[string]SensorData)
	for rows.Next() {
		var name string
		var sd SensorData
		var salMin, salMax sql.NullFloat64
		err := rows.Scan(&name, &sd.Temperature.Min, &sd.Temperature.Max, &sd.MaxPressure,
			&salMin, &salMax, &sd.MaxPressureWithSalinity, &sd.GapSegmentation)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor row: %w", err)
		}
		if salMin.Valid && salMax.Valid {
			sd.Salinity = &RangeData{Min: salMin.Float64, Max: salMax.Float64}
		}
		sensors[name] = sd
	}
	return sensors, rows.Err()
}

func (s *SQLiteProvider) climatology(configID int64) (map[string]ClimatologyData, error) {
	rows, err := s.db.Query(`
		SELECT zone, temp_min, temp_max, sal_min, sal_max
		FROM climatology
		WHERE config_id = ?`, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clima := make(map[string]ClimatologyData)
	for rows.Next() {
		var zone string
		var c ClimatologyData
		if err := rows.Scan(&zone, &c.Temperature.Min, &c.Temperature.Max, &c.Salinity.Min, &c.Salinity.Max); err != nil {
			return nil, fmt.Errorf("failed to scan climatology row: %w", err)
		}
		clima[zone] = c
	}
	return clima, rows.Err()
}

func (s *SQLiteProvider) settings(configID int64, config *ConfigData) error {
	var sqlitePath, listenAddr sql.NullString
	var restPort sql.NullInt64
	err := s.db.QueryRow(`
		SELECT gear_mobile_distance, aggregation, workers, sqlite_path,
		       rest_listen_addr, rest_port, logging_debug
		FROM settings
		WHERE config_id = ?`, configID).Scan(
		&config.Gear.MobileDistanceMeters, &config.Engine.Aggregation, &config.Engine.Workers,
		&sqlitePath, &listenAddr, &restPort, &config.Logging.Debug,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if sqlitePath.Valid {
		config.Storage.SQLite = &SQLiteData{Path: sqlitePath.String}
	}
	if restPort.Valid {
		config.REST = &RESTServerData{ListenAddr: listenAddr.String, Port: int(restPort.Int64)}
	}
	return nil
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.getOrCreateConfigID(tx)
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}
	if err := clearConfig(tx, configID); err != nil {
		return fmt.Errorf("failed to clear existing config: %w", err)
	}

	for i, r := range configData.Regions {
		if err := insertRegion(tx, configID, i, r); err != nil {
			return fmt.Errorf("failed to insert region %s: %w", r.Name, err)
		}
	}

	// Sorted for a stable insertion order.
	names := make([]string, 0, len(configData.Sensors))
	for name := range configData.Sensors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := insertSensor(tx, configID, name, configData.Sensors[name]); err != nil {
			return fmt.Errorf("failed to insert sensor %s: %w", name, err)
		}
	}

	for zone, c := range configData.Climatology {
		_, err := tx.Exec(`
			INSERT INTO climatology (config_id, zone, temp_min, temp_max, sal_min, sal_max)
			VALUES (?, ?, ?, ?, ?, ?)`,
			configID, zone, c.Temperature.Min, c.Temperature.Max, c.Salinity.Min, c.Salinity.Max)
		if err != nil {
			return fmt.Errorf("failed to insert climatology %s: %w", zone, err)
		}
	}

	if err := insertSettings(tx, configID, configData); err != nil {
		return fmt.Errorf("failed to insert settings: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteProvider) getOrCreateConfigID(tx *sql.Tx) (int64, error) {
	_, err := tx.Exec(`
		INSERT INTO configs (name) VALUES (?)
		ON CONFLICT(name) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`, defaultConfigName)
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRow("SELECT id FROM configs WHERE name = ?", defaultConfigName).Scan(&id)
	return id, err
}

func clearConfig(tx *sql.Tx, configID int64) error {
	for _, table := range []string{"regions", "sensors", "climatology", "settings"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE config_id = ?", configID); err != nil {
			return err
		}
	}
	return nil
}

func insertRegion(tx *sql.Tx, configID int64, position int, r RegionData) error {
	zones, err := json.Marshal(r.Zones)
	if err != nil {
		return err
	}
	longitude, err := json.Marshal(r.Longitude)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO regions (config_id, position, name, zones, lat_min, lat_max, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		configID, position, r.Name, string(zones), r.Latitude.Min, r.Latitude.Max, string(longitude))
	return err
}

func insertSensor(tx *sql.Tx, configID int64, name string, sd SensorData) error {
	var salMin, salMax sql.NullFloat64
	if sd.Salinity != nil {
		salMin = sql.NullFloat64{Float64: sd.Salinity.Min, Valid: true}
		salMax = sql.NullFloat64{Float64: sd.Salinity.Max, Valid: true}
	}
	_, err := tx.Exec(`
		INSERT INTO sensors (config_id, sensor_type, temp_min, temp_max, max_pressure,
		                     sal_min, sal_max, max_pressure_salinity, gap_segmentation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		configID, name, sd.Temperature.Min, sd.Temperature.Max, sd.MaxPressure,
		salMin, salMax, sd.MaxPressureWithSalinity, sd.GapSegmentation)
	return err
}

func insertSettings(tx *sql.Tx, configID int64, c *ConfigData) error {
	var sqlitePath, listenAddr sql.NullString
	var restPort sql.NullInt64
	if c.Storage.SQLite != nil {
		sqlitePath = sql.NullString{String: c.Storage.SQLite.Path, Valid: true}
	}
	if c.REST != nil {
		listenAddr = sql.NullString{String: c.REST.ListenAddr, Valid: true}
		restPort = sql.NullInt64{Int64: int64(c.REST.Port), Valid: true}
	}
	_, err := tx.Exec(`
		INSERT INTO settings (config_id, gear_mobile_distance, aggregation, workers,
		                      sqlite_path, rest_listen_addr, rest_port, logging_debug)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		configID, c.Gear.MobileDistanceMeters, c.Engine.Aggregation, c.Engine.Workers,
		sqlitePath, listenAddr, restPort, c.Logging.Debug)
	return err
}
