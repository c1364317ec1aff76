package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// LoadConfig returns the complete configuration with defaults applied
	// to every omitted section.
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	// Regions are evaluated in list order; the first box containing a
	// profile decides which zones it may declare.
	Regions     []RegionData               `json:"regions,omitempty" yaml:"regions,omitempty"`
	Sensors     map[string]SensorData      `json:"sensors,omitempty" yaml:"sensors,omitempty"`
	Climatology map[string]ClimatologyData `json:"climatology,omitempty" yaml:"climatology,omitempty"`
	Gear        GearData                   `json:"gear" yaml:"gear"`
	Engine      EngineData                 `json:"engine" yaml:"engine"`
	Storage     StorageData                `json:"storage,omitempty" yaml:"storage,omitempty"`
	REST        *RESTServerData            `json:"rest,omitempty" yaml:"rest,omitempty"`
	Logging     LoggingData                `json:"logging" yaml:"logging"`
}

// RangeData is a closed [min, max] interval
type RangeData struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// RegionData maps a latitude/longitude box to the zones a vessel inside it
// may declare
type RegionData struct {
	Name     string      `json:"name" yaml:"name"`
	Zones    []string    `json:"zones" yaml:"zones"`
	Latitude RangeData   `json:"latitude" yaml:"latitude"`
	// Longitude holds one interval, or two for boxes crossing the
	// antimeridian.
	Longitude []RangeData `json:"longitude" yaml:"longitude"`
}

// SensorData holds the gross range limits of a sensor model
type SensorData struct {
	Temperature             RangeData  `json:"temperature" yaml:"temperature"`
	MaxPressure             float64    `json:"max_pressure" yaml:"max_pressure"`
	Salinity                *RangeData `json:"salinity,omitempty" yaml:"salinity,omitempty"`
	MaxPressureWithSalinity float64    `json:"max_pressure_with_salinity,omitempty" yaml:"max_pressure_with_salinity,omitempty"`
	GapSegmentation         bool       `json:"gap_segmentation,omitempty" yaml:"gap_segmentation,omitempty"`
}

// ClimatologyData holds the expected ranges of a zone
type ClimatologyData struct {
	Temperature RangeData `json:"temperature" yaml:"temperature"`
	Salinity    RangeData `json:"salinity" yaml:"salinity"`
}

// GearData configures gear type inference
type GearData struct {
	MobileDistanceMeters float64 `json:"mobile_distance_meters,omitempty" yaml:"mobile_distance_meters,omitempty"`
}

// EngineData configures the QC engine and the batch worker pool
type EngineData struct {
	Aggregation string `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Workers     int    `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// StorageData holds the configuration for the storage backends
type StorageData struct {
	SQLite *SQLiteData `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path" yaml:"path"`
}

type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
}

type LoggingData struct {
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}
