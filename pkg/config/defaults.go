package config

const (
	DefaultAggregation          = "overwrite"
	DefaultWorkers              = 4
	DefaultMobileDistanceMeters = 200.0
	DefaultRESTPort             = 8080
)

// DefaultConfig returns the built-in lookup tables and settings.
func DefaultConfig() *ConfigData {
	return &ConfigData{
		Regions:     defaultRegions(),
		Sensors:     defaultSensors(),
		Climatology: defaultClimatology(),
		Gear:        GearData{MobileDistanceMeters: DefaultMobileDistanceMeters},
		Engine:      EngineData{Aggregation: DefaultAggregation, Workers: DefaultWorkers},
	}
}

// ApplyDefaults fills every omitted section of c from DefaultConfig. A
// section that is present replaces its default wholesale.
func (c *ConfigData) ApplyDefaults() {
	if len(c.Regions) == 0 {
		c.Regions = defaultRegions()
	}
	if len(c.Sensors) == 0 {
		c.Sensors = defaultSensors()
	}
	if len(c.Climatology) == 0 {
		c.Climatology = defaultClimatology()
	}
	if c.Gear.MobileDistanceMeters <= 0 {
		c.Gear.MobileDistanceMeters = DefaultMobileDistanceMeters
	}
	if c.Engine.Aggregation == "" {
		c.Engine.Aggregation = DefaultAggregation
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = DefaultWorkers
	}
	if c.REST != nil && c.REST.Port == 0 {
		c.REST.Port = DefaultRESTPort
	}
}

func lon(min, max float64) []RangeData { return []RangeData{{Min: min, Max: max}} }

func defaultRegions() []RegionData {
	return []RegionData{
		{Name: "Greenland", Zones: []string{"Greenland"}, Latitude: RangeData{55, 90}, Longitude: lon(-60, -15)},
		{Name: "North Sea", Zones: []string{"North Sea", "Atlantic"}, Latitude: RangeData{45, 60}, Longitude: lon(-15, 30)},
		{Name: "Atlantic", Zones: []string{"Atlantic"}, Latitude: RangeData{0, 90}, Longitude: lon(-75, 30)},
		{
			Name:      "New Zealand",
			Zones:     []string{"New Zealand"},
			Latitude:  RangeData{-50, -30},
			Longitude: []RangeData{{160, 180}, {0, 5}},
		},
		{Name: "Red Sea", Zones: []string{"Red Sea"}, Latitude: RangeData{10, 45}, Longitude: lon(30, 45)},
		{Name: "Mediterranean Sea", Zones: []string{"Mediterranean Sea"}, Latitude: RangeData{25, 45}, Longitude: lon(-5, 40)},
		{Name: "Alaska", Zones: []string{"Alaska"}, Latitude: RangeData{45, 90}, Longitude: lon(-180, -125)},
		{Name: "Pacific", Zones: []string{"Pacific"}, Latitude: RangeData{0, 60}, Longitude: lon(-180, -70)},
		{Name: "Gulf of Mexico", Zones: []string{"Gulf of Mexico"}, Latitude: RangeData{15, 35}, Longitude: lon(-100, -70)},
	}
}

func defaultSensors() map[string]SensorData {
	standard := RangeData{-2, 35}
	return map[string]SensorData{
		"NKE": {
			Temperature:             standard,
			MaxPressure:             1100,
			Salinity:                &RangeData{2, 42},
			MaxPressureWithSalinity: 330,
		},
		"Moana":     {Temperature: standard, MaxPressure: 1100, GapSegmentation: true},
		"ZebraTech": {Temperature: standard, MaxPressure: 1100},
		"Lowell":    {Temperature: RangeData{-5, 50}, MaxPressure: 1500},
	}
}

func defaultClimatology() map[string]ClimatologyData {
	open := ClimatologyData{Temperature: RangeData{2, 40}, Salinity: RangeData{2, 38}}
	return map[string]ClimatologyData{
		"Red Sea":               {Temperature: RangeData{21.7, 40}, Salinity: RangeData{2, 41}},
		"Mediterranean Sea":     {Temperature: RangeData{10, 40}, Salinity: RangeData{2, 40}},
		"North Western Shelves": {Temperature: RangeData{-2, 24}, Salinity: RangeData{0, 37}},
		"South West Shelves":    {Temperature: RangeData{-2, 30}, Salinity: RangeData{0, 38}},
		"Artic Sea":             {Temperature: RangeData{-1.92, 25}, Salinity: RangeData{2, 40}},
		"Atlantic":              open,
		"North Sea":             open,
		"Pacific":               open,
		"Gulf of Mexico":        open,
		"Alaska":                {Temperature: RangeData{-1.92, 25}, Salinity: RangeData{0, 40}},
	}
}
