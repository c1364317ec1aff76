package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/BerringDC/BDC-qc/internal/app"
	"github.com/BerringDC/BDC-qc/internal/ingest"
	"github.com/BerringDC/BDC-qc/internal/log"
	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	serve := flag.Bool("serve", false, "Serve the REST API instead of processing files")
	replay := flag.Bool("replay", false, "Treat arguments as saved satellite messages instead of profile files")
	store := flag.Bool("store", false, "Save annotated profiles to the configured SQLite store")
	vessel := flag.String("vessel", "", "Vessel identifier for CSV input")
	gear := flag.String("gear", string(qc.GearFixed), "Declared gear type for CSV input: Fixed or Mobile")
	zone := flag.String("zone", "", "Declared oceanographic zone for CSV input")
	sensor := flag.String("sensor", "", "Sensor type for CSV input: NKE, Moana, ZebraTech, Lowell, Marport or Hobo")
	workers := flag.Int("workers", 0, "Number of profiles processed concurrently (default from config)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("profileqc %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfgData.Engine.Workers = *workers
	}

	application := app.New(cfgData, log.GetSugaredLogger())

	if *serve {
		if err := application.Run(context.Background()); err != nil {
			log.Errorf("Application error: %v", err)
			os.Exit(1)
		}
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] file...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var failed int
	if *replay {
		failed, err = application.Replay(ctx, files, *store, os.Stdout)
	} else {
		meta := ingest.Metadata{
			Vessel: *vessel,
			Gear:   qc.GearType(*gear),
			Zone:   qc.Zone(*zone),
			Sensor: qc.SensorType(*sensor),
		}
		failed, err = application.ProcessFiles(ctx, files, meta, *store, os.Stdout)
	}
	if err != nil {
		log.Errorf("Processing failed: %v", err)
		os.Exit(1)
	}
	if failed > 0 {
		log.Warnf("%d of %d inputs failed", failed, len(files))
		os.Exit(2)
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
