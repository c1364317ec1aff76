// Package app wires configuration, the QC engine, storage and the API
// server into the profileqc application.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BerringDC/BDC-qc/internal/batch"
	"github.com/BerringDC/BDC-qc/internal/controllers/restserver"
	"github.com/BerringDC/BDC-qc/internal/ingest"
	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/internal/storage"
	"github.com/BerringDC/BDC-qc/internal/storage/sqlite"
	"github.com/BerringDC/BDC-qc/internal/telemetry"
	"github.com/BerringDC/BDC-qc/pkg/config"
)

// ErrStorageNotConfigured is returned when saving is requested without a
// storage section in the configuration.
var ErrStorageNotConfigured = errors.New("storage.sqlite is not configured")

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	clock  qc.Clock
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{cfg: cfg, clock: qc.RealClock{}, logger: logger}
}

// WithClock sets the processing time used by the engine.
func (a *App) WithClock(c qc.Clock) *App {
	if c != nil {
		a.clock = c
	}
	return a
}

// Engine builds the QC engine from the configured tables.
func (a *App) Engine() (*qc.Engine, error) {
	tables, err := a.cfg.Tables()
	if err != nil {
		return nil, fmt.Errorf("invalid lookup tables: %w", err)
	}
	agg, err := a.cfg.Aggregation()
	if err != nil {
		return nil, err
	}
	return qc.NewEngine(tables,
		qc.WithAggregation(agg),
		qc.WithClock(a.clock),
		qc.WithLogger(a.logger.Named("qc")),
	), nil
}

// openStore returns nil without error when no storage is configured.
func (a *App) openStore() (storage.ProfileStore, error) {
	if a.cfg.Storage.SQLite == nil || a.cfg.Storage.SQLite.Path == "" {
		return nil, nil
	}
	s, err := sqlite.Open(a.cfg.Storage.SQLite.Path, a.logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *App) requireStore() (storage.ProfileStore, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrStorageNotConfigured
	}
	return s, nil
}

// Run serves the REST API and blocks until a shutdown signal arrives or ctx
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine, err := a.Engine()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	} else {
		a.logger.Warn("storage.sqlite not configured; profile storage endpoints are disabled")
	}

	rc := config.RESTServerData{}
	if a.cfg.REST != nil {
		rc = *a.cfg.REST
	}
	ctrl := restserver.NewController(ctx, &wg, rc, engine, store, a.logger)
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Info("application started successfully")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	cancel()

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")
	return nil
}

// FileResult is one line of batch output.
type FileResult struct {
	File    string                    `json:"file"`
	Error   string                    `json:"error,omitempty"`
	Profile *ingest.AnnotatedDocument `json:"profile,omitempty"`
}

// ProcessFiles runs QC over CSV or JSON profile files and writes one JSON
// line per file to out. Files ending in .json are read as profile documents
// and carry their own metadata; other files are CSV and use meta. It
// returns the number of files that failed.
func (a *App) ProcessFiles(ctx context.Context, files []string, meta ingest.Metadata, save bool, out io.Writer) (int, error) {
	engine, err := a.Engine()
	if err != nil {
		return 0, err
	}

	var sink batch.Sink
	if save {
		store, err := a.requireStore()
		if err != nil {
			return 0, err
		}
		defer store.Close()
		sink = store
	}

	results := make([]FileResult, len(files))
	var profiles []qc.Profile
	var positions []int
	for i, f := range files {
		results[i].File = f
		p, err := readProfile(f, meta)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		profiles = append(profiles, p)
		positions = append(positions, i)
	}

	runner := batch.NewRunner(engine, sink, a.cfg.Engine.Workers, a.logger)
	for j, res := range runner.Run(ctx, profiles) {
		i := positions[j]
		if res.Err != nil {
			results[i].Error = res.Err.Error()
		}
		if res.Profile.Samples != nil {
			doc := ingest.EncodeProfile(res.Profile)
			if res.ID != uuid.Nil {
				doc.ID = res.ID.String()
			}
			results[i].Profile = &doc
		}
	}

	return writeResults(out, results)
}

// Replay feeds saved satellite messages through the telemetry receiver as
// if the modem had delivered them, and writes one JSON line per file.
func (a *App) Replay(ctx context.Context, files []string, save bool, out io.Writer) (int, error) {
	engine, err := a.Engine()
	if err != nil {
		return 0, err
	}

	var sink telemetry.Sink
	if save {
		store, err := a.requireStore()
		if err != nil {
			return 0, err
		}
		defer store.Close()
		sink = store
	}

	receiver := telemetry.NewReceiver(engine, sink, a.logger)
	results := make([]FileResult, len(files))
	for i, f := range files {
		results[i].File = f
		if err := ctx.Err(); err != nil {
			results[i].Error = err.Error()
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		p, err := receiver.Handle(ctx, i+1, data)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		doc := ingest.EncodeProfile(p)
		results[i].Profile = &doc
	}

	return writeResults(out, results)
}

func readProfile(path string, meta ingest.Metadata) (qc.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return qc.Profile{}, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ingest.DecodeProfile(f)
	}
	return ingest.ReadCSV(f, meta)
}

func writeResults(out io.Writer, results []FileResult) (int, error) {
	enc := json.NewEncoder(out)
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return failed, fmt.Errorf("failed to write result for %s: %w", r.File, err)
		}
	}
	return failed, nil
}
