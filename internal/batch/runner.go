// Package batch runs the QC engine over many profiles with a bounded number
// of workers.
package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BerringDC/BDC-qc/internal/qc"
)

// DefaultWorkers is used when a Runner is created with a non-positive
// worker count.
const DefaultWorkers = 4

// Processor annotates one profile. *qc.Engine satisfies it.
type Processor interface {
	Process(p qc.Profile) (qc.Profile, error)
}

// Sink receives annotated profiles. The SQLite profile store satisfies it.
type Sink interface {
	Save(ctx context.Context, p qc.Profile) (uuid.UUID, error)
}

// Result is the outcome for one input profile. ID is set only when the
// profile was saved to a sink.
type Result struct {
	Profile qc.Profile
	ID      uuid.UUID
	Err     error
}

// Runner processes profiles concurrently.
type Runner struct {
	processor Processor
	sink      Sink
	workers   int
	logger    *zap.SugaredLogger
}

// NewRunner returns a Runner using at most workers goroutines. A nil sink
// disables saving and a nil logger discards logs.
func NewRunner(processor Processor, sink Sink, workers int, logger *zap.SugaredLogger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{
		processor: processor,
		sink:      sink,
		workers:   workers,
		logger:    logger.Named("batch"),
	}
}

// Run processes every profile and returns one result per input, in input
// order. A failing profile never stops the others. Once ctx is done, the
// profiles not yet started carry the context error.
func (r *Runner) Run(ctx context.Context, profiles []qc.Profile) []Result {
	results := make([]Result, len(profiles))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := range profiles {
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		i := i
		g.Go(func() error {
			results[i] = r.runOne(ctx, i, profiles[i])
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.logger.Infow("batch finished", "profiles", len(profiles), "failed", failed)
	return results
}

func (r *Runner) runOne(ctx context.Context, i int, p qc.Profile) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}

	out, err := r.processor.Process(p)
	if err != nil {
		r.logger.Warnw("profile rejected", "index", i, "vessel", p.Vessel, "error", err)
		return Result{Err: fmt.Errorf("profile %d: %w", i, err)}
	}
	res := Result{Profile: out}

	if r.sink != nil {
		id, err := r.sink.Save(ctx, out)
		if err != nil {
			res.Err = fmt.Errorf("failed to save profile %d: %w", i, err)
			return res
		}
		res.ID = id
	}
	return res
}
