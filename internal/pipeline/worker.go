package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hydroeval/internal/evalerr"
	"hydroeval/internal/ingest"
	"hydroeval/internal/metrics"
	"hydroeval/internal/series"
)

// catchmentResult is produced by a worker for one catchment.
type catchmentResult struct {
	id      string
	aligned *series.Aligned
	display *series.Aligned
	record  metrics.Record
	outcome ingest.FileOutcome
	err     error
}

// processAll evaluates sources on a pool of cfg.Concurrency workers.
// Results are indexed by source position; per-catchment errors are carried
// in the result, only cancellation of ctx fails the call.
func (r *Runner) processAll(ctx context.Context, sources []ingest.Source) ([]catchmentResult, error) {
	results := make([]catchmentResult, len(sources))

	workers := r.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	r.log.Debug("processing catchments", "workers", workers, "catchments", len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.processWithTimeout(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processWithTimeout runs process under the per-catchment deadline. A
// catchment that overruns is reported as failed; its worker goroutine is
// abandoned and its result discarded.
func (r *Runner) processWithTimeout(ctx context.Context, src ingest.Source) catchmentResult {
	timeout := r.cfg.CatchmentTimeout.D()
	if timeout <= 0 {
		return r.process(src)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan catchmentResult, 1)
	go func() { done <- r.process(src) }()
	select {
	case cr := <-done:
		return cr
	case <-ctx.Done():
		err := evalerr.New(evalerr.KindTimeout, "evaluate",
			fmt.Errorf("exceeded %s: %w", timeout, ctx.Err())).WithCatchment(src.Catchment)
		return catchmentResult{id: src.Catchment, outcome: ingest.OutcomeFor(src, err), err: err}
	}
}

// process aligns one catchment, scores the full series and prepares the
// series for the artifact.
func (r *Runner) process(src ingest.Source) catchmentResult {
	start := time.Now()
	cr := catchmentResult{id: src.Catchment}

	aligned, err := r.aligner.Align(src)
	if err != nil {
		cr.err = err
		cr.outcome = ingest.OutcomeFor(src, err)
		return cr
	}
	record, err := metrics.Compute(aligned.Observed(), aligned.Simulated())
	if err != nil {
		cr.err = evalerr.New(evalerr.KindParse, "compute metrics", err).WithCatchment(src.Catchment)
		cr.outcome = ingest.OutcomeFor(src, cr.err)
		return cr
	}

	cr.aligned = aligned
	cr.record = record
	cr.display = aligned
	if r.cfg.Downsample {
		cr.display = series.Downsample(aligned, r.cfg.MaxPoints)
	}
	cr.outcome = ingest.OutcomeFor(src, nil)
	r.log.Debug("catchment evaluated", "catchment", src.Catchment,
		"rows", aligned.Len(), "dropped", aligned.Dropped(), "points", cr.display.Len(),
		"took", time.Since(start))
	return cr
}
