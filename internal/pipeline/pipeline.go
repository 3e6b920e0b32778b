// Package pipeline runs an evaluation: it discovers catchments, aligns and
// scores each one on a bounded worker pool, merges the results in catchment
// order and hands them to the output writers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"hydroeval/internal/artifact"
	"hydroeval/internal/config"
	"hydroeval/internal/evalerr"
	"hydroeval/internal/ingest"
	"hydroeval/internal/logging"
	"hydroeval/internal/metrics"
	"hydroeval/internal/report"
	"hydroeval/internal/series"
	"hydroeval/internal/telemetry"
)

// ErrNoCatchments is returned when simulation files matched but no
// catchment produced metrics.
var ErrNoCatchments = errors.New("no catchment evaluated successfully")

// Result is the outcome of a run.
type Result struct {
	RunID string
	// Catchments lists the evaluated catchments in sorted order.
	Catchments []string
	Metrics    map[string]metrics.Record
	// Series holds the series embedded in the artifact, downsampled when
	// the run is configured to.
	Series   map[string]*series.Aligned
	Artifact string

	Outcomes []ingest.FileOutcome
	// Errors collects per-catchment failures and undefined metrics.
	Errors []error
	// Written lists the output files in write order.
	Written []string
}

// Entries returns the metric records in catchment order.
func (r *Result) Entries() []report.Entry {
	entries := make([]report.Entry, 0, len(r.Catchments))
	for _, id := range r.Catchments {
		entries = append(entries, report.Entry{Catchment: id, Metrics: r.Metrics[id]})
	}
	return entries
}

// aligner discovers catchments and loads their aligned series.
type aligner interface {
	Discover() (*ingest.Plan, error)
	Align(src ingest.Source) (*series.Aligned, error)
}

// Runner executes one evaluation run.
type Runner struct {
	runID   string
	cfg     config.RunConfig
	aligner aligner
	stats   *telemetry.Stats
	log     *slog.Logger
	now     func() time.Time
}

// Option customises a Runner.
type Option func(*Runner)

// WithStats records run statistics into s.
func WithStats(s *telemetry.Stats) Option {
	return func(r *Runner) { r.stats = s }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New returns a Runner for cfg.
func New(cfg config.RunConfig, opts ...Option) *Runner {
	r := &Runner{
		runID: uuid.NewString(),
		cfg:   cfg,
		aligner: ingest.NewAligner(ingest.Options{
			Dir:               cfg.Dir,
			SimulationGlob:    cfg.SimulationGlob,
			ObservationGlob:   cfg.ObservationGlob,
			IndexColumn:       cfg.IndexColumn,
			ObservationColumn: cfg.ObservationColumn,
			SimulationColumn:  cfg.SimulationColumn,
		}),
		now: time.Now,
	}
	r.log = logging.New("pipeline").With("run_id", r.runID)
	for _, o := range opts {
		o(r)
	}
	if r.stats == nil {
		r.stats = telemetry.NewStats()
	}
	return r
}

// RunID returns the identifier attached to the run's log lines.
func (r *Runner) RunID() string { return r.runID }

// Stats returns the run statistics collectors.
func (r *Runner) Stats() *telemetry.Stats { return r.stats }

// Run evaluates every discovered catchment and writes the outputs. A
// returned error aborts the run; per-catchment problems are collected in
// Result.Errors instead.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res, err := r.Evaluate(ctx)
	if err != nil {
		return res, err
	}

	start := r.now()
	written, err := report.WriteSummary(r.cfg.OutputDir, res.Entries())
	res.Written = append(res.Written, written...)
	if err != nil {
		return res, err
	}
	r.stage("metrics output", start)

	start = r.now()
	written, err = report.WriteLibrary(r.cfg.ReportLibDir, report.Library{
		Title:    r.cfg.Title,
		Entries:  res.Entries(),
		Artifact: res.Artifact,
	})
	res.Written = append(res.Written, written...)
	if err != nil {
		return res, err
	}
	r.stage("report resources", start)

	r.stats.Succeeded(r.now())
	r.log.Info("run complete",
		"catchments", len(res.Catchments), "errors", len(res.Errors), "files", len(res.Written))
	return res, nil
}

// Evaluate runs discovery, alignment, metrics and artifact encoding without
// writing any output.
func (r *Runner) Evaluate(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:   r.runID,
		Metrics: make(map[string]metrics.Record),
		Series:  make(map[string]*series.Aligned),
	}
	start := r.now()
	plan, err := r.aligner.Discover()
	if err != nil {
		return res, err
	}
	if plan.SimulationFiles == 0 {
		return res, evalerr.New(evalerr.KindDiscovery, "discover",
			fmt.Errorf("simulation glob %q matched no files", r.cfg.SimulationGlob))
	}
	res.Outcomes = append(res.Outcomes, plan.Outcomes...)
	for _, o := range plan.Outcomes {
		r.stats.File(o.Status.String())
	}
	r.log.Info("discovered catchments",
		"layout", plan.Layout, "simulation_files", plan.SimulationFiles, "catchments", len(plan.Sources))
	r.stage("load", start)

	start = r.now()
	results, err := r.processAll(ctx, plan.Sources)
	if err != nil {
		return res, err
	}
	r.merge(res, results)
	r.stage("process", start)

	if len(res.Catchments) == 0 {
		if len(res.Errors) == 0 {
			return res, ErrNoCatchments
		}
		return res, fmt.Errorf("%w: %w", ErrNoCatchments, errors.Join(res.Errors...))
	}

	payload := artifact.Build(res.Series)
	res.Artifact, err = artifact.Encode(payload)
	if err != nil {
		return res, err
	}
	r.stats.ArtifactSize(len(res.Artifact))
	r.log.Info("encoded artifact",
		"catchments", len(payload), "size", humanize.Bytes(uint64(len(res.Artifact))))
	return res, nil
}

// merge folds per-catchment results into res. results are in catchment
// order, so the merged lists are too.
func (r *Runner) merge(res *Result, results []catchmentResult) {
	for _, cr := range results {
		res.Outcomes = append(res.Outcomes, cr.outcome)
		r.stats.File(cr.outcome.Status.String())
		if cr.err != nil {
			res.Errors = append(res.Errors, cr.err)
			r.stats.Catchment(cr.outcome.Status.String())
			r.log.Warn("catchment not evaluated",
				"catchment", cr.id, "status", cr.outcome.Status, "error", cr.err)
			continue
		}
		res.Catchments = append(res.Catchments, cr.id)
		res.Metrics[cr.id] = cr.record
		res.Series[cr.id] = cr.display
		r.stats.Catchment("ok")
		r.stats.Rows(cr.aligned.Len(), cr.aligned.Dropped())
		for _, d := range cr.record.Degenerate {
			res.Errors = append(res.Errors,
				evalerr.New(evalerr.KindDegenerateStatistic, "compute "+d.Metric, d).WithCatchment(cr.id))
			r.stats.Undefined(d.Metric)
		}
	}
}

func (r *Runner) stage(name string, start time.Time) {
	d := r.now().Sub(start)
	r.stats.Stage(name, d)
	r.log.Debug("stage finished", "stage", name, "took", d)
}
