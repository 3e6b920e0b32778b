package ingest

import (
	"errors"
	"fmt"

	"hydroeval/internal/evalerr"
	"hydroeval/internal/series"
)

// Options configures discovery and alignment. Globs are POSIX patterns,
// relative to Dir unless absolute.
type Options struct {
	Dir               string
	SimulationGlob    string
	ObservationGlob   string
	IndexColumn       string
	ObservationColumn string
	SimulationColumn  string
}

// Aligner turns catchment files into aligned series. It holds only its
// options and is safe for concurrent use.
type Aligner struct {
	opts Options
}

// NewAligner returns an Aligner for opts.
func NewAligner(opts Options) *Aligner {
	return &Aligner{opts: opts}
}

// Align loads the files of one catchment and returns its aligned series.
// Errors are classified: a missing column is KindSchema, an unparseable cell
// or an empty result is KindParse.
func (a *Aligner) Align(src Source) (*series.Aligned, error) {
	var (
		s   *series.Aligned
		err error
	)
	if src.Observation == "" {
		s, err = a.alignCombined(src)
	} else {
		s, err = a.alignSplit(src)
	}
	if err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, &evalerr.Error{Kind: evalerr.KindParse, Op: "align", Catchment: src.Catchment, Path: src.Simulation, Err: evalerr.ErrNoAlignedRows}
	}
	return s, nil
}

func (a *Aligner) alignCombined(src Source) (*series.Aligned, error) {
	t, err := a.load(src.Catchment, src.Simulation)
	if err != nil {
		return nil, err
	}
	pos, err := t.require(a.opts.IndexColumn, a.opts.ObservationColumn, a.opts.SimulationColumn)
	if err != nil {
		return nil, classify(src.Catchment, src.Simulation, "check columns", err)
	}
	rows, err := t.parseRows(pos[0], pos[1], pos[2])
	if err != nil {
		return nil, classify(src.Catchment, src.Simulation, "parse", err)
	}
	out := make([]series.Row, len(rows))
	for i, r := range rows {
		out[i] = series.Row{Time: r.time, Observed: r.values[0], Simulated: r.values[1]}
	}
	return newAligned(src, out)
}

// alignSplit inner-joins the observation and simulation tables on the index
// column. Only timestamps present in both survive.
func (a *Aligner) alignSplit(src Source) (*series.Aligned, error) {
	obs, err := a.columnPair(src.Catchment, src.Observation, a.opts.ObservationColumn)
	if err != nil {
		return nil, err
	}
	sim, err := a.columnPair(src.Catchment, src.Simulation, a.opts.SimulationColumn)
	if err != nil {
		return nil, err
	}

	byTime := make(map[int64]float64, len(obs))
	for _, r := range obs {
		byTime[r.time.UnixNano()] = r.values[0]
	}
	joined := make([]series.Row, 0, min(len(obs), len(sim)))
	for _, r := range sim {
		o, ok := byTime[r.time.UnixNano()]
		if !ok {
			continue
		}
		joined = append(joined, series.Row{Time: r.time, Observed: o, Simulated: r.values[0]})
	}
	return newAligned(src, joined)
}

func (a *Aligner) columnPair(catchment, path, valueColumn string) ([]keyed, error) {
	t, err := a.load(catchment, path)
	if err != nil {
		return nil, err
	}
	pos, err := t.require(a.opts.IndexColumn, valueColumn)
	if err != nil {
		return nil, classify(catchment, path, "check columns", err)
	}
	rows, err := t.parseRows(pos[0], pos[1])
	if err != nil {
		return nil, classify(catchment, path, "parse", err)
	}
	return rows, nil
}

func (a *Aligner) load(catchment, path string) (*table, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, classify(catchment, path, "read", err)
	}
	return t, nil
}

func newAligned(src Source, rows []series.Row) (*series.Aligned, error) {
	s, err := series.NewAligned(rows)
	if err != nil {
		return nil, classify(src.Catchment, src.Simulation, "align", err)
	}
	return s, nil
}

func classify(catchment, path, op string, err error) error {
	kind := evalerr.KindParse
	if errors.Is(err, errMissingColumn) {
		kind = evalerr.KindSchema
	}
	return &evalerr.Error{Kind: kind, Op: op, Catchment: catchment, Path: path, Err: err}
}

// AlignAll discovers and aligns every catchment sequentially. Files that fail
// are reported in the outcomes and left out of the mapping; only a bad glob
// pattern is returned as an error.
func (a *Aligner) AlignAll() (map[string]*series.Aligned, []FileOutcome, error) {
	plan, err := a.Discover()
	if err != nil {
		return nil, nil, err
	}
	out := make(map[string]*series.Aligned, len(plan.Sources))
	outcomes := append([]FileOutcome(nil), plan.Outcomes...)
	for _, src := range plan.Sources {
		s, err := a.Align(src)
		outcomes = append(outcomes, OutcomeFor(src, err))
		if err != nil {
			continue
		}
		out[src.Catchment] = s
	}
	return out, outcomes, nil
}

// OutcomeFor converts the result of aligning src into a FileOutcome for its
// simulation file. Schema mismatches are skips, everything else a failure.
func OutcomeFor(src Source, err error) FileOutcome {
	o := FileOutcome{Path: src.Simulation, Catchment: src.Catchment, Status: StatusOK}
	if err == nil {
		return o
	}
	o.Err = err
	o.Status = StatusFailed
	if evalerr.Is(err, evalerr.KindSchema) {
		o.Status = StatusSkipped
	}
	var ce *evalerr.Error
	if errors.As(err, &ce) && ce.Path != "" {
		o.Path = ce.Path
	}
	o.Reason = fmt.Sprint(err)
	return o
}
