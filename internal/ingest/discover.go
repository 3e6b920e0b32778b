package ingest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"hydroeval/internal/evalerr"
)

// Layout is the file arrangement a run resolved to.
type Layout int

const (
	LayoutCombined Layout = iota
	LayoutSplit
)

func (l Layout) String() string {
	if l == LayoutSplit {
		return "split"
	}
	return "combined"
}

// Source is the set of files that make up one catchment.
type Source struct {
	Catchment   string
	Simulation  string
	Observation string // empty in the combined layout
}

// Plan is the result of discovery: one Source per catchment, sorted by
// catchment ID, plus outcomes for files that were set aside.
type Plan struct {
	Layout          Layout
	SimulationFiles int
	Sources         []Source
	Outcomes        []FileOutcome
}

// CatchmentID extracts the catchment identifier from a file path.
func CatchmentID(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.LastIndexByte(stem, '_'); i >= 0 {
		return stem[i+1:]
	}
	return stem
}

// Discover expands the configured globs and pairs files by catchment ID.
// An empty simulation match yields an empty plan, not an error.
func (a *Aligner) Discover() (*Plan, error) {
	simFiles, err := a.glob(a.opts.SimulationGlob)
	if err != nil {
		return nil, err
	}
	var obsFiles []string
	if a.opts.ObservationGlob != "" {
		if obsFiles, err = a.glob(a.opts.ObservationGlob); err != nil {
			return nil, err
		}
	}

	plan := &Plan{SimulationFiles: len(simFiles)}
	sims := groupByCatchment(simFiles, plan)

	if len(obsFiles) == 0 {
		plan.Layout = LayoutCombined
		for _, id := range sortedKeys(sims) {
			plan.Sources = append(plan.Sources, Source{Catchment: id, Simulation: sims[id]})
		}
		return plan, nil
	}

	plan.Layout = LayoutSplit
	obs := groupByCatchment(obsFiles, plan)
	for _, id := range sortedKeys(sims) {
		if _, ok := obs[id]; !ok {
			plan.Outcomes = append(plan.Outcomes, skipped(sims[id], id, "no observation file for catchment"))
			continue
		}
		plan.Sources = append(plan.Sources, Source{Catchment: id, Simulation: sims[id], Observation: obs[id]})
	}
	for _, id := range sortedKeys(obs) {
		if _, ok := sims[id]; !ok {
			plan.Outcomes = append(plan.Outcomes, skipped(obs[id], id, "no simulation file for catchment"))
		}
	}
	return plan, nil
}

func (a *Aligner) glob(pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) && a.opts.Dir != "" {
		pattern = filepath.Join(a.opts.Dir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &evalerr.Error{Kind: evalerr.KindDiscovery, Op: "glob", Path: pattern, Err: err}
	}
	sort.Strings(matches)
	return matches, nil
}

// groupByCatchment maps catchment ID to file. Paths are visited in lexical
// order and the last file for an ID wins; superseded files are recorded as
// skipped in plan.
func groupByCatchment(paths []string, plan *Plan) map[string]string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		id := CatchmentID(p)
		if prev, ok := out[id]; ok {
			plan.Outcomes = append(plan.Outcomes, skipped(prev, id, fmt.Sprintf("superseded by %s", p)))
		}
		out[id] = p
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
