// Package series holds the typed per-catchment time series: the aligned
// observed/simulated table and its decimated rendering view.
package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// TimeLayout is the timestamp format used wherever a series leaves the
// process as text.
const TimeLayout = "2006-01-02 15:04:05"

// ErrDuplicateTimestamp is returned when two rows share a timestamp.
var ErrDuplicateTimestamp = errors.New("duplicate timestamp")

// Row is one aligned observation/simulation pair.
type Row struct {
	Time      time.Time
	Observed  float64
	Simulated float64
}

// Aligned is an immutable, strictly time-ordered series with no missing
// values and no duplicate timestamps.
type Aligned struct {
	rows    []Row
	dropped int
}

// NewAligned validates rows into an Aligned series. Rows with a NaN in either
// value column are dropped; the rest are sorted by timestamp. The input slice
// is not retained.
func NewAligned(rows []Row) (*Aligned, error) {
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if math.IsNaN(r.Observed) || math.IsNaN(r.Simulated) {
			continue
		}
		kept = append(kept, r)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Time.Before(kept[j].Time) })
	for i := 1; i < len(kept); i++ {
		if kept[i].Time.Equal(kept[i-1].Time) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTimestamp, kept[i].Time.Format(TimeLayout))
		}
	}
	return &Aligned{rows: kept, dropped: len(rows) - len(kept)}, nil
}

// Len returns the number of rows.
func (a *Aligned) Len() int { return len(a.rows) }

// Dropped returns how many input rows were discarded for missing values.
func (a *Aligned) Dropped() int { return a.dropped }

// Row returns the i-th row.
func (a *Aligned) Row(i int) Row { return a.rows[i] }

// Rows returns a copy of all rows.
func (a *Aligned) Rows() []Row {
	out := make([]Row, len(a.rows))
	copy(out, a.rows)
	return out
}

// Times returns the timestamps in order.
func (a *Aligned) Times() []time.Time {
	out := make([]time.Time, len(a.rows))
	for i, r := range a.rows {
		out[i] = r.Time
	}
	return out
}

// Observed returns the observed values in order.
func (a *Aligned) Observed() []float64 {
	out := make([]float64, len(a.rows))
	for i, r := range a.rows {
		out[i] = r.Observed
	}
	return out
}

// Simulated returns the simulated values in order.
func (a *Aligned) Simulated() []float64 {
	out := make([]float64, len(a.rows))
	for i, r := range a.rows {
		out[i] = r.Simulated
	}
	return out
}
