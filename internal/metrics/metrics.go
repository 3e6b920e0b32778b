// Package metrics computes goodness-of-fit statistics between an observed and
// a simulated series. Computation is pure: no I/O and no shared state.
package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metric names, in output order.
const (
	NameNSE  = "NSE"
	NameKGE  = "KGE"
	NameR2   = "R²"
	NameMSE  = "MSE"
	NameRMSE = "RMSE"
)

// Names lists the metric names in output order.
var Names = []string{NameNSE, NameKGE, NameR2, NameMSE, NameRMSE}

var (
	ErrEmpty          = errors.New("metrics: empty series")
	ErrLengthMismatch = errors.New("metrics: observed and simulated lengths differ")
	ErrNonFinite      = errors.New("metrics: non-finite input value")
)

// Degenerate records a metric that could not be defined because one of its
// denominators is zero.
type Degenerate struct {
	Metric string
	Reason string
}

func (d Degenerate) Error() string {
	return fmt.Sprintf("%s undefined: %s", d.Metric, d.Reason)
}

// Record is the metric set for one catchment.
type Record struct {
	NSE  Value
	KGE  Value
	R2   Value
	MSE  Value
	RMSE Value

	// Degenerate lists the undefined metrics and why.
	Degenerate []Degenerate
}

// Field is a named metric value.
type Field struct {
	Name  string
	Value Value
}

// Fields returns the metrics in output order.
func (r Record) Fields() []Field {
	return []Field{
		{NameNSE, r.NSE},
		{NameKGE, r.KGE},
		{NameR2, r.R2},
		{NameMSE, r.MSE},
		{NameRMSE, r.RMSE},
	}
}

// MarshalJSON writes the metrics as an object keyed by metric name in
// output order.
func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:", f.Name)
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads an object keyed by metric name.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]Value
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = Record{NSE: m[NameNSE], KGE: m[NameKGE], R2: m[NameR2], MSE: m[NameMSE], RMSE: m[NameRMSE]}
	return nil
}

// Compute returns the metric record for observed/simulated pairs matched by
// position. Both slices must be non-empty, of equal length and finite.
// Zero denominators do not fail the call: the affected metrics are left
// undefined and listed in Record.Degenerate.
func Compute(observed, simulated []float64) (Record, error) {
	if len(observed) == 0 {
		return Record{}, ErrEmpty
	}
	if len(observed) != len(simulated) {
		return Record{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(observed), len(simulated))
	}
	for i := range observed {
		if !finite(observed[i]) || !finite(simulated[i]) {
			return Record{}, fmt.Errorf("%w at position %d", ErrNonFinite, i)
		}
	}

	var rec Record
	ssRes := sumSquaredResiduals(observed, simulated)
	ssTot := sumSquaredDeviations(observed)
	flatObs := constant(observed)

	mse := ssRes / float64(len(observed))
	rec.MSE = Defined(mse)
	rec.RMSE = Defined(math.Sqrt(mse))

	if flatObs {
		rec.NSE = Undefined
		rec.Degenerate = append(rec.Degenerate, Degenerate{NameNSE, "observed series has zero variance"})
	} else {
		rec.NSE = Defined(1 - ssRes/ssTot)
	}
	rec.R2 = rSquared(observed, simulated, ssRes, flatObs)

	kge, reason := kge(observed, simulated)
	rec.KGE = kge
	if reason != "" {
		rec.Degenerate = append(rec.Degenerate, Degenerate{NameKGE, reason})
	}
	return rec, nil
}

// rSquared is the regression coefficient of determination of simulated
// predicting observed. A constant observed series scores 1 for a perfect
// prediction and 0 otherwise.
func rSquared(observed, simulated []float64, ssRes float64, flatObs bool) Value {
	if flatObs {
		if ssRes == 0 {
			return Defined(1)
		}
		return Defined(0)
	}
	return Defined(stat.RSquaredFrom(simulated, observed, nil))
}

// kge returns the Kling-Gupta efficiency, or Undefined with a reason.
func kge(observed, simulated []float64) (Value, string) {
	meanObs, stdObs := stat.PopMeanStdDev(observed, nil)
	meanSim, stdSim := stat.PopMeanStdDev(simulated, nil)
	switch {
	case stdObs == 0 || constant(observed):
		return Undefined, "observed series has zero standard deviation"
	case meanObs == 0:
		return Undefined, "observed series has zero mean"
	case stdSim == 0 || constant(simulated):
		return Undefined, "simulated series has zero standard deviation, correlation undefined"
	}
	r := stat.Correlation(observed, simulated, nil)
	alpha := stdSim / stdObs
	beta := meanSim / meanObs
	v := 1 - math.Sqrt((r-1)*(r-1)+(alpha-1)*(alpha-1)+(beta-1)*(beta-1))
	if !finite(v) {
		return Undefined, "non-finite intermediate result"
	}
	return Defined(v), ""
}

func sumSquaredResiduals(observed, simulated []float64) float64 {
	var s float64
	for i := range observed {
		d := observed[i] - simulated[i]
		s += d * d
	}
	return s
}

func sumSquaredDeviations(x []float64) float64 {
	m := stat.Mean(x, nil)
	var s float64
	for _, v := range x {
		d := v - m
		s += d * d
	}
	return s
}

// constant reports whether every value equals the first. A rounded mean
// leaves a tiny non-zero sum of squares for series like [0.1, 0.1, 0.1], so
// zero variance is decided on the values themselves.
func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
