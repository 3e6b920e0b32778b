package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hydroeval/internal/evalerr"
	"hydroeval/internal/series"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func opts(dir, sim, obs string) Options {
	return Options{
		Dir:               dir,
		SimulationGlob:    sim,
		ObservationGlob:   obs,
		IndexColumn:       "date",
		ObservationColumn: "qobs",
		SimulationColumn:  "qsim",
	}
}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCatchmentID(t *testing.T) {
	tests := []struct{ path, want string }{
		{"data/sim_DE110000.csv", "DE110000"},
		{"obs_run_1_A.csv", "A"},
		{"/abs/path/nounderscore.csv", "nounderscore"},
		{"series_B.tar.csv", "B.tar"},
		{"trailing_.csv", ""},
	}
	for _, tt := range tests {
		if got := CatchmentID(tt.path); got != tt.want {
			t.Errorf("CatchmentID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAlignAll_SplitInnerJoin(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "obs_A.csv", "date,qobs\n2020-01-01,1\n2020-01-02,2\n2020-01-03,3\n")
	writeCSV(t, dir, "sim_A.csv", "date,qsim\n2020-01-04,40\n2020-01-03,30\n2020-01-02,20\n")

	got, outcomes, err := NewAligner(opts(dir, "sim_*.csv", "obs_*.csv")).AlignAll()
	if err != nil {
		t.Fatalf("AlignAll: %v", err)
	}
	a, ok := got["A"]
	if !ok {
		t.Fatalf("catchment A missing; outcomes=%+v", outcomes)
	}
	want := []series.Row{
		{Time: ts("2020-01-02"), Observed: 2, Simulated: 20},
		{Time: ts("2020-01-03"), Observed: 3, Simulated: 30},
	}
	if diff := cmp.Diff(want, a.Rows()); diff != "" {
		t.Errorf("aligned rows (-want +got):\n%s", diff)
	}
}

func TestAlignAll_SplitKeepsCommonCatchments(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "obs_A.csv", "date,qobs\n2020-01-01,1\n")
	writeCSV(t, dir, "sim_A.csv", "date,qsim\n2020-01-01,1\n")
	writeCSV(t, dir, "obs_B.csv", "date,qobs\n2020-01-01,1\n")
	writeCSV(t, dir, "sim_C.csv", "date,qsim\n2020-01-01,1\n")

	a := NewAligner(opts(dir, "sim_*.csv", "obs_*.csv"))
	plan, err := a.Discover()
	if err != nil {
		t.Fatal(err)
	}
	if plan.Layout != LayoutSplit {
		t.Errorf("layout = %v, want split", plan.Layout)
	}
	if len(plan.Sources) != 1 || plan.Sources[0].Catchment != "A" {
		t.Fatalf("sources = %+v, want only A", plan.Sources)
	}
	if len(plan.Outcomes) != 2 {
		t.Errorf("outcomes = %+v, want 2 unmatched skips", plan.Outcomes)
	}
	for _, o := range plan.Outcomes {
		if o.Status != StatusSkipped {
			t.Errorf("outcome %+v should be skipped", o)
		}
	}
}

func TestAlignAll_CombinedSkipsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "run_A.csv", "date,qobs,qsim\n2020-01-01,1,1.5\n2020-01-02,2,2.5\n")
	writeCSV(t, dir, "run_B.csv", "date,qobs\n2020-01-01,1\n")

	got, outcomes, err := NewAligner(opts(dir, "run_*.csv", "")).AlignAll()
	if err != nil {
		t.Fatalf("AlignAll should not fail on a schema mismatch: %v", err)
	}
	if _, ok := got["B"]; ok {
		t.Error("catchment B lacks the simulation column and must be excluded")
	}
	if got["A"] == nil || got["A"].Len() != 2 {
		t.Fatalf("catchment A = %+v, want 2 rows", got["A"])
	}
	var sawB bool
	for _, o := range outcomes {
		if o.Catchment == "B" {
			sawB = true
			if o.Status != StatusSkipped || !evalerr.Is(o.Err, evalerr.KindSchema) {
				t.Errorf("B outcome = %+v, want skipped schema error", o)
			}
		}
	}
	if !sawB {
		t.Error("no outcome recorded for B")
	}
}

func TestAlignAll_EmptyObservationGlobFallsBackToCombined(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "run_A.csv", "date,qobs,qsim\n2020-01-01,1,2\n")

	a := NewAligner(opts(dir, "run_*.csv", "nothing_*.csv"))
	plan, err := a.Discover()
	if err != nil {
		t.Fatal(err)
	}
	if plan.Layout != LayoutCombined {
		t.Errorf("layout = %v, want combined", plan.Layout)
	}
	got, _, err := a.AlignAll()
	if err != nil {
		t.Fatal(err)
	}
	if got["A"] == nil {
		t.Error("catchment A missing")
	}
}

func TestAlignAll_EmptySimulationGlob(t *testing.T) {
	got, outcomes, err := NewAligner(opts(t.TempDir(), "sim_*.csv", "")).AlignAll()
	if err != nil {
		t.Fatalf("empty match must not error: %v", err)
	}
	if len(got) != 0 || len(outcomes) != 0 {
		t.Errorf("got %v / %v, want empty", got, outcomes)
	}
}

func TestAlignAll_DropsMissingValues(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "run_A.csv", "date,qobs,qsim\n2020-01-01,1,1\n2020-01-02,,2\n2020-01-03,3,NaN\n2020-01-04,4,4\n")

	got, _, err := NewAligner(opts(dir, "run_*.csv", "")).AlignAll()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 4}, got["A"].Observed()); diff != "" {
		t.Errorf("observed (-want +got):\n%s", diff)
	}
	if got["A"].Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", got["A"].Dropped())
	}
}

func TestAlign_ParseErrorIsolatedPerFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "run_A.csv", "date,qobs,qsim\nnot-a-date,1,1\n")
	writeCSV(t, dir, "run_B.csv", "date,qobs,qsim\n2020-01-01,x,1\n")
	writeCSV(t, dir, "run_C.csv", "date,qobs,qsim\n2020-01-01,1,1\n")

	got, outcomes, err := NewAligner(opts(dir, "run_*.csv", "")).AlignAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got["C"] == nil {
		t.Fatalf("got %v, want only C", got)
	}
	failed := 0
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			failed++
			if !evalerr.Is(o.Err, evalerr.KindParse) {
				t.Errorf("outcome %+v: want parse error", o)
			}
		}
	}
	if failed != 2 {
		t.Errorf("failed outcomes = %d, want 2", failed)
	}
}

func TestAlign_NoOverlapIsParseError(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "obs_A.csv", "date,qobs\n2020-01-01,1\n")
	writeCSV(t, dir, "sim_A.csv", "date,qsim\n2021-01-01,1\n")

	a := NewAligner(opts(dir, "sim_*.csv", "obs_*.csv"))
	plan, _ := a.Discover()
	_, err := a.Align(plan.Sources[0])
	if !errors.Is(err, evalerr.ErrNoAlignedRows) {
		t.Fatalf("err = %v, want ErrNoAlignedRows", err)
	}
}

func TestDiscover_DuplicateCatchmentLastWins(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a_sim_X.csv", "date,qobs,qsim\n2020-01-01,1,1\n")
	writeCSV(t, dir, "b_sim_X.csv", "date,qobs,qsim\n2020-01-01,9,9\n")

	a := NewAligner(opts(dir, "*_sim_*.csv", ""))
	plan, err := a.Discover()
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Sources) != 1 || filepath.Base(plan.Sources[0].Simulation) != "b_sim_X.csv" {
		t.Fatalf("sources = %+v, want b_sim_X.csv", plan.Sources)
	}
	if len(plan.Outcomes) != 1 || filepath.Base(plan.Outcomes[0].Path) != "a_sim_X.csv" {
		t.Errorf("outcomes = %+v, want a_sim_X.csv superseded", plan.Outcomes)
	}
}

func TestDiscover_BadPattern(t *testing.T) {
	_, err := NewAligner(opts(t.TempDir(), "[", "")).Discover()
	if !evalerr.Is(err, evalerr.KindDiscovery) {
		t.Fatalf("err = %v, want discovery error", err)
	}
}

func TestParseRows_DuplicateTimestampLastWins(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "run_A.csv", "date,qobs,qsim\n2020-01-01,1,1\n2020-01-02,2,2\n2020-01-01,5,5\n")

	got, _, err := NewAligner(opts(dir, "run_*.csv", "")).AlignAll()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{5, 2}, got["A"].Observed()); diff != "" {
		t.Errorf("observed (-want +got):\n%s", diff)
	}
}

func TestParseTimestamp_Formats(t *testing.T) {
	want := time.Date(2020, 3, 1, 6, 30, 0, 0, time.UTC)
	for _, in := range []string{"2020-03-01 06:30:00", "2020-03-01T06:30:00Z"} {
		got, err := parseTimestamp(in)
		if err != nil {
			t.Errorf("parseTimestamp(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseTimestamp_KeepsOffset(t *testing.T) {
	got, err := parseTimestamp("2020-03-01T00:00:00+02:00")
	if err != nil {
		t.Fatal(err)
	}
	if s := got.Format(series.TimeLayout); s != "2020-03-01 00:00:00" {
		t.Errorf("formatted = %q, want wall clock of the given offset", s)
	}
	if want := time.Date(2020, 2, 29, 22, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("instant = %v, want %v", got, want)
	}
}
