package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hydroeval/internal/artifact"
	"hydroeval/internal/config"
	"hydroeval/internal/evalerr"
	"hydroeval/internal/format"
	"hydroeval/internal/ingest"
	"hydroeval/internal/metrics"
	"hydroeval/internal/report"
	"hydroeval/internal/series"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// combinedCSV builds a combined-layout table of n daily rows where the
// simulation is the observation plus offset.
func combinedCSV(n int, obs func(i int) float64, offset float64) string {
	var b strings.Builder
	b.WriteString("date,qobs,qsim\n")
	for i := 0; i < n; i++ {
		o := obs(i)
		fmt.Fprintf(&b, "2020-01-%02d,%g,%g\n", i+1, o, o+offset)
	}
	return b.String()
}

func testConfig(t *testing.T, dir string) config.RunConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Dir = dir
	cfg.SimulationGlob = "sim_*.csv"
	cfg.IndexColumn = "date"
	cfg.ObservationColumn = "qobs"
	cfg.SimulationColumn = "qsim"
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.ReportLibDir = filepath.Join(dir, "report", "src", "lib")
	cfg.Concurrency = 4
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	ramp := func(i int) float64 { return float64(i + 1) }
	writeFile(t, dir, "sim_A.csv", combinedCSV(5, ramp, 0))
	writeFile(t, dir, "sim_B.csv", combinedCSV(5, ramp, 1))

	res, err := New(testConfig(t, dir)).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"A", "B"}, res.Catchments)
	require.Empty(t, res.Errors)
	require.NotEmpty(t, res.RunID)

	a := res.Metrics["A"]
	require.Equal(t, metrics.Defined(1), a.NSE)
	require.InDelta(t, 1.0, a.KGE.V, 1e-12)
	require.Equal(t, metrics.Defined(0), a.RMSE)

	b := res.Metrics["B"]
	require.InDelta(t, 1.0, b.MSE.V, 1e-12)
	require.InDelta(t, 1.0, b.RMSE.V, 1e-12)
	require.InDelta(t, 0.5, b.NSE.V, 1e-12)

	require.Len(t, res.Written, 6)
	csvData, err := os.ReadFile(filepath.Join(dir, "out", report.SummaryCSV))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Equal(t, "Catchment,NSE,KGE,R²,MSE,RMSE", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "A,1.0,"), lines[1])
	require.True(t, strings.HasSuffix(lines[1], ",0.0,0.0"), lines[1])
	require.True(t, strings.HasPrefix(lines[2], "B,0.5,"))

	module, err := os.ReadFile(filepath.Join(dir, "report", "src", "lib", report.DatasetModule))
	require.NoError(t, err)
	encoded, err := report.ParseDatasetModule(string(module))
	require.NoError(t, err)
	require.Equal(t, res.Artifact, encoded)

	payload, err := artifact.Decode(encoded)
	require.NoError(t, err)
	require.Len(t, payload, 2)
	require.Equal(t, "2020-01-01 00:00:00", payload["A"].Index[0])
	require.Equal(t, []float64{2, 3, 4, 5, 6}, payload["B"].Simulation)
	require.Equal(t, []float64{1, 2, 3, 4, 5}, payload["B"].Observation)
}

func TestRun_SplitLayoutSkipsUnmatched(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sim_A.csv", "date,qsim\n2020-01-01,1\n2020-01-02,2\n2020-01-03,4\n")
	writeFile(t, dir, "obs_A.csv", "date,qobs\n2020-01-02,2\n2020-01-03,3\n2020-01-04,9\n")
	writeFile(t, dir, "sim_B.csv", "date,qsim\n2020-01-01,1\n")

	cfg := testConfig(t, dir)
	cfg.ObservationGlob = "obs_*.csv"
	res, err := New(cfg).Evaluate(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"A"}, res.Catchments)
	require.Equal(t, 2, res.Series["A"].Len())

	var skipped []string
	for _, o := range res.Outcomes {
		if o.Status == ingest.StatusSkipped {
			skipped = append(skipped, o.Catchment)
		}
	}
	require.Equal(t, []string{"B"}, skipped)
}

func TestRun_NoSimulationFiles(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	res, err := New(cfg).Run(context.Background())
	require.Error(t, err)
	require.True(t, evalerr.Is(err, evalerr.KindDiscovery))
	require.True(t, evalerr.IsFatal(err))
	require.Empty(t, res.Catchments)

	_, statErr := os.Stat(cfg.OutputDir)
	require.True(t, os.IsNotExist(statErr), "no outputs on a failed run")
}

func TestRun_AllCatchmentsFail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sim_A.csv", "date,qobs,qsim\n2020-01-01,abc,1\n")
	writeFile(t, dir, "sim_B.csv", "date,flow\n2020-01-01,1\n")

	res, err := New(testConfig(t, dir)).Run(context.Background())
	require.ErrorIs(t, err, ErrNoCatchments)
	require.Len(t, res.Errors, 2)
	require.True(t, evalerr.Is(res.Errors[0], evalerr.KindParse))
	require.True(t, evalerr.Is(res.Errors[1], evalerr.KindSchema))
}

func TestRun_PartialFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	ramp := func(i int) float64 { return float64(i + 1) }
	writeFile(t, dir, "sim_A.csv", combinedCSV(4, ramp, 0))
	writeFile(t, dir, "sim_B.csv", "date,qobs,qsim\n2020-01-01,1,oops\n")
	writeFile(t, dir, "sim_C.csv", combinedCSV(4, ramp, 2))

	res, err := New(testConfig(t, dir)).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C"}, res.Catchments)
	require.Len(t, res.Errors, 1)

	var ce *evalerr.Error
	require.ErrorAs(t, res.Errors[0], &ce)
	require.Equal(t, "B", ce.Catchment)
}

func TestRun_DegenerateMetricsAreNull(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sim_F.csv", "date,qobs,qsim\n2020-01-01,5,4\n2020-01-02,5,6\n2020-01-03,5,5\n")

	res, err := New(testConfig(t, dir)).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"F"}, res.Catchments)

	rec := res.Metrics["F"]
	require.False(t, rec.NSE.Valid)
	require.False(t, rec.KGE.Valid)
	require.NotEmpty(t, res.Errors)
	for _, e := range res.Errors {
		require.True(t, evalerr.Is(e, evalerr.KindDegenerateStatistic), "unexpected error %v", e)
		require.False(t, evalerr.IsFatal(e))
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", report.SummaryJSON))
	require.NoError(t, err)
	require.Contains(t, string(data), `"NSE": null`)
	require.NotContains(t, string(data), "NaN")
}

func TestRun_DownsamplesArtifactNotMetrics(t *testing.T) {
	dir := t.TempDir()
	wave := func(i int) float64 { return float64(i%7) + 1 }
	writeFile(t, dir, "sim_A.csv", combinedCSV(28, wave, 0.5))

	cfg := testConfig(t, dir)
	cfg.MaxPoints = 10
	res, err := New(cfg).Evaluate(context.Background())
	require.NoError(t, err)

	require.LessOrEqual(t, res.Series["A"].Len(), 10)
	require.InDelta(t, 0.25, res.Metrics["A"].MSE.V, 1e-12)

	cfg.Downsample = false
	full, err := New(cfg).Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 28, full.Series["A"].Len())
	require.Equal(t, res.Metrics["A"], full.Metrics["A"])
}

func TestRun_DeterministicAcrossConcurrency(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		offset := float64(i) / 4
		obs := func(j int) float64 { return float64((j*(i+3))%11) + 1 }
		writeFile(t, dir, fmt.Sprintf("sim_C%02d.csv", i), combinedCSV(20, obs, offset))
	}

	var artifacts []string
	for _, workers := range []int{1, 3, 16} {
		cfg := testConfig(t, dir)
		cfg.Concurrency = workers
		res, err := New(cfg).Evaluate(context.Background())
		require.NoError(t, err)
		require.Len(t, res.Catchments, 12)
		artifacts = append(artifacts, res.Artifact)
	}
	require.Equal(t, artifacts[0], artifacts[1])
	require.Equal(t, artifacts[0], artifacts[2])
}

// stallingAligner blocks Align for one catchment until release is closed.
type stallingAligner struct {
	*ingest.Aligner
	stall   string
	release chan struct{}
}

func (a stallingAligner) Align(src ingest.Source) (*series.Aligned, error) {
	if src.Catchment == a.stall {
		<-a.release
	}
	return a.Aligner.Align(src)
}

func TestRun_CatchmentTimeoutIsolated(t *testing.T) {
	dir := t.TempDir()
	ramp := func(i int) float64 { return float64(i + 1) }
	for _, id := range []string{"A", "B", "C"} {
		writeFile(t, dir, "sim_"+id+".csv", combinedCSV(4, ramp, 1))
	}

	cfg := testConfig(t, dir)
	cfg.CatchmentTimeout = config.Duration(50 * time.Millisecond)
	r := New(cfg)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	r.aligner = stallingAligner{Aligner: r.aligner.(*ingest.Aligner), stall: "B", release: release}

	res, err := r.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C"}, res.Catchments)
	require.NotEmpty(t, res.Artifact)

	require.Len(t, res.Errors, 1)
	require.True(t, evalerr.Is(res.Errors[0], evalerr.KindTimeout), "error %v", res.Errors[0])
	require.False(t, evalerr.IsFatal(res.Errors[0]))
	var ce *evalerr.Error
	require.ErrorAs(t, res.Errors[0], &ce)
	require.Equal(t, "B", ce.Catchment)

	var failed []string
	for _, o := range res.Outcomes {
		if o.Status == ingest.StatusFailed {
			failed = append(failed, o.Catchment)
		}
	}
	require.Equal(t, []string{"B"}, failed)
}

func TestRun_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sim_A.csv", combinedCSV(3, func(i int) float64 { return 1 }, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(t, dir)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFormatSummary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sim_A.csv", "date,qobs,qsim\n2020-01-01,5,4\n2020-01-02,5,6\n")
	writeFile(t, dir, "sim_B.csv", "date,flow\n2020-01-01,1\n")

	res, err := New(testConfig(t, dir)).Evaluate(context.Background())
	require.NoError(t, err)

	out := FormatSummary(res, format.Markdown)
	require.Contains(t, out, "| Catchment")
	require.Contains(t, out, "n/a")
	require.Contains(t, out, "sim_B.csv")
	require.Contains(t, out, "metric value(s) undefined")
}
