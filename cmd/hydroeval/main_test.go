package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hydroeval/internal/artifact"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEvaluateThenDecode(t *testing.T) {
	dir := t.TempDir()
	csv := "date,observed,simulated\n2020-01-01,1,1.5\n2020-01-02,2,2.5\n2020-01-03,3,3.5\n"
	if err := os.WriteFile(filepath.Join(dir, "results_DE1.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	lib := filepath.Join(dir, "lib")
	prom := filepath.Join(dir, "hydroeval.prom")

	out, err := execute(t, "", "evaluate",
		"--preset=combined",
		"--dir", dir,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--output-dir", filepath.Join(dir, "out"),
		"--report-lib-dir", lib,
		"--metrics-textfile", prom,
		"--table", "markdown",
	)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !strings.Contains(out, "DE1") {
		t.Errorf("summary missing catchment:\n%s", out)
	}
	for _, p := range []string{
		filepath.Join(dir, "out", "metrics_summary.csv"),
		filepath.Join(dir, "out", "metrics_summary.json"),
		filepath.Join(lib, "index.ts"),
		prom,
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s: %v", p, err)
		}
	}

	decoded, err := execute(t, "", "decode", filepath.Join(lib, "dataset_compressed.js"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var payload artifact.Payload
	if err := json.Unmarshal([]byte(decoded), &payload); err != nil {
		t.Fatalf("decoded output is not JSON: %v\n%s", err, decoded)
	}
	if got := payload["DE1"].Simulation; len(got) != 3 || got[0] != 1.5 {
		t.Errorf("simulation = %v", got)
	}
}

func TestDecode_Stdin(t *testing.T) {
	enc, err := artifact.Encode(artifact.Payload{
		"X": {Index: []string{"2021-06-01 00:00:00"}, Observation: []float64{1}, Simulation: []float64{2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, enc+"\n", "decode", "-")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := `{"X":{"index":["2021-06-01 00:00:00"],"observation":[1.0],"simulation":[2.0]}}` + "\n"
	if out != want {
		t.Errorf("decode = %q, want %q", out, want)
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	if _, err := execute(t, "not base64 !!", "decode"); err == nil {
		t.Fatal("expected error for invalid artifact")
	}
}

func TestEvaluate_InvalidConfig(t *testing.T) {
	_, err := execute(t, "", "evaluate", "--env-file", filepath.Join(t.TempDir(), "none"))
	if err == nil || strings.Count(err.Error(), "invalid configuration") != 1 {
		t.Fatalf("err = %v, want a single invalid configuration prefix", err)
	}
}

func TestPresets(t *testing.T) {
	out, err := execute(t, "", "presets", "--table", "markdown")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"camels-de", "combined", "split", "(combined)"} {
		if !strings.Contains(out, name) {
			t.Errorf("presets output missing %q:\n%s", name, out)
		}
	}
}
