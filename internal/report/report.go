// Package report writes the run outputs: the metrics summary files and the
// generated modules of the report library.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"hydroeval/internal/evalerr"
	"hydroeval/internal/metrics"
)

// Output file names.
const (
	SummaryCSV    = "metrics_summary.csv"
	SummaryJSON   = "metrics_summary.json"
	DatasetModule = "dataset_compressed.js"
	DataModule    = "report_data.js"
	ConfigModule  = "config.js"
	LibraryIndex  = "index.ts"
)

// Entry is the metric record of one catchment.
type Entry struct {
	Catchment string
	Metrics   metrics.Record
}

// MarshalJSON writes {"Catchment": id, <metrics in output order>}.
func (e Entry) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"Catchment":`)
	if err := writeString(&b, e.Catchment); err != nil {
		return nil, err
	}
	m, err := e.Metrics.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if len(m) > 2 {
		b.WriteByte(',')
		b.Write(m[1 : len(m)-1])
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// writeString appends s as a JSON string without HTML or non-ASCII escaping.
func writeString(b *bytes.Buffer, s string) error {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Truncate(b.Len() - 1)
	return nil
}

// writeFile writes data to path through a sibling temp file, so readers
// never see a partially written output.
func writeFile(path string, data []byte) error {
	op := "write " + filepath.Base(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return evalerr.New(evalerr.KindOutputWrite, op, err).WithPath(path)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return evalerr.New(evalerr.KindOutputWrite, op, err).WithPath(path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return evalerr.New(evalerr.KindOutputWrite, op, fmt.Errorf("rename: %w", err)).WithPath(path)
	}
	return nil
}
