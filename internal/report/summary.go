package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"

	"hydroeval/internal/evalerr"
	"hydroeval/internal/metrics"
)

// EncodeSummaryCSV renders the entries with header
// Catchment,NSE,KGE,R²,MSE,RMSE. Undefined metrics are empty cells.
func EncodeSummaryCSV(entries []Entry) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	header := append([]string{"Catchment"}, metrics.Names...)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, e := range entries {
		row := []string{e.Catchment}
		for _, f := range e.Metrics.Fields() {
			row = append(row, f.Value.String())
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// EncodeSummaryJSON renders the entries as an array of records indented
// with four spaces. Undefined metrics are null.
func EncodeSummaryJSON(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

// WriteSummary writes metrics_summary.csv and metrics_summary.json into dir
// and returns the written paths.
func WriteSummary(dir string, entries []Entry) ([]string, error) {
	csvData, err := EncodeSummaryCSV(entries)
	if err != nil {
		return nil, evalerr.New(evalerr.KindSerialization, "encode "+SummaryCSV, err)
	}
	jsonData, err := EncodeSummaryJSON(entries)
	if err != nil {
		return nil, evalerr.New(evalerr.KindSerialization, "encode "+SummaryJSON, err)
	}

	var written []string
	for _, f := range []struct {
		name string
		data []byte
	}{
		{SummaryCSV, csvData},
		{SummaryJSON, jsonData},
	} {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.data); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
