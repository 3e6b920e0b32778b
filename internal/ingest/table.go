package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var errMissingColumn = errors.New("required column missing")

// naTokens are the cell values read as missing, matching the usual CSV
// conventions for NA.
var naTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true, "-NaN": true, "-nan": true,
	"NULL": true, "null": true, "None": true, "#N/A": true, "<NA>": true, "#NA": true, "-1.#IND": true,
	"1.#QNAN": true, "1.#IND": true, "-1.#QNAN": true, "#N/A N/A": true,
}

// table is a CSV file held as raw cells.
type table struct {
	path    string
	columns map[string]int
	records [][]string
}

// readTable reads a whole CSV file. The first record is the header.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &table{path: path, columns: make(map[string]int, len(header))}
	for i, name := range header {
		if _, dup := t.columns[name]; !dup {
			t.columns[name] = i
		}
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

// require returns the positions of the named columns, or an error naming
// every absent one.
func (t *table) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	var missing []string
	for i, n := range names {
		pos, ok := t.columns[n]
		if !ok {
			missing = append(missing, strconv.Quote(n))
			continue
		}
		idx[i] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", errMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (t *table) cell(rec []string, pos int) string {
	if pos < len(rec) {
		return rec[pos]
	}
	return ""
}

// keyed is one parsed table row: a timestamp and the requested values.
type keyed struct {
	time   time.Time
	values []float64
}

// parseRows parses the index column as timestamps and the value columns as
// numbers. Missing values become NaN. Rows sharing a timestamp collapse to
// the last one, keeping the position of the first.
func (t *table) parseRows(indexPos int, valuePos ...int) ([]keyed, error) {
	rows := make([]keyed, 0, len(t.records))
	seen := make(map[int64]int, len(t.records))
	for n, rec := range t.records {
		line := n + 2
		raw := t.cell(rec, indexPos)
		ts, err := parseTimestamp(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp %q: %w", line, raw, err)
		}
		vals := make([]float64, len(valuePos))
		for i, pos := range valuePos {
			v, err := parseValue(t.cell(rec, pos))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vals[i] = v
		}
		key := ts.UnixNano()
		if at, dup := seen[key]; dup {
			rows[at].values = vals
			continue
		}
		seen[key] = len(rows)
		rows = append(rows, keyed{time: ts, values: vals})
	}
	return rows, nil
}

// parseTimestamp reads s as UTC unless it carries its own offset, in which
// case the offset is kept so the formatted index shows the local wall clock.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	return dateparse.ParseIn(s, time.UTC)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if naTokens[s] {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
