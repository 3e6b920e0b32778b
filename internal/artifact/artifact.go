// Package artifact packs aligned catchment series into the compressed,
// base64-encoded JSON string embedded in the generated report library.
//
// The payload maps catchment ID to {"index": [...], "observation": [...],
// "simulation": [...]}, serialized without whitespace, gzip-compressed and
// encoded with the standard base64 alphabet. Decode is the exact inverse.
package artifact

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"hydroeval/internal/evalerr"
	"hydroeval/internal/format"
	"hydroeval/internal/series"
)

// Dataset is one catchment's plotting data. The three slices have equal
// length; Index holds timestamps formatted with series.TimeLayout.
type Dataset struct {
	Index       []string  `json:"index"`
	Observation []float64 `json:"observation"`
	Simulation  []float64 `json:"simulation"`
}

// Payload maps catchment ID to its dataset.
type Payload map[string]Dataset

// Build converts aligned (or downsampled) series into a payload.
func Build(sets map[string]*series.Aligned) Payload {
	p := make(Payload, len(sets))
	for id, s := range sets {
		d := Dataset{
			Index:       make([]string, s.Len()),
			Observation: s.Observed(),
			Simulation:  s.Simulated(),
		}
		for i, t := range s.Times() {
			d.Index[i] = t.Format(series.TimeLayout)
		}
		p[id] = d
	}
	return p
}

// MarshalJSON writes the payload as compact JSON with catchments in sorted
// order and numbers in shortest round-trip form.
func (p Payload) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b bytes.Buffer
	b.WriteByte('{')
	for i, id := range ids {
		d := p[id]
		if len(d.Observation) != len(d.Index) || len(d.Simulation) != len(d.Index) {
			return nil, fmt.Errorf("catchment %s: column lengths differ (%d/%d/%d)",
				id, len(d.Index), len(d.Observation), len(d.Simulation))
		}
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeString(&b, id); err != nil {
			return nil, err
		}
		b.WriteString(`:{"index":[`)
		for j, s := range d.Index {
			if j > 0 {
				b.WriteByte(',')
			}
			if err := writeString(&b, s); err != nil {
				return nil, err
			}
		}
		b.WriteString(`],"observation":`)
		writeNumbers(&b, d.Observation)
		b.WriteString(`,"simulation":`)
		writeNumbers(&b, d.Simulation)
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeString(b *bytes.Buffer, s string) error {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Truncate(b.Len() - 1) // Encode appends a newline
	return nil
}

func writeNumbers(b *bytes.Buffer, vals []float64) {
	b.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(format.Float(v))
	}
	b.WriteByte(']')
}

// Encode serializes, compresses and base64-encodes p. Any failure is a
// KindSerialization error and no partial string is returned.
func Encode(p Payload) (string, error) {
	raw, err := p.MarshalJSON()
	if err != nil {
		return "", evalerr.New(evalerr.KindSerialization, "marshal payload", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", evalerr.New(evalerr.KindSerialization, "compress payload", err)
	}
	if err := zw.Close(); err != nil {
		return "", evalerr.New(evalerr.KindSerialization, "compress payload", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode: base64-decode, decompress, validate UTF-8 and
// parse the JSON payload.
func Decode(s string) (Payload, error) {
	raw, err := DecodeJSON(s)
	if err != nil {
		return nil, err
	}
	p := Payload{}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, evalerr.New(evalerr.KindSerialization, "parse payload", err)
	}
	return p, nil
}

// DecodeJSON is Decode without the final parse: it returns the JSON text
// exactly as it was compressed.
func DecodeJSON(s string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, evalerr.New(evalerr.KindSerialization, "decode base64", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, evalerr.New(evalerr.KindSerialization, "open gzip stream", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, evalerr.New(evalerr.KindSerialization, "decompress payload", err)
	}
	if !utf8.Valid(raw) {
		return nil, evalerr.New(evalerr.KindSerialization, "decode payload", fmt.Errorf("invalid UTF-8"))
	}
	return raw, nil
}
