package report

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"hydroeval/internal/evalerr"
)

// DefaultTitle is the report title used when none is configured.
const DefaultTitle = "Simulation Evaluation Report"

const datasetPrefix = "export const datasetCompressed = '"

const indexModule = "export { names, metrics } from './report_data.js';\n" +
	"export { datasetCompressed } from './dataset_compressed.js';\n" +
	"export { config } from './config.js';\n"

// ErrNotDatasetModule is returned when text is not a generated dataset module.
var ErrNotDatasetModule = errors.New("report: not a dataset module")

// Library is the content of the generated report library.
type Library struct {
	Title    string
	Entries  []Entry
	Artifact string
}

// DatasetModuleText returns the dataset_compressed.js source.
func DatasetModuleText(artifact string) string {
	return datasetPrefix + artifact + "';\n"
}

// ParseDatasetModule extracts the artifact string from dataset_compressed.js
// source text.
func ParseDatasetModule(text string) (string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), datasetPrefix)
	if !ok {
		return "", ErrNotDatasetModule
	}
	artifact, ok := strings.CutSuffix(rest, "';")
	if !ok || strings.ContainsAny(artifact, "'\n") {
		return "", ErrNotDatasetModule
	}
	return artifact, nil
}

// DataModuleText returns the report_data.js source: the catchment names in
// order and the metric record of each, as compact JSON.
func DataModuleText(entries []Entry) (string, error) {
	var names, recs bytes.Buffer
	names.WriteByte('[')
	recs.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			names.WriteByte(',')
			recs.WriteByte(',')
		}
		if err := writeString(&names, e.Catchment); err != nil {
			return "", err
		}
		if err := writeString(&recs, e.Catchment); err != nil {
			return "", err
		}
		recs.WriteByte(':')
		m, err := e.Metrics.MarshalJSON()
		if err != nil {
			return "", err
		}
		recs.Write(m)
	}
	names.WriteByte(']')
	recs.WriteByte('}')
	return "export const names = " + names.String() + ";\n" +
		"export const metrics = " + recs.String() + ";\n", nil
}

// ConfigModuleText returns the config.js source.
func ConfigModuleText(title string) (string, error) {
	if title == "" {
		title = DefaultTitle
	}
	var b bytes.Buffer
	if err := writeString(&b, title); err != nil {
		return "", err
	}
	return "export const config = { title: " + b.String() + " };\n", nil
}

// WriteLibrary writes the four report library modules into dir and returns
// the written paths.
func WriteLibrary(dir string, lib Library) ([]string, error) {
	data, err := DataModuleText(lib.Entries)
	if err != nil {
		return nil, evalerr.New(evalerr.KindSerialization, "encode "+DataModule, err)
	}
	cfg, err := ConfigModuleText(lib.Title)
	if err != nil {
		return nil, evalerr.New(evalerr.KindSerialization, "encode "+ConfigModule, err)
	}
	if strings.ContainsAny(lib.Artifact, "'\\\n\r") {
		return nil, evalerr.New(evalerr.KindSerialization, "encode "+DatasetModule,
			fmt.Errorf("artifact contains characters not allowed in a string literal"))
	}

	var written []string
	for _, f := range []struct {
		name, text string
	}{
		{DatasetModule, DatasetModuleText(lib.Artifact)},
		{DataModule, data},
		{ConfigModule, cfg},
		{LibraryIndex, indexModule},
	} {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, []byte(f.text)); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
