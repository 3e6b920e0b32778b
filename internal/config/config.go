// Package config holds the parameters of an evaluation run and loads them
// from presets, files and the environment.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// DefaultTitle is the report title used when none is configured.
const DefaultTitle = "Simulation Evaluation Report"

// RunConfig is every parameter an evaluation run needs. Nothing is read from
// package state; the pipeline takes a RunConfig value.
type RunConfig struct {
	// Dir is the directory the globs are relative to.
	Dir             string `json:"dir" yaml:"dir"`
	SimulationGlob  string `json:"simulation_glob" yaml:"simulation_glob"`
	ObservationGlob string `json:"observation_glob,omitempty" yaml:"observation_glob,omitempty"`

	IndexColumn       string `json:"index_column" yaml:"index_column"`
	ObservationColumn string `json:"observation_column" yaml:"observation_column"`
	SimulationColumn  string `json:"simulation_column" yaml:"simulation_column"`

	// OutputDir receives metrics_summary.csv and metrics_summary.json.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// ReportLibDir receives the generated report modules.
	ReportLibDir string `json:"report_lib_dir" yaml:"report_lib_dir"`
	Title        string `json:"title" yaml:"title"`

	// MaxPoints bounds each catchment's rendered series; 0 keeps every row.
	MaxPoints int `json:"max_points" yaml:"max_points"`
	// Downsample selects the decimated series for the artifact instead of
	// the full aligned series.
	Downsample bool `json:"downsample" yaml:"downsample"`

	Concurrency      int      `json:"concurrency" yaml:"concurrency"`
	CatchmentTimeout Duration `json:"catchment_timeout,omitempty" yaml:"catchment_timeout,omitempty"`

	// MetricsTextfile, when set, receives run statistics in Prometheus
	// text exposition format.
	MetricsTextfile string `json:"metrics_textfile,omitempty" yaml:"metrics_textfile,omitempty"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() RunConfig {
	return RunConfig{
		Dir:          ".",
		OutputDir:    "out",
		ReportLibDir: "report/src/lib",
		Title:        DefaultTitle,
		MaxPoints:    1000,
		Downsample:   true,
		Concurrency:  runtime.NumCPU(),
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Validate reports every invalid or missing field.
func (c RunConfig) Validate() error {
	var errs []error
	if c.SimulationGlob == "" {
		errs = append(errs, errors.New("simulation_glob is required"))
	}
	for name, v := range map[string]string{
		"index_column":       c.IndexColumn,
		"observation_column": c.ObservationColumn,
		"simulation_column":  c.SimulationColumn,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	if c.IndexColumn != "" && (c.IndexColumn == c.ObservationColumn || c.IndexColumn == c.SimulationColumn) {
		errs = append(errs, errors.New("index_column must differ from the value columns"))
	}
	if c.ObservationGlob == "" && c.ObservationColumn != "" && c.ObservationColumn == c.SimulationColumn {
		errs = append(errs, errors.New("observation_column and simulation_column must differ in the combined layout"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.ReportLibDir == "" {
		errs = append(errs, errors.New("report_lib_dir is required"))
	}
	if c.MaxPoints < 0 {
		errs = append(errs, fmt.Errorf("max_points must be >= 0, got %d", c.MaxPoints))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if c.CatchmentTimeout < 0 {
		errs = append(errs, fmt.Errorf("catchment_timeout must be >= 0, got %s", c.CatchmentTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Duration is a time.Duration read from strings such as "30s" in YAML and
// JSON.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}
