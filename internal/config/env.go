package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HYDROEVAL_"

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays HYDROEVAL_* variables on cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *RunConfig, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DIR":                &cfg.Dir,
		"SIM_GLOB":           &cfg.SimulationGlob,
		"OBS_GLOB":           &cfg.ObservationGlob,
		"INDEX_COLUMN":       &cfg.IndexColumn,
		"OBSERVATION_COLUMN": &cfg.ObservationColumn,
		"SIMULATION_COLUMN":  &cfg.SimulationColumn,
		"OUTPUT_DIR":         &cfg.OutputDir,
		"REPORT_LIB_DIR":     &cfg.ReportLibDir,
		"TITLE":              &cfg.Title,
		"METRICS_TEXTFILE":   &cfg.MetricsTextfile,
		"LOG_LEVEL":          &cfg.LogLevel,
		"LOG_FORMAT":         &cfg.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_POINTS":  &cfg.MaxPoints,
		"CONCURRENCY": &cfg.Concurrency,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %s", EnvPrefix, key, v)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "DOWNSAMPLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sDOWNSAMPLE: %s", EnvPrefix, v)
		}
		cfg.Downsample = b
	}
	if v, ok := lookup(EnvPrefix + "CATCHMENT_TIMEOUT"); ok {
		if err := cfg.CatchmentTimeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %sCATCHMENT_TIMEOUT: %w", EnvPrefix, err)
		}
	}
	return nil
}
