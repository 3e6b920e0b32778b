package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hydroeval/internal/config"
	"hydroeval/internal/format"
	"hydroeval/internal/logging"
	"hydroeval/internal/pipeline"
	"hydroeval/internal/telemetry"
)

type evaluateFlags struct {
	preset  string
	config  string
	envFile string
	table   string
	quiet   bool

	dir             string
	simGlob         string
	obsGlob         string
	indexColumn     string
	obsColumn       string
	simColumn       string
	outputDir       string
	reportLibDir    string
	title           string
	maxPoints       int
	downsample      bool
	concurrency     int
	timeout         time.Duration
	metricsTextfile string
	logLevel        string
	logFormat       string
}

func newEvaluateCmd() *cobra.Command {
	var fl evaluateFlags
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score every catchment and write the summary and report library",
		Long: `Evaluate discovers simulation (and optionally observation) CSV files,
aligns them per catchment, computes goodness-of-fit metrics and writes
metrics_summary.csv/json plus the generated report modules.

Settings are layered: defaults, --preset, --config, HYDROEVAL_* environment
variables (optionally from --env-file), then flags given on the command line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, &fl)
			if err != nil {
				return err
			}
			return runEvaluate(cmd, cfg, &fl)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fl.preset, "preset", "", "Embedded preset name (see 'hydroeval presets')")
	f.StringVar(&fl.config, "config", "", "Run configuration file (YAML or JSON)")
	f.StringVar(&fl.envFile, "env-file", ".env", "Optional .env file with HYDROEVAL_* variables")
	f.StringVar(&fl.table, "table", "ascii", "Summary table format (ascii, markdown)")
	f.BoolVarP(&fl.quiet, "quiet", "q", false, "Do not print the summary table")

	d := config.Defaults()
	f.StringVar(&fl.dir, "dir", d.Dir, "Directory the globs are relative to")
	f.StringVar(&fl.simGlob, "sim-glob", "", "Glob matching simulation files")
	f.StringVar(&fl.obsGlob, "obs-glob", "", "Glob matching observation files (empty: combined layout)")
	f.StringVar(&fl.indexColumn, "index-column", "", "Timestamp column name")
	f.StringVar(&fl.obsColumn, "obs-column", "", "Observation column name")
	f.StringVar(&fl.simColumn, "sim-column", "", "Simulation column name")
	f.StringVarP(&fl.outputDir, "output-dir", "o", d.OutputDir, "Directory for metrics_summary.csv/json")
	f.StringVar(&fl.reportLibDir, "report-lib-dir", d.ReportLibDir, "Directory for the generated report modules")
	f.StringVar(&fl.title, "title", d.Title, "Report title")
	f.IntVar(&fl.maxPoints, "max-points", d.MaxPoints, "Maximum points per catchment in the report dataset (0 = all)")
	f.BoolVar(&fl.downsample, "downsample", d.Downsample, "Downsample series embedded in the report dataset")
	f.IntVarP(&fl.concurrency, "concurrency", "j", d.Concurrency, "Catchments processed in parallel")
	f.DurationVar(&fl.timeout, "catchment-timeout", 0, "Per-catchment time limit (0 = none)")
	f.StringVar(&fl.metricsTextfile, "metrics-textfile", "", "Write run statistics in Prometheus text format to this path")
	f.StringVar(&fl.logLevel, "log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&fl.logFormat, "log-format", d.LogFormat, "Log format (text, json)")
	return cmd
}

// resolveConfig layers defaults, preset, config file, environment and the
// flags the user actually set.
func resolveConfig(cmd *cobra.Command, fl *evaluateFlags) (config.RunConfig, error) {
	cfg := config.Defaults()
	var err error
	if fl.preset != "" {
		if cfg, err = config.Preset(fl.preset, cfg); err != nil {
			return cfg, err
		}
	}
	if fl.config != "" {
		if cfg, err = config.LoadFile(fl.config, cfg); err != nil {
			return cfg, err
		}
	}
	if err := config.LoadDotEnv(fl.envFile); err != nil {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	setString := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	setString("dir", &cfg.Dir, fl.dir)
	setString("sim-glob", &cfg.SimulationGlob, fl.simGlob)
	setString("obs-glob", &cfg.ObservationGlob, fl.obsGlob)
	setString("index-column", &cfg.IndexColumn, fl.indexColumn)
	setString("obs-column", &cfg.ObservationColumn, fl.obsColumn)
	setString("sim-column", &cfg.SimulationColumn, fl.simColumn)
	setString("output-dir", &cfg.OutputDir, fl.outputDir)
	setString("report-lib-dir", &cfg.ReportLibDir, fl.reportLibDir)
	setString("title", &cfg.Title, fl.title)
	setString("metrics-textfile", &cfg.MetricsTextfile, fl.metricsTextfile)
	setString("log-level", &cfg.LogLevel, fl.logLevel)
	setString("log-format", &cfg.LogFormat, fl.logFormat)
	if changed("max-points") {
		cfg.MaxPoints = fl.maxPoints
	}
	if changed("downsample") {
		cfg.Downsample = fl.downsample
	}
	if changed("concurrency") {
		cfg.Concurrency = fl.concurrency
	}
	if changed("catchment-timeout") {
		cfg.CatchmentTimeout = config.Duration(fl.timeout)
	}

	return cfg, cfg.Validate()
}

func runEvaluate(cmd *cobra.Command, cfg config.RunConfig, fl *evaluateFlags) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.LogFormat, cmd.ErrOrStderr())
	log := logging.New("cli")

	stats := telemetry.NewStats()
	runner := pipeline.New(cfg, pipeline.WithStats(stats))
	log.Info("starting evaluation", "run_id", runner.RunID(),
		"dir", cfg.Dir, "sim_glob", cfg.SimulationGlob, "obs_glob", cfg.ObservationGlob,
		"workers", cfg.Concurrency)

	start := time.Now()
	res, runErr := runner.Run(cmd.Context())

	if cfg.MetricsTextfile != "" {
		stats.Stage("total", time.Since(start))
		if err := stats.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn("metrics textfile not written", "path", cfg.MetricsTextfile, "error", err)
		}
	}
	if res != nil && !fl.quiet && len(res.Catchments) > 0 {
		fmt.Fprint(cmd.OutOrStdout(), pipeline.FormatSummary(res, format.ParseMode(fl.table)))
	}
	if runErr != nil {
		return runErr
	}

	for _, e := range res.Errors {
		log.Warn("catchment issue", "error", e)
	}
	log.Info("evaluation finished", "run_id", res.RunID,
		"catchments", len(res.Catchments), "took", time.Since(start).Round(time.Millisecond))
	return nil
}
