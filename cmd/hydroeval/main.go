// hydroeval scores simulated river discharge against observations for each
// catchment and writes the metric summary and report library.
//
// Usage:
//
//	hydroeval evaluate --preset=camels-de --dir=<data dir>
//	hydroeval evaluate --config=run.yaml [--sim-glob=...] [--obs-glob=...]
//	hydroeval decode report/src/lib/dataset_compressed.js
//	hydroeval presets
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
