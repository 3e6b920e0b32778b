// Package ingest discovers per-catchment CSV files and aligns observed and
// simulated values on their shared timestamps.
//
// Two layouts are supported. In the split layout simulation and observation
// live in separate files grouped by catchment ID and are inner-joined on the
// index column. In the combined layout, used when no observation glob is
// given or it matches nothing, each simulation file carries both columns.
//
// The catchment ID of a file is the token after the last underscore of its
// base name without extension: "sim_DE110000.csv" -> "DE110000".
package ingest
