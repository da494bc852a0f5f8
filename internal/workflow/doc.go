// Package workflow wires configuration, the engine client, the artifact store,
// and the ledger into the pipeline entry points the CLI exposes.
//
// Each entry point (Coregister, Filter, Unwrap, Geocode, RunAll) takes an
// exclusive lock on the output directory, opens a ledger run, and returns a
// severity-tagged error. Dispatch is the single place that turns such an error
// into a process outcome: advisory failures are logged as warnings and the run
// still succeeds, fatal failures stop it.
package workflow
