// Package ledger records pipeline runs and the checkpoints they wrote in a
// SQLite database under the log directory.
//
// The ledger mirrors the artifact store's last-write-wins rule: one row per
// derived path, replaced whenever a later run rewrites that path. It is
// bookkeeping only; the pipeline never reads it back to decide what to run.
package ledger
