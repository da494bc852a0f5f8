// Package main hosts the sarchain CLI entrypoint and command graph.
//
// Each pipeline command loads the configuration, opens the run ledger, and
// hands off to internal/workflow. Errors come back through workflow.Dispatch,
// so advisory failures print a warning and exit zero while fatal ones exit
// non-zero. Inspection commands (plan, check, runs, artifacts) never touch
// the processing engine.
package main
