// Package preflight provides readiness checks for the executables and
// filesystem paths a sarchain run depends on.
//
// The CLI "sarchain check" command runs RunAll and renders the results.
// A failed check that is not advisory means a run would stop with a
// configuration error; advisory failures only affect the unwrap stage.
package preflight
