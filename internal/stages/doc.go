// Package stages holds the static definitions of every pipeline stage: which
// engine operators run, with which parameter tables, and which checkpoint
// rule names the result.
package stages
