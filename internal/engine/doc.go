// Package engine defines the narrow boundary between sarchain and the external
// SAR processing engine.
//
// Every engine operator is described by one Operation value: a name, an
// ordered typed parameter table, and the input roles it consumes. Client
// implementations own the product handles they return; callers pass handles
// along stage to stage and never inspect them.
package engine
