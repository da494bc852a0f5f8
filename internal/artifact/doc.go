// Package artifact derives checkpoint paths for pipeline products and writes
// them with last-write-wins semantics.
//
// Derive is a pure suffix substitution: the same input and rule always yield
// the same path. Store.Persist removes whatever already sits at the derived
// path, then asks the engine to serialize the product there. Writes are not
// atomic; a crash mid-write can leave a partial product on disk.
package artifact
