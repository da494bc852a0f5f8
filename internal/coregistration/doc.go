// Package coregistration drives the master/slave interferometric chain.
//
// Inputs are ordered by acquisition time. The earliest scene becomes the
// master: it is split, orbit-corrected, checkpointed, and then held as the
// fixed reference. Every later scene is a slave and runs the full chain in
// strict order, pairing with the master (never with another slave) at
// back-geocoding:
//
//	split_orbit -> back_geocoding -> esd -> deburst -> interferogram
//
// Each stage is checkpointed to a derived path. Plan computes the same
// assignment and paths without touching the engine.
package coregistration
