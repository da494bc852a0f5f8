// Package services defines shared utilities consumed by the pipeline stages
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, scene names, roles, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper that tag every failure
//     with a severity (fatal vs advisory) so a single top-level dispatcher can
//     decide whether the run stops.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
