// Package services defines shared utilities consumed by the conversion
// pipeline and its external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, source paths, and pipeline phases
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper so collaborator failures
//     (dcraw, encoders, filesystem) carry consistent context.
//
// Use these helpers when wiring new collaborators so operational behaviour
// (error text, observability) stays uniform across the pipeline.
package services
