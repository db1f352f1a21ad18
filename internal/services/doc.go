// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's error taxonomy (configuration errors are fatal to
//     the process, everything else is scoped to one job, candidate, or
//     platform).
package services
