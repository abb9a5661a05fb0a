// Package services defines shared utilities consumed by the benchmark pipeline
// and the backend integrations under it.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, model identifiers, strategies, and
//     record positions for logging.
//   - Structured error markers plus the Wrap helper that let callers tell
//     transient backend failures apart from fatal configuration problems.
//
// Backends must tag retryable failures with ErrTransient; the predictor only
// retries errors carrying that marker.
package services
