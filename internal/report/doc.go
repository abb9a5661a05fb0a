// Package report collects per-run scores and renders them for people.
//
// Results are keyed by the structured (strategy, model) pair. The
// "<model>_<strategy>" identifier produced by Flatten exists for display
// only and is never parsed back.
package report
