// Package completioncache persists raw backend completions in SQLite so an
// interrupted evaluation can be repeated without paying for identical
// requests twice. Entries are keyed by a SHA-256 digest of the backend name,
// the model id, and the ordered chat turns. Only completions are stored;
// sanitized predictions and reports are always recomputed.
package completioncache
