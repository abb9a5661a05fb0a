// Package labels owns the closed tag vocabulary of a benchmark run.
//
// A Set is built once per run, either from the unique tags of the training
// split or from a YAML manifest, and is shared read-only by the prompt builder
// and the sanitizer. Sanitize maps free-form model output back into the set,
// replacing anything out of vocabulary with the configured default label.
package labels
