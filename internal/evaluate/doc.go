// Package evaluate runs one (model, strategy) configuration over a dataset:
// predict every record, sanitize the replies into the label set, and score
// the result against ground truth.
package evaluate
