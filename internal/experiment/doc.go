// Package experiment drives a benchmark: load the training and holdout
// datasets, fix the label set, and evaluate every planned (model, strategy)
// pair in order. A run holds an exclusive file lock in the work directory so
// two runs never share the completion cache.
package experiment
