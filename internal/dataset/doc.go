// Package dataset loads and reshapes the labeled title/description/tag records
// a benchmark runs against.
//
// Records come from CSV over HTTP (the published training and holdout splits)
// or from local files. Helpers provide seeded shuffling, sampling, stratified
// train/test splits, and the text cleaning used by the preprocessing pipeline.
package dataset
