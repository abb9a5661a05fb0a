// Package metrics computes classification scores over parallel slices of
// ground-truth and predicted labels.
package metrics
