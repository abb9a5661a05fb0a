// Package preflight provides readiness checks for the filesystem paths,
// datasets, and model backends a benchmark run depends on.
//
// The CLI "tagbench check" command runs RunAll and prints one line per
// result. Backend pings are opt-in because each one spends a request.
package preflight
