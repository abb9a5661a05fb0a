// Package main hosts the tagbench CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the logger, and
// hands off to the internal packages: experiment for benchmark runs,
// preflight for environment checks, completioncache for cache maintenance,
// and report for rendering. Reports go to stdout; logs and progress bars go
// to stderr so output can be piped.
//
// Keep this package lean: new behavior belongs in an internal package first
// and is surfaced here through a command or flag.
package main
