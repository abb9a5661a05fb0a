// Package testsupport provides shared fixtures for package tests: temp-dir
// configurations, small labeled datasets, and a fake chat-completions server.
package testsupport
