// Package cli implements the replayd command line: offline tooling over a
// recordings root (dynamic field detection, reports, cleanup) and small
// helpers for test setups.
package cli
