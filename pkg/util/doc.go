// Package util provides shared helpers for file naming and log-body
// truncation used across replayd packages.
//
//   - SafeFileName: turn test names and stub names into portable file names
//   - TruncateBody: cap request bodies and sample values for safe logging
package util
