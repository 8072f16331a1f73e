// Package logs reads the per-run log files written under the log directory.
//
// Locate resolves the latest.log pointer or a run id prefix to a file, and
// Tail returns the last lines of that file, optionally waiting for more to be
// appended while a run is still in progress.
package logs
