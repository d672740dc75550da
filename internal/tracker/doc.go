// Package tracker decides which virtual paths are captured.
//
// A Tracker re-reads a state file of glob patterns (one per line) on a fixed
// interval, whenever the file changes on disk, and on demand. Each refresh
// builds a new PathSet and installs it with a single atomic store; readers
// always see a complete set and never wait on a refresh in progress. A
// refresh that cannot read the state file keeps the previous set.
package tracker
