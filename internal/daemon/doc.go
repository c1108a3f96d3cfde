// Package daemon runs recovery batches on a fixed interval, with
// flock-based locking to prevent multiple instances from processing the
// same queue database.
package daemon
