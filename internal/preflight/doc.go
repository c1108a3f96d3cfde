// Package preflight provides readiness checks for the paths, credentials,
// and tools a recovery batch depends on.
//
// The run command and the daemon call RunAll before a batch starts so a
// missing credential or full disk fails fast instead of half way through.
// The CLI status command reuses the individual checks for display.
package preflight
