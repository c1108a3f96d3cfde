// Package identifier parses raw ad-group names into structured creative
// identifiers. Parsing is pure and deterministic; malformed input degrades to
// a best-effort partial result rather than failing.
package identifier
