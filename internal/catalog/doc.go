// Package catalog resolves parsed creative identifiers against the pool of
// available source video assets. Resolution is exact-first with a scored
// fuzzy fallback; a weak guess below threshold is never returned.
package catalog
