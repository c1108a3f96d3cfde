// Package services holds shared plumbing for external service adapters:
// the error taxonomy used for per-candidate classification and context
// helpers that thread workflow metadata into logs.
package services
