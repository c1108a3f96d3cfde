// Package queue persists recovery records in SQLite. Each item tracks one
// disapproved creative through resolution, composition, upload, and
// re-registration, with timestamps and retry counts that survive restarts.
package queue
