// Package workflow drives the recovery pipeline. A batch reads disapproved
// creatives from the feed, and for each one resolves the source video,
// composes a compliant replacement, and uploads it. Finished replacements are
// enqueued as pending items carrying the upload URL; a downstream swap
// consumer picks those up and drives them to completed. Failures and
// unresolvable candidates are recorded as failed or review items. One bad
// candidate never aborts the batch.
package workflow
