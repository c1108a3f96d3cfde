// Command adrescue recovers disapproved ad creatives. It reads the
// approval-status feed, resolves replacement source videos from the
// catalog, composes compliant variants, and uploads them, tracking each
// creative in a local queue database.
package main
