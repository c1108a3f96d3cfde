// Package channel maps project tags to upload identities. Routing is total
// over the configured tag set and fails explicitly for anything else; there
// is no implicit default channel.
package channel
