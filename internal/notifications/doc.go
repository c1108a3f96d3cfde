// Package notifications delivers push notifications for batch lifecycle
// events via ntfy. With no topic configured, notifications are disabled.
package notifications
