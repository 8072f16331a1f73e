// Package notifications publishes run events to ntfy.
//
// The scraper sends one message when a run finishes, and optionally one when
// it fails. Without a configured topic the service is a no-op, so callers
// never need to check whether notifications are enabled.
package notifications
