// Package preflight provides readiness checks for the filesystem paths and
// remote services the scraper depends on.
//
// The CLI "lunchscraper preflight" command renders RunAll as a table, and
// "lunchscraper run --preflight" refuses to start when any check fails.
// Notification checks are skipped when no ntfy topic is configured.
package preflight
