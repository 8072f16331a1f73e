// Package config loads, normalizes, and validates lunchscraper configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LUNCH_API_LOGIN and NTFY_TOKEN. The Config type is built once at startup and
// passed explicitly to every component, so upstream credentials, storage
// locations, and notification settings never come from hidden global state.
package config
