// Package upstream is the HTTP adapter for the meal-ordering API.
//
// A single resty client carries the base URL and basic auth credentials from
// config. Every request first waits on a shared token bucket so consecutive
// calls are spaced by the configured interval; non-success statuses come back
// as StatusError wrapped in services.ErrExternalTool and are never retried.
// Restaurant objects and menu bodies are kept as raw JSON so they can be
// persisted exactly as received.
package upstream
