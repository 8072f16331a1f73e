// Package services defines shared utilities consumed by the slot chain stages
// and the upstream integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, target dates, time slots, stage names,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run statuses (failed, invalid, canceled).
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the scrape.
package services
