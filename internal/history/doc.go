// Package history keeps a SQLite ledger of scraper runs and the outcome of each
// time slot chain.
//
// The ledger is bookkeeping only. Scraped restaurant and menu payloads stay in
// the JSON files under the data directory; this package records when a run
// happened, which slots completed, and how many menu files the run produced so
// the CLI can render recent history.
package history
