// Package jobrun bootstraps one scrape run from the CLI.
//
// It installs signal handling, opens a per-run JSON log next to the console
// output, prunes old logs, takes the run lock so two runs never overlap,
// resolves the target date and slots, and wires the upstream client,
// storage, notifier and run history into a scraper.Sequencer.
package jobrun
