// Package scraper runs the per-slot chain for one target date.
//
// For every configured slot, in order, the Sequencer discovers restaurants,
// appends them to the day's listing, fetches each restaurant's menu, and
// writes the menus to disk. When all slots are done it counts the menu files
// and publishes a completion notification.
//
// By default the first failing step aborts the run and no completion
// notification is sent. With ContinueOnError each slot fails on its own and
// the remaining slots still run.
package scraper
