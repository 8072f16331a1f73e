// Package main hosts the lunchscraper CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation and hands
// off to the internal packages: jobrun for a full scrape, storage for folder
// provisioning and menu counts, history for the run ledger, and preflight and
// notifications for operator checks. Commands stay thin; behaviour belongs in
// internal/.
package main
