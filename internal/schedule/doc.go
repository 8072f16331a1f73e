// Package schedule models the target date and the fixed time slots a scrape
// run walks through.
package schedule
