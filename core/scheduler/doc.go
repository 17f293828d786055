// Package scheduler plans charging hours over a two-day hourly price series.
//
// Compute is the pure optimizer. Scheduler keeps the base selection between
// evaluations and refreshes it against the current switches without
// re-optimizing.
package scheduler
