// Package poller schedules the aggregate refreshes of a single
// appliance. Device state is refreshed every 30 seconds and the
// configuration tree every 5 minutes by default; update status polling
// adapts its cadence, backing off to hours while no update is running
// and tightening to seconds while one is.
//
// Identity is resolved once before the periodic loops start because it
// decides whether the device supports update status queries at all.
// Authentication failures stop the poller; every other failure keeps
// the previous snapshot and retries on the next tick.
package poller
