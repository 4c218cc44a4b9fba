// Package scheduler provides the shared timing facility for the switch
// engine. It implements a single-goroutine scheduler using a min-heap of
// deadline entries sorted by trigger time, with a 60-second max-sleep-cap to
// handle NTP steps, DST transitions, and system sleep (macOS monotonic clock
// pause).
//
// Arming is delegated to the job registry, which owns the fire/cancel race:
// when an entry's deadline arrives the scheduler first consumes the job
// through the registry and only runs the OnFire callback if it won that
// race. Callbacks are panic-isolated so a failing check never kills the
// timing loop. The heap itself is not persisted; it is rebuilt from the
// store's outstanding checks on daemon restart.
package scheduler
