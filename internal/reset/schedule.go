// Package reset clears every user's daily mission completion flags once a day.
//
// A Scheduler waits for the configured time of day and emits a Trigger on a
// channel; a Coordinator consumes triggers and resets each user in its own
// locked transaction.
package reset

import "time"

// Clock is the time source used by the scheduler.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After waits for d to elapse and then sends the current time.
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// NextEvent returns the next instant at which the time of day at (an offset
// from midnight in loc) occurs, as seen from now.
//
// If now is exactly at the event time it is not yet past, so the event is
// today. Day arithmetic goes through time.Date, which normalizes month and
// year rollover.
func NextEvent(now time.Time, at time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()

	next := time.Date(y, m, d, 0, 0, 0, 0, loc).Add(at)
	if local.After(next) {
		next = time.Date(y, m, d+1, 0, 0, 0, 0, loc).Add(at)
	}
	return next
}
