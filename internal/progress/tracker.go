package progress

import "sync/atomic"

// Tracker hands out 1-based sequence numbers to the tasks of a single run.
// The counter only moves forward and is never written outside IncrementAndGet.
type Tracker struct {
	current atomic.Int64
	total   int
}

// NewTracker creates a Tracker for a run of total locators.
func NewTracker(total int) *Tracker {
	return &Tracker{total: total}
}

// IncrementAndGet advances the counter and returns the new value.
// Concurrent callers always receive distinct, gap-free values.
func (t *Tracker) IncrementAndGet() int {
	return int(t.current.Add(1))
}

// Current returns a snapshot of the last issued sequence number.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the number of locators in the run.
func (t *Tracker) Total() int {
	return t.total
}
