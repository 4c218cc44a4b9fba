package scheduler

import "time"

// deadlineEntry represents one pending check in the scheduler heap.
// It is an in-memory only type; the heap is rebuilt from the registry's
// outstanding checks on daemon restart.
type deadlineEntry struct {
	// JobID is the registry job consumed when TriggerAt is reached.
	JobID string
	// UserAddress is the user whose check fires at TriggerAt.
	UserAddress string
	// TriggerAt is the wall-clock time when the check becomes due.
	TriggerAt time.Time
}
