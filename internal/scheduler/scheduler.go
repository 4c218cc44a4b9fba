package scheduler

import (
	"container/heap"
	"context"
	"log"
	"runtime/debug"
	"time"

	"github.com/vigild/vigild/internal/registry"
)

const maxSleepCap = 60 * time.Second

// OnFire is invoked when a scheduled check's deadline arrives and the
// scheduler won the fire/cancel race for its job.
type OnFire func(userAddress, jobID string)

// Scheduler manages check deadlines for all users using a min-heap.
// It runs a background goroutine that sleeps until the next entry's
// trigger time, consumes the job through the registry, and calls the
// onFire callback exactly once per consumed job.
type Scheduler struct {
	reg        *registry.Registry
	log        *log.Logger
	addChan    chan deadlineEntry
	removeChan chan string
	ctx        context.Context
}

// New creates and starts a new Scheduler over the given registry.
// The scheduler goroutine exits when ctx is cancelled.
func New(ctx context.Context, reg *registry.Registry, l *log.Logger, onFire OnFire) *Scheduler {
	s := &Scheduler{
		reg:        reg,
		log:        l,
		addChan:    make(chan deadlineEntry, 64),
		removeChan: make(chan string, 64),
		ctx:        ctx,
	}
	go s.run(onFire)
	return s
}

// Schedule arms a new check for the user through the registry and registers
// its deadline. The returned check is the caller's copy of the armed job; a
// concurrent cancel may consume the job in the registry at any moment after
// this returns, so callers must not re-read registry state to learn the id
// or due time. Rescheduling is always cancel-then-schedule; due times are
// never mutated in place.
func (s *Scheduler) Schedule(userAddress string, timeoutSeconds int64) (*registry.ScheduledCheck, error) {
	c, err := s.reg.Arm(userAddress, timeoutSeconds)
	if err != nil {
		return nil, err
	}
	s.push(deadlineEntry{JobID: c.ID, UserAddress: c.UserAddress, TriggerAt: c.DueAt})
	return c, nil
}

// Cancel consumes the job in the registry and drops its heap entry.
// Returns false if the job was already consumed (fired or cancelled).
func (s *Scheduler) Cancel(jobID string) bool {
	if !s.reg.Cancel(jobID) {
		return false
	}
	select {
	case s.removeChan <- jobID:
	case <-s.ctx.Done():
	}
	return true
}

// Recover pushes previously persisted checks back onto the heap at startup.
// Overdue entries fire on the next loop iteration, through the same
// registry gate as everything else.
func (s *Scheduler) Recover(checks []registry.ScheduledCheck) {
	for _, c := range checks {
		s.push(deadlineEntry{JobID: c.ID, UserAddress: c.UserAddress, TriggerAt: c.DueAt})
	}
}

func (s *Scheduler) push(e deadlineEntry) {
	select {
	case s.addChan <- e:
	case <-s.ctx.Done():
	}
}

// run is the core scheduler goroutine implementing the active-object
// pattern. It maintains a min-heap of entries and sleeps with a 60s
// max-sleep-cap.
func (s *Scheduler) run(onFire OnFire) {
	h := &deadlineHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			// No entries, block indefinitely on channels
			return nil
		}
		next := (*h)[0].TriggerAt
		dur := time.Until(next)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case entry := <-s.addChan:
			heapPush(h, entry)
			timerCh = resetTimer()

		case jobID := <-s.removeChan:
			heapRemoveByJobID(h, jobID)
			timerCh = resetTimer()

		case <-timerCh:
			// Fire all entries whose time has arrived. The registry gate
			// makes each fire exactly-once: a concurrently cancelled job
			// consumes first and the entry becomes a no-op.
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].TriggerAt.After(now) {
				entry := heapPop(h)
				if !s.reg.Fire(entry.JobID) {
					continue
				}
				s.fireSafely(onFire, entry)
			}
			timerCh = resetTimer()
		}
	}
}

// fireSafely runs the callback with panic recovery so a failing check
// cannot crash the timing facility. The job was already consumed before the
// callback ran, so a panic never leaves it outstanding.
func (s *Scheduler) fireSafely(onFire OnFire, entry deadlineEntry) {
	defer func() {
		if r := recover(); r != nil && s.log != nil {
			s.log.Printf("PANIC [scheduler fire %s]: %v\n%s", entry.JobID, r, debug.Stack())
		}
	}()
	onFire(entry.UserAddress, entry.JobID)
}
