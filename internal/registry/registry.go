// Package registry is the single source of truth for "is user X currently
// armed". It owns the arm/fire/cancel races: every transition is atomic
// under one lock, each job is consumed exactly once, and at most one
// non-consumed job exists per user at any time.
package registry

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vigild/vigild/pkg/vigilib"
)

// ScheduledCheck is one armed switch check. Created by Arm, consumed exactly
// once by Fire or Cancel.
type ScheduledCheck struct {
	ID             string    `json:"id"`
	UserAddress    string    `json:"user_address"`
	DueAt          time.Time `json:"due_at"`
	TimeoutSeconds int64     `json:"timeout_seconds"`

	consumed bool
}

// Store persists registry transitions so outstanding checks survive a
// process restart. A nil Store keeps the registry memory-only.
type Store interface {
	InsertCheck(c *ScheduledCheck) error
	DeleteCheck(id string) error
}

// Registry tracks at most one outstanding ScheduledCheck per user.
type Registry struct {
	mu     sync.Mutex
	byID   map[string]*ScheduledCheck
	byUser map[string]string // user address -> outstanding job id
	store  Store
}

// New creates a Registry. store may be nil.
func New(store Store) *Registry {
	return &Registry{
		byID:   make(map[string]*ScheduledCheck),
		byUser: make(map[string]string),
		store:  store,
	}
}

// Arm atomically installs a new ScheduledCheck for user with
// dueAt = now + timeoutSeconds. It fails with vigilib.ErrAlreadyArmed if a
// non-consumed check already exists for the user, and leaves no state behind
// if persistence fails.
func (r *Registry) Arm(user string, timeoutSeconds int64) (*ScheduledCheck, error) {
	if timeoutSeconds <= 0 {
		return nil, vigilib.ErrInvalidTimeout
	}
	user = vigilib.NormalizeAddress(user)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, armed := r.byUser[user]; armed {
		return nil, vigilib.ErrAlreadyArmed
	}

	c := &ScheduledCheck{
		ID:             ulid.Make().String(),
		UserAddress:    user,
		DueAt:          time.Now().Add(time.Duration(timeoutSeconds) * time.Second),
		TimeoutSeconds: timeoutSeconds,
	}
	if r.store != nil {
		if err := r.store.InsertCheck(c); err != nil {
			return nil, err
		}
	}
	r.byID[c.ID] = c
	r.byUser[user] = c.ID

	cp := *c
	return &cp, nil
}

// Fire atomically consumes the job and returns true only if it transitions
// from outstanding to consumed. A false return means a cancel (or an earlier
// fire) won the race.
func (r *Registry) Fire(jobID string) bool {
	return r.consume(jobID)
}

// Cancel atomically marks the job consumed if it is still outstanding.
// Returns false if it was already consumed: first event wins.
func (r *Registry) Cancel(jobID string) bool {
	return r.consume(jobID)
}

// consume is the single transition point for both Fire and Cancel, so a
// given job can never be double-consumed.
func (r *Registry) consume(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[jobID]
	if !ok || c.consumed {
		return false
	}
	c.consumed = true
	delete(r.byID, jobID)
	delete(r.byUser, c.UserAddress)
	if r.store != nil {
		// Best effort: a stale row is healed by reconciliation, and must
		// not resurrect a consumed job in this process.
		_ = r.store.DeleteCheck(jobID)
	}
	return true
}

// Outstanding returns a copy of the user's non-consumed check, if any.
func (r *Registry) Outstanding(user string) (*ScheduledCheck, bool) {
	user = vigilib.NormalizeAddress(user)

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUser[user]
	if !ok {
		return nil, false
	}
	cp := *r.byID[id]
	return &cp, true
}

// Snapshot returns copies of all outstanding checks.
func (r *Registry) Snapshot() []ScheduledCheck {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ScheduledCheck, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, *c)
	}
	return out
}

// Restore installs previously persisted checks as outstanding jobs at
// startup, preserving their original IDs and due times. Rows that collide
// with an already-armed user are dropped.
func (r *Registry) Restore(checks []ScheduledCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range checks {
		c := checks[i]
		c.UserAddress = vigilib.NormalizeAddress(c.UserAddress)
		c.consumed = false
		if _, armed := r.byUser[c.UserAddress]; armed {
			continue
		}
		stored := c
		r.byID[stored.ID] = &stored
		r.byUser[stored.UserAddress] = stored.ID
	}
}
