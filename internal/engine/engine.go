// Package engine implements the switch state machine: it consumes scheduler
// fires, asks the activity oracle whether the user is still alive, and
// either re-arms the timer or builds a sweep plan and hands it to the
// notification boundary. One arm cycle moves Armed → Checking → {Armed,
// Triggered}; Triggered is terminal until an explicit new arm call.
package engine

import (
	"context"
	"log"
	"runtime/debug"
	"time"

	"github.com/vigild/vigild/common"
	"github.com/vigild/vigild/internal/registry"
	"github.com/vigild/vigild/internal/scheduler"
	"github.com/vigild/vigild/pkg/vigilib"
)

// DelegationStore is the external owner of delegation records. The engine
// reads them and only ever flips Active.
type DelegationStore interface {
	GetDelegation(ctx context.Context, userAddress string) (*vigilib.Delegation, error)
	PutDelegation(ctx context.Context, d *vigilib.Delegation) error
	SetActive(ctx context.Context, userAddress string, active bool) error
}

// ActivityOracle decides found/not-found for a user within a window.
type ActivityOracle interface {
	Check(ctx context.Context, userAddress string, window time.Duration) vigilib.ActivityResult
}

// SweepPlanner builds the transaction bundle for a triggered switch.
type SweepPlanner interface {
	Plan(ctx context.Context, userAddress, beneficiaryAddress string, target vigilib.TargetAsset) (*vigilib.SweepPlan, error)
}

// Notifier is the transport-facing event sink.
type Notifier interface {
	Emit(userAddress string, event common.EventType, payload any)
}

// Config holds engine tuning.
type Config struct {
	// Workers bounds how many check cycles run concurrently.
	Workers int
	// Target is the asset/chain sweeps consolidate into.
	Target vigilib.TargetAsset
	// CycleTimeout bounds one whole check-and-trigger cycle.
	CycleTimeout time.Duration
}

// Dependencies holds the engine's collaborators.
type Dependencies struct {
	Delegations DelegationStore
	Oracle      ActivityOracle
	Planner     SweepPlanner
	Notifier    Notifier
	Registry    *registry.Registry
}

const (
	defaultWorkers      = 8
	defaultCycleTimeout = 2 * time.Minute
	fireQueueSize       = 256
)

type fireEvent struct {
	userAddress string
	jobID       string
}

// Engine orchestrates the switch lifecycle for all users.
type Engine struct {
	cfg   Config
	deps  Dependencies
	log   *log.Logger
	sched *scheduler.Scheduler
	ctx   context.Context

	checking  *vigilib.VMap[string, struct{}]
	triggered *vigilib.VMap[string, time.Time]
	fires     chan fireEvent
}

// New creates the engine and starts its scheduler and worker pool.
// Everything winds down when ctx is cancelled.
func New(ctx context.Context, cfg Config, deps Dependencies, l *log.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = defaultCycleTimeout
	}

	e := &Engine{
		cfg:       cfg,
		deps:      deps,
		log:       l,
		ctx:       ctx,
		checking:  vigilib.NewVMap[string, struct{}](),
		triggered: vigilib.NewVMap[string, time.Time](),
		fires:     make(chan fireEvent, fireQueueSize),
	}
	e.sched = scheduler.New(ctx, deps.Registry, l, e.onFire)

	for i := 0; i < cfg.Workers; i++ {
		vigilib.SafeGo(l, nil, "engine worker", nil, e.worker)
	}
	return e
}

// Recover reinstates persisted checks after a restart: the registry learns
// the outstanding jobs, the scheduler heap is rebuilt, and overdue checks
// fire immediately.
func (e *Engine) Recover(checks []registry.ScheduledCheck) {
	e.deps.Registry.Restore(checks)
	e.sched.Recover(e.deps.Registry.Snapshot())
}

// Arm validates and installs a delegation, then schedules the first check.
// It fails synchronously, before any state change, on malformed input or an
// already-armed user.
func (e *Engine) Arm(ctx context.Context, userAddress string, timeoutSeconds int64, beneficiaryAddress string) (*common.ArmResult, error) {
	d := &vigilib.Delegation{
		UserAddress:        vigilib.NormalizeAddress(userAddress),
		BeneficiaryAddress: vigilib.NormalizeAddress(beneficiaryAddress),
		TimeoutSeconds:     timeoutSeconds,
		Active:             true,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	// The registry arm is the synchronization point between racing arms:
	// the loser gets ErrAlreadyArmed here, before any state change. The
	// delegation is written only after winning, and rolled back if the
	// write fails so a half-armed user is never left behind.
	check, err := e.sched.Schedule(d.UserAddress, timeoutSeconds)
	if err != nil {
		return nil, err
	}
	if err := e.deps.Delegations.PutDelegation(ctx, d); err != nil {
		e.sched.Cancel(check.ID)
		return nil, err
	}
	e.triggered.Delete(d.UserAddress)

	return &common.ArmResult{JobID: check.ID, DueAt: check.DueAt}, nil
}

// Cancel consumes the user's outstanding check and deactivates the
// delegation. It returns vigilib.ErrNotArmed when nothing is outstanding;
// losing a race against a concurrent fire is reported the same way.
func (e *Engine) Cancel(ctx context.Context, userAddress string) error {
	user := vigilib.NormalizeAddress(userAddress)
	check, ok := e.deps.Registry.Outstanding(user)
	if !ok {
		return vigilib.ErrNotArmed
	}
	if !e.sched.Cancel(check.ID) {
		// The fire won; its callback runs to completion.
		return vigilib.ErrNotArmed
	}
	if err := e.deps.Delegations.SetActive(ctx, user, false); err != nil {
		e.log.Printf("engine: deactivate delegation for %s: %v", user, err)
	}
	return nil
}

// Status reports the user's current switch state.
func (e *Engine) Status(ctx context.Context, userAddress string) (*common.StatusResult, error) {
	user := vigilib.NormalizeAddress(userAddress)
	res := &common.StatusResult{UserAddress: user, State: string(vigilib.StateIdle)}

	if d, err := e.deps.Delegations.GetDelegation(ctx, user); err == nil {
		res.TimeoutSeconds = d.TimeoutSeconds
		res.Beneficiary = d.BeneficiaryAddress
	}

	if _, ok := e.checking.Get(user); ok {
		res.State = string(vigilib.StateChecking)
		return res, nil
	}
	if check, ok := e.deps.Registry.Outstanding(user); ok {
		res.State = string(vigilib.StateArmed)
		due := check.DueAt
		res.DueAt = &due
		return res, nil
	}
	if _, ok := e.triggered.Get(user); ok {
		res.State = string(vigilib.StateTriggered)
		return res, nil
	}
	return res, nil
}

// onFire runs on the scheduler goroutine; it only enqueues the cycle so the
// timing loop never blocks on oracle or planner latency.
func (e *Engine) onFire(userAddress, jobID string) {
	select {
	case e.fires <- fireEvent{userAddress: userAddress, jobID: jobID}:
	case <-e.ctx.Done():
	}
}

func (e *Engine) worker() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case ev := <-e.fires:
			e.runCycleSafely(ev)
		}
	}
}

// runCycleSafely contains a panicking cycle inside the worker loop, so one
// bad check never shrinks the pool.
func (e *Engine) runCycleSafely(ev fireEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Printf("PANIC [engine cycle %s]: %v\n%s", ev.jobID, r, debug.Stack())
		}
	}()
	e.runCycle(ev)
}

// runCycle resolves one fired check. It always terminates in Armed or
// Triggered: every failure after the fire is contained here.
func (e *Engine) runCycle(ev fireEvent) {
	user := ev.userAddress
	e.checking.Set(user, struct{}{})
	defer e.checking.Delete(user)

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.CycleTimeout)
	defer cancel()

	// Re-read the delegation so the cycle uses the current timeout and
	// beneficiary, not values captured at arm time.
	d, err := e.deps.Delegations.GetDelegation(ctx, user)
	if err != nil {
		e.log.Printf("engine: fired check %s has no delegation for %s: %v", ev.jobID, user, err)
		return
	}
	if !d.Active {
		e.log.Printf("engine: delegation for %s is inactive, dropping fired check %s", user, ev.jobID)
		return
	}

	e.deps.Notifier.Emit(user, common.EventCheckStarted, &common.CheckStartedEvent{
		UserAddress:   user,
		JobID:         ev.jobID,
		WindowSeconds: d.TimeoutSeconds,
		At:            time.Now(),
	})

	result := e.deps.Oracle.Check(ctx, user, d.Timeout())
	if result.Found {
		e.rearm(user, d, result)
		return
	}
	e.trigger(ctx, user, d, result)
}

// rearm schedules a genuinely new job with a fresh deadline; the fired job
// was already consumed.
func (e *Engine) rearm(user string, d *vigilib.Delegation, result vigilib.ActivityResult) {
	check, err := e.sched.Schedule(user, d.TimeoutSeconds)
	if err != nil {
		// A concurrent arm call can win this slot; the switch stays armed
		// either way.
		e.log.Printf("engine: re-arm for %s failed: %v", user, err)
		return
	}
	e.deps.Notifier.Emit(user, common.EventTimerReset, &common.TimerResetEvent{
		UserAddress: user,
		JobID:       check.ID,
		DueAt:       check.DueAt,
		Result:      result,
	})
}

// trigger is the terminal transition: build the sweep plan exactly once and
// hand it to the notification boundary. The engine never executes the plan.
func (e *Engine) trigger(ctx context.Context, user string, d *vigilib.Delegation, result vigilib.ActivityResult) {
	e.triggered.Set(user, time.Now())

	event := &common.SwitchTriggeredEvent{UserAddress: user, Result: result}
	plan, err := e.deps.Planner.Plan(ctx, user, d.BeneficiaryAddress, e.cfg.Target)
	if err != nil {
		e.log.Printf("engine: sweep planning for %s failed: %v", user, err)
		event.PlanError = err.Error()
	} else {
		event.Plan = plan
	}

	if err := e.deps.Delegations.SetActive(ctx, user, false); err != nil {
		e.log.Printf("engine: deactivate delegation for %s: %v", user, err)
	}
	e.deps.Notifier.Emit(user, common.EventSwitchTriggered, event)
}
