// Package daemon manages the vigild process lifecycle: it supervises the RPC
// server, runs the periodic store/scheduler reconcile job, and coordinates
// graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrInvalidCron is returned for an unparseable reconcile schedule.
	ErrInvalidCron = errors.New("invalid reconcile cron expression")
)

const (
	// DefaultReconcileCron re-syncs the scheduler against the store every
	// five minutes.
	DefaultReconcileCron = "*/5 * * * *"

	// cronTick is how often the reconcile loop evaluates the schedule.
	// Cron resolution is one minute, so checking more often is wasted work.
	cronTick = time.Minute
)

// Config holds the configuration for the daemon runner.
type Config struct {
	// ReconcileCron is the cron schedule for the store/scheduler reconcile
	// job. Empty means DefaultReconcileCron.
	ReconcileCron string

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// Dependencies holds the external collaborators for the daemon runner.
// This enables dependency injection for testing.
type Dependencies struct {
	// Serve runs the RPC server and blocks until it stops. Required.
	Serve func() error

	// Shutdown stops the RPC server. If nil, no server shutdown is performed.
	Shutdown func(ctx context.Context) error

	// Reconcile re-syncs in-memory scheduling state against the durable
	// store. If nil, the reconcile loop is not started.
	Reconcile func(ctx context.Context) error
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config  *Config
	deps    *Dependencies
	log     *log.Logger
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// New creates a daemon runner. The cron expression is validated eagerly so a
// bad schedule fails at startup rather than silently never reconciling.
func New(config *Config, deps *Dependencies, l *log.Logger) (*Runner, error) {
	if config == nil {
		config = &Config{}
	}
	if config.ReconcileCron == "" {
		config.ReconcileCron = DefaultReconcileCron
	}
	if !gronx.IsValid(config.ReconcileCron) {
		return nil, ErrInvalidCron
	}
	if deps == nil {
		deps = &Dependencies{}
	}
	return &Runner{
		config: config,
		deps:   deps,
		log:    l,
	}, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start runs the daemon and blocks until the server stops or the context is
// canceled. Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	r.mu.Unlock()

	if r.deps.Reconcile != nil {
		go r.reconcileLoop(ctx)
	}

	serveErr := make(chan error, 1)
	if r.deps.Serve != nil {
		go func() { serveErr <- r.deps.Serve() }()
	}

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		err = ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return err
}

// reconcileLoop evaluates the cron schedule once per minute and runs the
// reconcile job when it is due.
func (r *Runner) reconcileLoop(ctx context.Context) {
	g := gronx.New()
	ticker := time.NewTicker(cronTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due, err := g.IsDue(r.config.ReconcileCron, now)
			if err != nil {
				r.log.Printf("daemon: cron evaluation failed: %v", err)
				continue
			}
			if !due {
				continue
			}
			if err := r.deps.Reconcile(ctx); err != nil {
				r.log.Printf("daemon: reconcile failed: %v", err)
			}
		}
	}
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if shutdown exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel := r.cancel
	r.mu.Unlock()

	err := r.executeShutdownFunc()

	r.mu.Lock()
	r.running = false
	if cancel != nil {
		cancel()
	}
	r.mu.Unlock()
	return err
}

// executeShutdownFunc runs the server shutdown with a timeout if configured.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.Shutdown == nil {
		return nil
	}

	ctx := context.Background()
	if r.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ShutdownTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- r.deps.Shutdown(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
