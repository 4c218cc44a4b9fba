package daemon

import (
	"context"
	"errors"
	"log"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "daemon: ", log.LstdFlags)
}

func TestNew_AppliesDefaultsAndValidatesCron(t *testing.T) {
	r, err := New(nil, nil, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if r.Config().ReconcileCron != DefaultReconcileCron {
		t.Errorf("ReconcileCron = %q, want %q", r.Config().ReconcileCron, DefaultReconcileCron)
	}

	if _, err := New(&Config{ReconcileCron: "not a cron"}, nil, testLogger()); !errors.Is(err, ErrInvalidCron) {
		t.Errorf("New() error = %v, want ErrInvalidCron", err)
	}
}

func TestStart_RejectsDoubleStart(t *testing.T) {
	block := make(chan struct{})
	r, err := New(nil, &Dependencies{
		Serve: func() error { <-block; return nil },
	}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan error, 1)
	go func() { started <- r.Start(ctx) }()

	waitRunning(t, r, true)

	if err := r.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	close(block)
	if err := <-started; err != nil {
		t.Errorf("Start() error = %v, want nil after serve returns", err)
	}
	if r.IsRunning() {
		t.Error("IsRunning() = true after serve returned")
	}
}

func TestShutdown_NotRunning(t *testing.T) {
	r, err := New(nil, nil, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Shutdown(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Shutdown() error = %v, want ErrNotRunning", err)
	}
}

func TestShutdown_StopsServerAndUnblocksStart(t *testing.T) {
	serveDone := make(chan struct{})
	var shutdownCalls int32
	r, err := New(nil, &Dependencies{
		Serve: func() error { <-serveDone; return nil },
		Shutdown: func(ctx context.Context) error {
			atomic.AddInt32(&shutdownCalls, 1)
			close(serveDone)
			return nil
		},
	}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	started := make(chan error, 1)
	go func() { started <- r.Start(context.Background()) }()
	waitRunning(t, r, true)

	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := atomic.LoadInt32(&shutdownCalls); got != 1 {
		t.Errorf("shutdown func called %d times, want 1", got)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Shutdown()")
	}
	if r.IsRunning() {
		t.Error("IsRunning() = true after Shutdown()")
	}
}

func TestShutdown_TimesOut(t *testing.T) {
	r, err := New(&Config{ShutdownTimeout: 50 * time.Millisecond}, &Dependencies{
		Serve: func() error { select {} },
		Shutdown: func(ctx context.Context) error {
			<-ctx.Done() // never finishes on its own
			time.Sleep(time.Second)
			return nil
		},
	}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	go func() { _ = r.Start(context.Background()) }()
	waitRunning(t, r, true)

	if err := r.Shutdown(); !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("Shutdown() error = %v, want ErrShutdownTimeout", err)
	}
}

func TestStart_ContextCancelStopsDaemon(t *testing.T) {
	r, err := New(nil, &Dependencies{
		Serve: func() error { select {} },
	}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan error, 1)
	go func() { started <- r.Start(ctx) }()
	waitRunning(t, r, true)

	cancel()
	select {
	case err := <-started:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after context cancel")
	}
}

func waitRunning(t *testing.T, r *Runner, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.IsRunning() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("IsRunning() never became %v", want)
}
