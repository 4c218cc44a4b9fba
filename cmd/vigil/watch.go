package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/vigild/vigild/common"
	"github.com/vigild/vigild/pkg/vigilcli"
	"github.com/vigild/vigild/pkg/vigilib"
)

// watchState is shared between the event listener and the bar decorators.
type watchState struct {
	mu      sync.Mutex
	label   string
	dueAt   time.Time
	timeout time.Duration
	done    bool
}

func (w *watchState) snapshot() (string, time.Time, time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.label, w.dueAt, w.timeout, w.done
}

func (w *watchState) set(label string, dueAt time.Time) {
	w.mu.Lock()
	w.label = label
	if !dueAt.IsZero() {
		w.dueAt = dueAt
	}
	w.mu.Unlock()
}

func (w *watchState) finish(label string) {
	w.mu.Lock()
	w.label = label
	w.done = true
	w.mu.Unlock()
}

func watch(cliCtx *cli.Context) error {
	user, err := requireUser(cliCtx)
	if err != nil {
		return err
	}
	user = vigilib.NormalizeAddress(user)

	c := newClient(cliCtx)
	defer c.Close()
	st, err := c.Status(context.Background(), user)
	if err != nil {
		return err
	}
	if st.State != string(vigilib.StateArmed) || st.DueAt == nil {
		fmt.Printf("switch for %s is %s; nothing to watch\n", user, st.State)
		return nil
	}

	ws := &watchState{
		label:   "armed",
		dueAt:   *st.DueAt,
		timeout: time.Duration(st.TimeoutSeconds) * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listenEvents(ctx, cliCtx, user, ws, cancel)

	renderCountdown(ctx, user, ws)

	label, _, _, _ := ws.snapshot()
	fmt.Printf("final state: %s\n", label)
	return nil
}

// listenEvents follows the daemon's push stream and updates the shared state.
func listenEvents(ctx context.Context, cliCtx *cli.Context, user string, ws *watchState, cancel context.CancelFunc) {
	_ = vigilcli.Listen(ctx, cliCtx.String("url"), cliCtx.String("secret"), vigilcli.Handlers{
		OnCheckStarted: func(ev *common.CheckStartedEvent) {
			if vigilib.NormalizeAddress(ev.UserAddress) == user {
				ws.set("checking", time.Time{})
			}
		},
		OnTimerReset: func(ev *common.TimerResetEvent) {
			if vigilib.NormalizeAddress(ev.UserAddress) == user {
				ws.set("armed", ev.DueAt)
			}
		},
		OnTriggered: func(ev *common.SwitchTriggeredEvent) {
			if vigilib.NormalizeAddress(ev.UserAddress) == user {
				ws.finish("triggered")
				cancel()
			}
		},
	})
}

// renderCountdown drives an mpb bar from armed-at toward the due time,
// re-filling on timer resets, until triggered or interrupted.
func renderCountdown(ctx context.Context, user string, ws *watchState) {
	p := mpb.New(mpb.WithWidth(48))
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")

	_, _, timeout, _ := ws.snapshot()
	total := int64(timeout / time.Second)
	if total <= 0 {
		total = 1
	}

	short := user
	if len(short) > 10 {
		short = short[:10] + "…"
	}
	bar := p.New(total,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(short+" ", decor.WC{C: decor.DindentRight}),
			decor.Any(func(decor.Statistics) string {
				label, _, _, _ := ws.snapshot()
				return label
			}, decor.WC{W: 10}),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				_, dueAt, _, done := ws.snapshot()
				if done {
					return "—"
				}
				left := time.Until(dueAt).Round(time.Second)
				if left < 0 {
					left = 0
				}
				return left.String()
			}, decor.WC{W: 12}),
		),
	)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			bar.SetTotal(total, true)
			p.Wait()
			return
		case <-ticker.C:
			_, dueAt, timeout, done := ws.snapshot()
			if done {
				bar.SetTotal(total, true)
				p.Wait()
				return
			}
			elapsed := int64((timeout - time.Until(dueAt)) / time.Second)
			if elapsed < 0 {
				elapsed = 0
			}
			if elapsed > total {
				elapsed = total
			}
			bar.SetCurrent(elapsed)
		}
	}
}
