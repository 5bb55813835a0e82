package waiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/parscrape/models"
)

// fakeProbe becomes ready after readyAfter calls; errs makes every
// probe fail until then.
type fakeProbe struct {
	readyAfter int32
	errs       bool
	calls      atomic.Int32
	gotTarget  atomic.Value
}

func (p *fakeProbe) check(target string) (bool, error) {
	p.gotTarget.Store(target)
	n := p.calls.Add(1)
	if p.readyAfter >= 0 && n > p.readyAfter {
		return true, nil
	}
	if p.errs {
		return false, errors.New("execution context was destroyed")
	}
	return false, nil
}

func (p *fakeProbe) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	ok, err := p.check("")
	if err != nil {
		return err
	}
	if !ok {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakeProbe) HasElement(_ context.Context, selector string) (bool, error) {
	return p.check(selector)
}

func (p *fakeProbe) HasText(_ context.Context, text string) (bool, error) {
	return p.check(text)
}

type recorder struct {
	mu    sync.Mutex
	steps []State
}

func (r *recorder) observe(_, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, to)
}

func (r *recorder) get() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.steps...)
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRun_None(t *testing.T) {
	rec := &recorder{}
	probe := &fakeProbe{readyAfter: -1}
	w := New(probe, Config{Strategy: models.WaitNone}, WithObserver(rec.observe))

	start := time.Now()
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("none strategy should not suspend")
	}
	if !equalStates(rec.get(), []State{Satisfied}) {
		t.Errorf("transitions = %v, want [satisfied]", rec.get())
	}
	if probe.calls.Load() != 0 {
		t.Error("none strategy must not probe the page")
	}
}

func TestRun_FixedDelay(t *testing.T) {
	rec := &recorder{}
	w := New(&fakeProbe{}, Config{
		Strategy:    models.WaitFixedDelay,
		SettleDelay: 80 * time.Millisecond,
	}, WithObserver(rec.observe))

	start := time.Now()
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("returned after %v, before the settle delay", elapsed)
	}
	if !equalStates(rec.get(), []State{Waiting, Satisfied}) {
		t.Errorf("transitions = %v", rec.get())
	}
}

func TestRun_FixedDelayExpires(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	w := New(&fakeProbe{}, Config{Strategy: models.WaitFixedDelay, SettleDelay: time.Second})
	err := w.Run(ctx)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expired error should wrap the context error")
	}
	if w.State() != Expired {
		t.Errorf("state = %s, want expired", w.State())
	}
}

func TestRun_SelectorAppears(t *testing.T) {
	probe := &fakeProbe{readyAfter: 2}
	w := New(probe, Config{
		Strategy:     models.WaitSelectorPresent,
		Target:       "#content",
		PollInterval: 10 * time.Millisecond,
	})
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := probe.calls.Load(); got != 3 {
		t.Errorf("probe calls = %d, want 3", got)
	}
	if got := probe.gotTarget.Load(); got != "#content" {
		t.Errorf("probed target = %v", got)
	}
	if w.State() != Satisfied {
		t.Errorf("state = %s", w.State())
	}
}

func TestRun_SelectorNeverAppears(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	w := New(&fakeProbe{readyAfter: -1}, Config{
		Strategy:     models.WaitSelectorPresent,
		Target:       ".never",
		PollInterval: 10 * time.Millisecond,
	}, WithObserver(rec.observe))

	start := time.Now()
	err := w.Run(ctx)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("expiry took %v, want about 100ms", elapsed)
	}
	if !equalStates(rec.get(), []State{Waiting, Expired}) {
		t.Errorf("transitions = %v", rec.get())
	}
}

func TestRun_TextProbeErrorsMeanNotYet(t *testing.T) {
	probe := &fakeProbe{readyAfter: 3, errs: true}
	w := New(probe, Config{
		Strategy:     models.WaitTextPresent,
		Target:       "Welcome",
		PollInterval: 5 * time.Millisecond,
	})
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("probe errors should be retried, got %v", err)
	}
	if got := probe.gotTarget.Load(); got != "Welcome" {
		t.Errorf("probed target = %v", got)
	}
}

func TestRun_NetworkIdle(t *testing.T) {
	probe := &fakeProbe{readyAfter: 1, errs: true}
	w := New(probe, Config{Strategy: models.WaitNetworkIdle, PollInterval: 5 * time.Millisecond})
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.State() != Satisfied {
		t.Errorf("state = %s", w.State())
	}
}

func TestRun_NetworkIdleExpires(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	w := New(&fakeProbe{readyAfter: -1}, Config{Strategy: models.WaitNetworkIdle})
	if err := w.Run(ctx); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestRun_CancelNeverLeavesWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(&fakeProbe{readyAfter: -1}, Config{
		Strategy:     models.WaitTextPresent,
		Target:       "x",
		PollInterval: 5 * time.Millisecond,
	})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if w.State() != Expired {
		t.Errorf("state = %s, want expired", w.State())
	}
}

func TestRun_OnlyOnce(t *testing.T) {
	w := New(&fakeProbe{}, Config{Strategy: models.WaitNone})
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Run(context.Background()); err == nil {
		t.Error("second Run should fail")
	}
}

func TestNew_Defaults(t *testing.T) {
	w := New(&fakeProbe{}, Config{Strategy: models.WaitNetworkIdle})
	if w.cfg.PollInterval != DefaultPollInterval || w.cfg.QuietWindow != DefaultQuietWindow {
		t.Errorf("timings = %v/%v", w.cfg.PollInterval, w.cfg.QuietWindow)
	}
	if w.State() != Idle {
		t.Errorf("initial state = %s", w.State())
	}
}
