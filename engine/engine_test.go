package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/parscrape/models"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, models.ErrCodeTimeout},
		{"wrapped deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), models.ErrCodeTimeout},
		{"canceled", context.Canceled, models.ErrCodeTimeout},
		{"dns", errors.New("net::ERR_NAME_NOT_RESOLVED"), models.ErrCodeNavigation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categorizeError(tt.err, "navigation failed")
			if got.Code != tt.want {
				t.Errorf("code = %s, want %s", got.Code, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("categorized error does not wrap its cause")
			}
		})
	}
}

func TestLaunchError_AlwaysLaunchKind(t *testing.T) {
	err := launchError(context.DeadlineExceeded, "browser did not start")
	if err.Kind() != models.KindLaunch {
		t.Errorf("kind = %v, want launch", err.Kind())
	}
}

func TestStatusError(t *testing.T) {
	err := statusError(404, "https://example.com/missing")
	if err.Code != models.ErrCodeNavigation {
		t.Errorf("code = %s, want %s", err.Code, models.ErrCodeNavigation)
	}
	if err.Message != "target responded with HTTP 404" {
		t.Errorf("message = %q", err.Message)
	}
}

func TestBlockedTypeSet_DropsUnknownNames(t *testing.T) {
	set := blockedTypeSet([]string{"Image", "Font", "Hologram"})
	if len(set) != 2 {
		t.Fatalf("len = %d, want 2", len(set))
	}
	if _, ok := set[proto.NetworkResourceTypeImage]; !ok {
		t.Error("Image missing from blocked set")
	}
	if _, ok := set[proto.NetworkResourceTypeFont]; !ok {
		t.Error("Font missing from blocked set")
	}
}

func TestNetworkMonitor_IdleTracking(t *testing.T) {
	m := newNetworkMonitor()
	m.lastActivity = time.Now().Add(-time.Second)

	if !m.idleFor(500 * time.Millisecond) {
		t.Fatal("fresh monitor with old activity should be idle")
	}

	m.observe(&network.EventRequestWillBeSent{RequestID: "r1"})
	m.observe(&network.EventRequestWillBeSent{RequestID: "r2"})
	if m.idleFor(0) {
		t.Fatal("monitor with in-flight requests reported idle")
	}

	m.observe(&network.EventLoadingFinished{RequestID: "r1"})
	m.observe(&network.EventLoadingFailed{RequestID: "r2"})
	if !m.idleFor(0) {
		t.Error("monitor should be idle once every request settled")
	}
	if m.idleFor(time.Hour) {
		t.Error("quiet window must start at the last network event")
	}
}

func TestNetworkMonitor_IgnoresOtherEvents(t *testing.T) {
	m := newNetworkMonitor()
	m.observe(&network.EventResponseReceived{RequestID: "r1"})
	m.observe("not an event")
	if len(m.inflight) != 0 {
		t.Errorf("inflight = %d, want 0", len(m.inflight))
	}
}

func TestChromedpSession_WaitNetworkIdleHonorsDeadline(t *testing.T) {
	s := &chromedpSession{monitor: newNetworkMonitor()}
	s.monitor.observe(&network.EventRequestWillBeSent{RequestID: "long-poll"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.WaitNetworkIdle(ctx, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait overran its deadline: %v", elapsed)
	}
}

func TestChromedpSession_CloseIsIdempotent(t *testing.T) {
	calls := 0
	s := &chromedpSession{
		cancelTab:   func() { calls++ },
		cancelAlloc: func() { calls++ },
	}
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("close #%d: %v", i+1, err)
		}
	}
	if calls != 2 {
		t.Errorf("cancel calls = %d, want 2", calls)
	}
}

func TestAllocatorOptions_OptionalFlags(t *testing.T) {
	base := len(allocatorOptions(LaunchOptions{Headless: true}))
	full := len(allocatorOptions(LaunchOptions{
		Headless:   true,
		NoSandbox:  true,
		BrowserBin: "/usr/bin/chromium",
		Proxy:      "http://proxy:3128",
		UserAgent:  "parscrape-test",
	}))
	if full != base+4 {
		t.Errorf("options = %d, want %d", full, base+4)
	}
}

func TestDrivers_Names(t *testing.T) {
	if got := NewRodDriver().Name(); got != "rod" {
		t.Errorf("rod driver name = %q", got)
	}
	if got := NewChromedpDriver().Name(); got != "chromedp" {
		t.Errorf("chromedp driver name = %q", got)
	}
}
