package browser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-perfumes/config"
)

func TestDetectBlock(t *testing.T) {
	filler := strings.Repeat("<p>accords</p>", 500)

	tests := []struct {
		name        string
		html        string
		wantBlocked bool
	}{
		{name: "normal page", html: "<html><h1>Aventus</h1>" + filler + "</html>"},
		{name: "too short", html: "<html><body>ok</body></html>", wantBlocked: true},
		{name: "rate limit", html: "<title>429 Too Many Requests</title>" + filler, wantBlocked: true},
		{name: "page quota", html: "<p>you've opened more pages than allowed</p>" + filler, wantBlocked: true},
		{name: "cloudflare challenge", html: "<title>Just a moment...</title>" + filler, wantBlocked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DetectBlock("https://example.com/p.html", tt.html, 5000)
			var blocked ErrBlocked
			if got := errors.As(err, &blocked); got != tt.wantBlocked {
				t.Fatalf("blocked = %v, want %v (err=%v)", got, tt.wantBlocked, err)
			}
			if tt.wantBlocked && blocked.URL != "https://example.com/p.html" {
				t.Fatalf("blocked URL = %q", blocked.URL)
			}
		})
	}
}

func TestDetectBlockZeroThreshold(t *testing.T) {
	if err := DetectBlock("u", "", 0); err != nil {
		t.Fatalf("empty page with zero threshold should pass, got %v", err)
	}
}

func TestScrollPlan(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ScrollSteps = 4
	cfg.ScrollPause = 100 * time.Millisecond
	cfg.SettlePause = time.Second
	cfg.SectionPause = 200 * time.Millisecond

	plan := scrollPlan(cfg)
	if want := 4 + len(lazySections) + 2; len(plan) != want {
		t.Fatalf("plan length = %d, want %d", len(plan), want)
	}
	if !strings.Contains(plan[0].js, "0.2500") {
		t.Fatalf("first step should scroll a quarter, got %s", plan[0].js)
	}
	if !strings.Contains(plan[3].js, "1.0000") {
		t.Fatalf("last incremental step should reach the bottom, got %s", plan[3].js)
	}
	if plan[3].pause != 1100*time.Millisecond {
		t.Fatalf("last incremental pause = %s, want settle added", plan[3].pause)
	}
	for i, id := range lazySections {
		step := plan[4+i]
		if !strings.Contains(step.js, "#"+id) {
			t.Fatalf("step %d should target #%s: %s", 4+i, id, step.js)
		}
		if step.pause != cfg.SectionPause {
			t.Fatalf("section pause = %s", step.pause)
		}
	}
	if last := plan[len(plan)-1]; last.pause != cfg.SettlePause {
		t.Fatalf("final settle pause = %s", last.pause)
	}
}

type fakeTimedPage struct {
	timeouts []time.Duration
	cancels  int
}

func (f *fakeTimedPage) Timeout(d time.Duration) *fakeTimedPage {
	f.timeouts = append(f.timeouts, d)
	return f
}

func (f *fakeTimedPage) CancelTimeout() *fakeTimedPage {
	f.cancels++
	return f
}

func TestWithTimeoutReleasesTimer(t *testing.T) {
	page := &fakeTimedPage{}
	navErr := errors.New("net::ERR_CONNECTION_RESET")

	if err := withTimeout(page, 30*time.Second, func(*fakeTimedPage) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := withTimeout(page, 5*time.Second, func(*fakeTimedPage) error { return navErr }); !errors.Is(err, navErr) {
		t.Fatalf("error = %v, want %v", err, navErr)
	}

	if page.cancels != 2 {
		t.Fatalf("timers released = %d, want 2", page.cancels)
	}
	if len(page.timeouts) != 2 || page.timeouts[0] != 30*time.Second || page.timeouts[1] != 5*time.Second {
		t.Fatalf("timeouts = %v", page.timeouts)
	}
}
