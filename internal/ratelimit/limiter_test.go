package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_SlidingWindow_AtLimit(t *testing.T) {
	t.Parallel()

	l := New(Config{Limit: 1000, Duration: time.Minute})
	cfg := Config{Limit: 2, Duration: time.Minute}
	ctx := context.Background()

	r1, _ := l.Check(ctx, "u1", "tools/call", cfg)
	r2, _ := l.Check(ctx, "u1", "tools/call", cfg)
	r3, _ := l.Check(ctx, "u1", "tools/call", cfg)

	if !r1.Allowed || !r2.Allowed {
		t.Fatalf("first two checks should be allowed: r1=%+v r2=%+v", r1, r2)
	}
	if r3.Allowed {
		t.Fatalf("third check should be denied at limit=2: %+v", r3)
	}
	if r3.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0", r3.RetryAfter)
	}
}

func TestLimiter_FixedWindow_ResetsAfterDuration(t *testing.T) {
	t.Parallel()

	l := New(Config{Limit: 1000, Duration: time.Minute})
	cfg := Config{Mode: ModeFixed, Limit: 1, Duration: 10 * time.Millisecond}
	ctx := context.Background()

	r1, _ := l.Check(ctx, "u1", "res", cfg)
	if !r1.Allowed {
		t.Fatalf("first check should be allowed: %+v", r1)
	}
	r2, _ := l.Check(ctx, "u1", "res", cfg)
	if r2.Allowed {
		t.Fatalf("second check within window should be denied: %+v", r2)
	}

	time.Sleep(15 * time.Millisecond)
	r3, _ := l.Check(ctx, "u1", "res", cfg)
	if !r3.Allowed {
		t.Fatalf("check after window reset should be allowed: %+v", r3)
	}
}

func TestLimiter_Allowlist_Bypasses(t *testing.T) {
	t.Parallel()

	l := New(Config{Limit: 1, Duration: time.Minute}, WithAllowlist([]string{"trusted"}))
	cfg := Config{Limit: 1, Duration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r, _ := l.Check(ctx, "trusted", "res", cfg)
		if !r.Allowed || r.Remaining != -1 {
			t.Fatalf("allowlisted check %d = %+v, want allowed with unbounded remaining", i, r)
		}
	}
}

func TestLimiter_GlobalRollbackOnResourceDeny(t *testing.T) {
	t.Parallel()

	// Generous global window, tight resource window.
	l := New(Config{Limit: 1000, Duration: time.Minute})
	resourceCfg := Config{Limit: 1, Duration: time.Minute}
	ctx := context.Background()

	// First call consumes the resource's only slot.
	r1, _ := l.Check(ctx, "u1", "tight", resourceCfg)
	if !r1.Allowed {
		t.Fatalf("first call should be allowed: %+v", r1)
	}

	globalKeyBefore := l.windowFor(l.shardFor(key{identity: "u1", resource: globalResource}), key{identity: "u1", resource: globalResource})
	globalKeyBefore.mu.Lock()
	before := len(globalKeyBefore.entries)
	globalKeyBefore.mu.Unlock()

	// Second call: global increments then resource denies, so global
	// should roll back to its pre-increment state.
	r2, _ := l.Check(ctx, "u1", "tight", resourceCfg)
	if r2.Allowed {
		t.Fatalf("second call should be denied by resource window: %+v", r2)
	}

	globalKeyBefore.mu.Lock()
	after := len(globalKeyBefore.entries)
	globalKeyBefore.mu.Unlock()

	if after != before {
		t.Errorf("global window entries after rollback = %d, want %d (pre-increment)", after, before)
	}
}

func TestLimiter_PerOperationCostOverride(t *testing.T) {
	t.Parallel()

	l := New(Config{Limit: 1000, Duration: time.Minute})
	cfg := Config{Limit: 10, Duration: time.Minute, Cost: 6}
	ctx := context.Background()

	r1, _ := l.Check(ctx, "u1", "expensive", cfg)
	if !r1.Allowed {
		t.Fatalf("first expensive call should be allowed: %+v", r1)
	}
	r2, _ := l.Check(ctx, "u1", "expensive", cfg)
	if r2.Allowed {
		t.Fatalf("second expensive call (6+6>10) should be denied: %+v", r2)
	}
}

func TestLimiter_Sweep_RemovesIdleWindows(t *testing.T) {
	t.Parallel()

	l := New(Config{Limit: 10, Duration: time.Minute}, WithSweep(5*time.Millisecond, 10*time.Millisecond))
	ctx := context.Background()
	_, _ = l.Check(ctx, "u1", "res", Config{Limit: 10, Duration: time.Minute})

	if l.Size() == 0 {
		t.Fatal("expected at least one tracked window before sweep")
	}

	sweepCtx, cancel := context.WithCancel(context.Background())
	l.StartSweep(sweepCtx)
	defer func() {
		cancel()
		l.Stop()
	}()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if l.Size() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("sweep did not remove idle windows within deadline, size=%d", l.Size())
}
