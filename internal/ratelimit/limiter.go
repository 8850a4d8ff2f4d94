package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// shardCount is the number of internal map shards, matching the
// concurrency policy of sharding by key hash rather than a single lock
// guarding the whole table.
const shardCount = 32

// Limiter checks and accounts rate limit windows. Safe for concurrent use.
type Limiter struct {
	globalCfg Config // applied to the per-identity global window
	shards    [shardCount]*shard

	sweepInterval time.Duration
	maxIdle       time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	allowlist map[string]struct{}
	allowMu   sync.RWMutex

	logger *slog.Logger
}

type shard struct {
	mu      sync.Mutex
	windows map[key]*window
}

// window is either a sliding-window entry list or a fixed-window counter,
// guarded by its own lock so the shard lock is held only while the window
// is looked up or created, not while it is checked.
type window struct {
	mu sync.Mutex

	// Sliding window state: time-ordered (t, cost) pairs.
	entries []entry

	// Fixed window state.
	windowStart time.Time
	count       int

	lastTouched time.Time
}

type entry struct {
	t    time.Time
	cost int
}

// Option configures a Limiter at construction.
type Option func(*Limiter)

// WithSweep overrides the default sweep interval and max idle duration.
func WithSweep(interval, maxIdle time.Duration) Option {
	return func(l *Limiter) {
		l.sweepInterval = interval
		l.maxIdle = maxIdle
	}
}

// WithLogger attaches a logger for sweep diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithAllowlist seeds the set of identities that bypass all checks.
func WithAllowlist(identities []string) Option {
	return func(l *Limiter) {
		for _, id := range identities {
			l.allowlist[id] = struct{}{}
		}
	}
}

// New creates a Limiter. globalCfg is applied to the per-identity global
// window evaluated before any resource-specific check.
func New(globalCfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		globalCfg:     globalCfg,
		sweepInterval: 5 * time.Minute,
		maxIdle:       1 * time.Hour,
		stopCh:        make(chan struct{}),
		allowlist:     make(map[string]struct{}),
		logger:        slog.Default(),
	}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[key]*window)}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AllowIdentity adds identity to the bypass allowlist at runtime.
func (l *Limiter) AllowIdentity(identity string) {
	l.allowMu.Lock()
	defer l.allowMu.Unlock()
	l.allowlist[identity] = struct{}{}
}

func (l *Limiter) isAllowlisted(identity string) bool {
	l.allowMu.RLock()
	defer l.allowMu.RUnlock()
	_, ok := l.allowlist[identity]
	return ok
}

func (l *Limiter) shardFor(k key) *shard {
	h := xxhash.Sum64String(k.String())
	return l.shards[h%shardCount]
}

func (l *Limiter) windowFor(sh *shard, k key) *window {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	w, ok := sh.windows[k]
	if !ok {
		w = &window{}
		sh.windows[k] = w
	}
	return w
}

// Check performs the two-level global-then-resource rate limit check
// described by the engine's rate limiting contract: the per-identity
// global window is evaluated first; if the resource-specific window then
// denies, the global increment is rolled back.
func (l *Limiter) Check(ctx context.Context, identity, resource string, cfg Config) (Result, error) {
	if l.isAllowlisted(identity) || cfg.Allowlisted {
		return Result{Allowed: true, Remaining: -1, Limit: cfg.Limit}, nil
	}

	now := time.Now()
	cost := cfg.cost()

	globalKey := key{identity: identity, resource: globalResource}
	globalWin := l.windowFor(l.shardFor(globalKey), globalKey)

	globalResult, rollbackGlobal := checkAndApply(globalWin, l.globalCfg, cost, now)
	if !globalResult.Allowed {
		return globalResult, nil
	}

	resourceKey := key{identity: identity, resource: resource}
	resourceWin := l.windowFor(l.shardFor(resourceKey), resourceKey)

	resourceResult, _ := checkAndApply(resourceWin, cfg, cost, now)
	if !resourceResult.Allowed {
		rollbackGlobal()
		return resourceResult, nil
	}

	return resourceResult, nil
}

// checkAndApply runs the configured algorithm against w, applying the
// increment when allowed, and returns a rollback func that undoes the
// increment (used for the global window when the resource check denies).
func checkAndApply(w *window, cfg Config, cost int, now time.Time) (Result, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastTouched = now

	if cfg.mode() == ModeFixed {
		return checkFixed(w, cfg, cost, now)
	}
	return checkSliding(w, cfg, cost, now)
}

func checkSliding(w *window, cfg Config, cost int, now time.Time) (Result, func()) {
	cutoff := now.Add(-cfg.Duration)
	kept := w.entries[:0]
	for _, e := range w.entries {
		if e.t.After(cutoff) {
			kept = append(kept, e)
		}
	}
	w.entries = kept

	used := 0
	earliest := now
	for i, e := range w.entries {
		used += e.cost
		if i == 0 {
			earliest = e.t
		}
	}

	if used+cost > cfg.Limit {
		resetsAt := earliest.Add(cfg.Duration)
		return Result{
			Allowed:    false,
			Remaining:  max0(cfg.Limit - used),
			Limit:      cfg.Limit,
			ResetsAt:   resetsAt,
			RetryAfter: max0Duration(resetsAt.Sub(now)),
			Reason:     "rate limit exceeded",
		}, func() {}
	}

	w.entries = append(w.entries, entry{t: now, cost: cost})

	rolledBack := false
	rollback := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if rolledBack {
			return
		}
		rolledBack = true
		for i := len(w.entries) - 1; i >= 0; i-- {
			if w.entries[i].t.Equal(now) && w.entries[i].cost == cost {
				w.entries = append(w.entries[:i], w.entries[i+1:]...)
				return
			}
		}
	}

	return Result{
		Allowed:   true,
		Remaining: max0(cfg.Limit - (used + cost)),
		Limit:     cfg.Limit,
		ResetsAt:  now.Add(cfg.Duration),
	}, rollback
}

func checkFixed(w *window, cfg Config, cost int, now time.Time) (Result, func()) {
	if w.windowStart.IsZero() || now.Sub(w.windowStart) >= cfg.Duration {
		w.windowStart = now
		w.count = 0
	}

	if w.count+cost > cfg.Limit {
		resetsAt := w.windowStart.Add(cfg.Duration)
		return Result{
			Allowed:    false,
			Remaining:  max0(cfg.Limit - w.count),
			Limit:      cfg.Limit,
			ResetsAt:   resetsAt,
			RetryAfter: max0Duration(resetsAt.Sub(now)),
			Reason:     "rate limit exceeded",
		}, func() {}
	}

	w.count += cost
	rolledBack := false
	rollback := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !rolledBack {
			w.count -= cost
			rolledBack = true
		}
	}

	return Result{
		Allowed:   true,
		Remaining: max0(cfg.Limit - w.count),
		Limit:     cfg.Limit,
		ResetsAt:  w.windowStart.Add(cfg.Duration),
	}, rollback
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func max0Duration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// StartSweep launches the background goroutine that removes windows
// untouched for more than maxIdle, every sweepInterval. Stops when ctx is
// cancelled or Stop is called.
func (l *Limiter) StartSweep(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopCh:
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

func (l *Limiter) sweep() {
	cutoff := time.Now().Add(-l.maxIdle)
	removed := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		for k, w := range sh.windows {
			w.mu.Lock()
			stale := w.lastTouched.Before(cutoff)
			w.mu.Unlock()
			if stale {
				delete(sh.windows, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 && l.logger != nil {
		l.logger.Debug("rate limiter sweep completed", "removed_windows", removed)
	}
}

// Stop halts the sweep goroutine and waits for it to exit. Safe to call
// multiple times.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
	l.wg.Wait()
}

// Size returns the total number of tracked windows, for tests and metrics.
func (l *Limiter) Size() int {
	total := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		total += len(sh.windows)
		sh.mu.Unlock()
	}
	return total
}
