// Package circuitbreaker implements the per-provider Health Tracker: a
// rolling-window failure counter with a cooldown, grounded on the teacher's
// breaker (agentflow/llm/circuitbreaker/breaker.go) and on the Python
// original's LoadBalancer (original_source/.../load_balancer.go). Unlike
// the teacher's generic three-state breaker, this one has no half-open
// probe budget: re-entry happens lazily, the next time a request is
// admitted once the cooldown has elapsed.
package circuitbreaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// FailureWindow bounds how far back failures are counted.
	FailureWindow = 60 * time.Second
	// FailureThreshold is exceeded, not merely met, to open the breaker.
	FailureThreshold = 3
	// Cooldown is how long a provider stays open once tripped.
	Cooldown = 300 * time.Second
)

// entry is the private per-provider state. Never touched by anything but
// the Tracker that owns it.
type entry struct {
	failures      []time.Time
	cooldownUntil time.Time
}

// Tracker is a thread-safe circuit breaker keyed by provider name. Every
// operation is atomic end-to-end: pruning the window, appending a failure,
// evaluating the threshold and setting cooldown form a single critical
// section per call.
type Tracker struct {
	mu               sync.Mutex
	entries          map[string]*entry
	failureWindow    time.Duration
	failureThreshold int
	cooldown         time.Duration
	logger           *zap.Logger
}

// Option configures a Tracker at construction time.
type Option func(*Tracker)

// WithWindow overrides the default failure window (test affordance).
func WithWindow(d time.Duration) Option { return func(t *Tracker) { t.failureWindow = d } }

// WithThreshold overrides the default failure threshold (test affordance).
func WithThreshold(n int) Option { return func(t *Tracker) { t.failureThreshold = n } }

// WithCooldown overrides the default cooldown (test affordance).
func WithCooldown(d time.Duration) Option { return func(t *Tracker) { t.cooldown = d } }

// New creates a Tracker with the default window/threshold/cooldown from
// spec §4.B, optionally overridden for testing via Option.
func New(logger *zap.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		entries:          make(map[string]*entry),
		failureWindow:    FailureWindow,
		failureThreshold: FailureThreshold,
		cooldown:         Cooldown,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordFailure appends the current instant to provider's failure window,
// prunes stale entries, and opens the breaker (sets cooldownUntil) if the
// remaining count strictly exceeds the threshold.
func (t *Tracker) RecordFailure(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	e := t.entryFor(provider)
	e.failures = prune(e.failures, now, t.failureWindow)
	e.failures = append(e.failures, now)

	if len(e.failures) > t.failureThreshold {
		e.cooldownUntil = now.Add(t.cooldown)
		t.logger.Warn("circuit breaker open",
			zap.String("provider", provider),
			zap.Int("failures", len(e.failures)),
			zap.Time("cooldown_until", e.cooldownUntil),
		)
	}
}

// RecordSuccess clears provider's failure history and closes its breaker
// immediately.
func (t *Tracker) RecordSuccess(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[provider]
	if !ok {
		return
	}
	e.failures = nil
	e.cooldownUntil = time.Time{}
}

// IsHealthy reports whether provider is currently admitted. Unknown
// providers are healthy. A provider whose cooldown has elapsed is lazily
// closed here and reported healthy.
func (t *Tracker) IsHealthy(provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[provider]
	if !ok {
		return true
	}
	if e.cooldownUntil.IsZero() {
		return true
	}
	if time.Now().Before(e.cooldownUntil) {
		return false
	}
	// Cooldown expired: lazily close the breaker. Failure history is left
	// alone; it ages out naturally or is cleared on the next success.
	e.cooldownUntil = time.Time{}
	return true
}

func (t *Tracker) entryFor(provider string) *entry {
	e, ok := t.entries[provider]
	if !ok {
		e = &entry{}
		t.entries[provider] = e
	}
	return e
}

func prune(failures []time.Time, now time.Time, window time.Duration) []time.Time {
	cut := 0
	for cut < len(failures) && now.Sub(failures[cut]) > window {
		cut++
	}
	if cut == 0 {
		return failures
	}
	return append([]time.Time(nil), failures[cut:]...)
}
