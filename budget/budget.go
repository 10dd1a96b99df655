// Package budget defines the Budget collaborator contract and a reference
// in-memory implementation. Grounded on the teacher's TokenBudgetManager
// (agentflow/llm/budget/token_budget.go) for the windowed-counter/atomic
// pattern, and on the Python original's BudgetClient protocol
// (original_source/.../interfaces.go) for the three operations the gateway
// actually calls.
package budget

import (
	"context"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the collaborator the Executor consults for admission and
// accounting. A user_id denied by CheckAllowance must not be routed at all;
// everything else in the gateway is fail-open with respect to this
// collaborator.
type Client interface {
	// CheckAllowance reports whether userID may be admitted at all. An error
	// here is the gateway's one fail-closed path.
	CheckAllowance(ctx context.Context, userID string) (bool, error)
	// GetRemainingBudgetPercentage reports the fraction (0..1) of userID's
	// budget left. Used by the Router's economy-mode downgrade; an error is
	// treated as "no information" and the Router fails open.
	GetRemainingBudgetPercentage(ctx context.Context, userID string) (float64, error)
	// DeductFunds records spend against userID after a successful call. Its
	// errors are swallowed by the Executor: accounting failures never unwind
	// a response that already reached the caller.
	DeductFunds(ctx context.Context, userID string, amount float64) error
}

// userLedger is the private per-user state the InMemoryClient tracks.
type userLedger struct {
	dayStart   time.Time
	spentToday float64
	limiter    *rate.Limiter
}

// InMemoryClient is a reference Client suitable for tests, demos and
// single-process deployments. It is not a distributed budget store: state is
// lost on restart and not shared across processes.
type InMemoryClient struct {
	mu         sync.Mutex
	ledgers    map[string]*userLedger
	dailyLimit float64
	rps        rate.Limit
	burst      int
	encoding   *tiktoken.Tiktoken
	logger     *zap.Logger
}

// Option configures an InMemoryClient at construction time.
type Option func(*InMemoryClient)

// WithDailyLimit overrides the default per-user daily spend cap.
func WithDailyLimit(limit float64) Option {
	return func(c *InMemoryClient) { c.dailyLimit = limit }
}

// WithRateLimit overrides the default per-user request throttle.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *InMemoryClient) {
		c.rps = rate.Limit(rps)
		c.burst = burst
	}
}

// NewInMemoryClient creates an InMemoryClient with a $50/day default cap and
// a 5 req/s per-user throttle. The tiktoken-go encoding is used only by
// EstimateTokens, a pre-flight cost-estimation helper; admission and
// deduction themselves do not require it.
func NewInMemoryClient(logger *zap.Logger, opts ...Option) *InMemoryClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("budget: failed to load tiktoken encoding, estimates disabled", zap.Error(err))
	}
	c := &InMemoryClient{
		ledgers:    make(map[string]*userLedger),
		dailyLimit: 50.0,
		rps:        5,
		burst:      10,
		encoding:   enc,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EstimateTokens returns tiktoken-go's count for text under the cl100k_base
// encoding, or 0 if the encoding failed to load.
func (c *InMemoryClient) EstimateTokens(text string) int {
	if c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// CheckAllowance admits userID if their per-second throttle has capacity and
// today's spend is below the daily limit.
func (c *InMemoryClient) CheckAllowance(ctx context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.ledgerFor(userID)
	if !l.limiter.Allow() {
		return false, nil
	}
	return l.spentToday < c.dailyLimit, nil
}

// GetRemainingBudgetPercentage returns the fraction of userID's daily limit
// left, clamped to [0,1].
func (c *InMemoryClient) GetRemainingBudgetPercentage(ctx context.Context, userID string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.ledgerFor(userID)
	if c.dailyLimit <= 0 {
		return 0, nil
	}
	remaining := (c.dailyLimit - l.spentToday) / c.dailyLimit
	if remaining < 0 {
		remaining = 0
	}
	if remaining > 1 {
		remaining = 1
	}
	return remaining, nil
}

// DeductFunds records amount against userID's running daily total.
func (c *InMemoryClient) DeductFunds(ctx context.Context, userID string, amount float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.ledgerFor(userID)
	l.spentToday += amount
	return nil
}

// ledgerFor returns userID's ledger, rolling it over to a fresh day and
// creating it lazily on first use. Callers must hold c.mu.
func (c *InMemoryClient) ledgerFor(userID string) *userLedger {
	l, ok := c.ledgers[userID]
	now := time.Now()
	if !ok {
		l = &userLedger{
			dayStart: startOfDay(now),
			limiter:  rate.NewLimiter(c.rps, c.burst),
		}
		c.ledgers[userID] = l
		return l
	}
	if now.Sub(l.dayStart) >= 24*time.Hour {
		l.dayStart = startOfDay(now)
		l.spentToday = 0
	}
	return l
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
