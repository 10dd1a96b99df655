// Package audit defines the Audit collaborator contract and a reference
// in-memory implementation. Grounded on the Python original's AuditClient
// protocol (original_source/.../interfaces.go): a single write-only
// operation, logged after a completion succeeds and never allowed to block
// or fail the request it describes.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client is the collaborator the Executor notifies after a successful
// completion. Callers always swallow its errors: auditing must never turn a
// successful response into a failed one.
type Client interface {
	LogTransaction(ctx context.Context, userID, modelID string, inputTokens, outputTokens int, cost float64) error
}

// Transaction is one recorded completion.
type Transaction struct {
	UserID       string
	ModelID      string
	InputTokens  int
	OutputTokens int
	Cost         float64
	RecordedAt   time.Time
}

// InMemoryClient is a reference Client that keeps transactions in a bounded
// ring buffer, suitable for tests and single-process demos.
type InMemoryClient struct {
	mu      sync.Mutex
	entries []Transaction
	cap     int
	logger  *zap.Logger
}

// NewInMemoryClient creates an InMemoryClient retaining at most capacity
// transactions (oldest dropped first). A non-positive capacity keeps
// everything.
func NewInMemoryClient(logger *zap.Logger, capacity int) *InMemoryClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryClient{cap: capacity, logger: logger}
}

// LogTransaction records the transaction and emits it at debug level.
func (c *InMemoryClient) LogTransaction(ctx context.Context, userID, modelID string, inputTokens, outputTokens int, cost float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := Transaction{
		UserID:       userID,
		ModelID:      modelID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		RecordedAt:   time.Now(),
	}
	c.entries = append(c.entries, tx)
	if c.cap > 0 && len(c.entries) > c.cap {
		c.entries = c.entries[len(c.entries)-c.cap:]
	}
	c.logger.Debug("transaction logged",
		zap.String("user_id", userID),
		zap.String("model_id", modelID),
		zap.Int("input_tokens", inputTokens),
		zap.Int("output_tokens", outputTokens),
		zap.Float64("cost", cost),
	)
	return nil
}

// Transactions returns a snapshot of recorded transactions, oldest first.
func (c *InMemoryClient) Transactions() []Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Transaction, len(c.entries))
	copy(out, c.entries)
	return out
}
