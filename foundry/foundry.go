// Package foundry defines the Model Foundry collaborator contract and a
// reference in-memory implementation. Grounded on the Python original's
// ModelFoundryClient protocol (original_source/.../interfaces.go): a single
// read operation the gateway uses to bulk-load custom models into the
// Registry, additively.
package foundry

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/CoReason-AI/coreason-arbitrage/model"
)

// Client is the collaborator contract for discovering custom models beyond
// the static catalog. A nil domain lists every known custom model. Nothing
// in this module calls ListCustomModels: cmd/gateway fills the Registry from
// configuration only.
type Client interface {
	ListCustomModels(ctx context.Context, domain *string) ([]model.Definition, error)
}

// InMemoryClient is a reference Client backed by a fixed, in-process catalog
// of custom models. It never shrinks: Load only adds or replaces entries, it
// never removes a model that is no longer present in a later Load call,
// matching the Registry's own additive bulk-load semantics.
type InMemoryClient struct {
	mu     sync.RWMutex
	models map[string]model.Definition
	logger *zap.Logger
}

// NewInMemoryClient creates an empty InMemoryClient.
func NewInMemoryClient(logger *zap.Logger) *InMemoryClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryClient{models: make(map[string]model.Definition), logger: logger}
}

// Load registers defs with the foundry's own catalog, additively.
func (c *InMemoryClient) Load(defs ...model.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range defs {
		c.models[d.ID] = d
	}
}

// ListCustomModels returns a snapshot of registered custom models, filtered
// by domain (case-sensitive match on model.Definition.Domain) when domain is
// non-nil.
func (c *InMemoryClient) ListCustomModels(ctx context.Context, domain *string) ([]model.Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Definition, 0, len(c.models))
	for _, d := range c.models {
		if domain != nil && d.Domain != *domain {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
