// Package registry holds the in-memory catalog of candidate models the
// Router selects from. It is grounded on the teacher's ProviderRegistry
// (agentflow/llm/registry.go), generalized from "provider name -> Provider"
// to "model id -> model.Definition" with tier/domain filtering.
package registry

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/CoReason-AI/coreason-arbitrage/model"
)

// Registry is a thread-safe catalog of model.Definition keyed by model id.
// A Registry never shrinks implicitly: bulk loads from the foundry
// collaborator only add/replace entries, they never remove models absent
// from a new snapshot.
type Registry struct {
	mu     sync.RWMutex
	models map[string]model.Definition
	order  []string // insertion order, for List's deterministic tie-break
	logger *zap.Logger
}

// New creates an empty Registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		models: make(map[string]model.Definition),
		logger: logger,
	}
}

// Register upserts a model by id. Re-registering an existing id replaces
// the definition in place, without disturbing its position in the
// insertion-order snapshot.
func (r *Registry) Register(def model.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[def.ID]; !exists {
		r.order = append(r.order, def.ID)
	}
	r.models[def.ID] = def
	r.logger.Debug("registered model", zap.String("id", def.ID), zap.String("tier", def.Tier.String()))
	return nil
}

// RegisterMany is a convenience wrapper for bulk loads (e.g. from the
// model-foundry collaborator at configuration time).
func (r *Registry) RegisterMany(defs []model.Definition) error {
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a model by id.
func (r *Registry) Get(id string) (model.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.models[id]
	return d, ok
}

// List returns a snapshot of registered models, optionally filtered by
// tier and/or domain (ANDed). Domain matches are case-insensitive; a model
// with no domain set never matches a domain filter. The snapshot preserves
// insertion order, which the Router relies on as its deterministic
// tie-break ("first" means first in this order).
func (r *Registry) List(tier *model.Tier, domain *string) []model.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var wantDomain string
	if domain != nil {
		wantDomain = strings.ToLower(*domain)
	}

	out := make([]model.Definition, 0, len(r.order))
	for _, id := range r.order {
		d, ok := r.models[id]
		if !ok {
			continue
		}
		if tier != nil && d.Tier != *tier {
			continue
		}
		if domain != nil {
			if d.Domain == "" || strings.ToLower(d.Domain) != wantDomain {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// Clear empties the registry. Test affordance only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[string]model.Definition)
	r.order = nil
}
