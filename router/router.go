// Package router implements the Router: a pure selection function from a
// routing context, user id and per-request exclusion set to a chosen model.
// Grounded on the Python original's Router.route
// (original_source/.../router.go) for the exact tier/economy/domain
// selection steps, and on the teacher's ProviderRegistry.List filtering
// idiom (agentflow/llm/registry.go) for how candidate lists are built.
package router

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/CoReason-AI/coreason-arbitrage/arberrors"
	"github.com/CoReason-AI/coreason-arbitrage/budget"
	"github.com/CoReason-AI/coreason-arbitrage/internal/metrics"
	"github.com/CoReason-AI/coreason-arbitrage/model"
)

// economyThreshold is the remaining-budget fraction below which a SMART
// target is downgraded to FAST. REASONING is never downgraded.
const economyThreshold = 0.10

// HealthTracker is the subset of circuitbreaker.Tracker the Router needs.
// Declared here, not imported from circuitbreaker, so the Router depends on
// a capability rather than a concrete package.
type HealthTracker interface {
	IsHealthy(provider string) bool
}

// Registry is the subset of registry.Registry the Router needs.
type Registry interface {
	List(tier *model.Tier, domain *string) []model.Definition
}

// Router selects a model for a routing context. It holds no per-request
// state: every field is a long-lived collaborator shared across requests.
type Router struct {
	registry Registry
	tracker  HealthTracker
	budget   budget.Client
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// Option configures a Router at construction time.
type Option func(*Router)

// WithMetrics attaches a Collector to record the tier/provider of every
// successful route decision. Observation is skipped if unset.
func WithMetrics(c *metrics.Collector) Option { return func(r *Router) { r.metrics = c } }

// New creates a Router over the given collaborators. budgetClient may be nil
// only if economy-mode downgrade is not desired; spec semantics require it,
// so passing nil disables step 2 rather than panicking.
func New(reg Registry, tracker HealthTracker, budgetClient budget.Client, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{registry: reg, tracker: tracker, budget: budgetClient, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route picks a model for ctx, excluding any provider in excludedProviders.
// It returns an *arberrors.Error with Kind KindNoHealthyModel when no
// candidate survives filtering.
func (r *Router) Route(ctx context.Context, rc model.RoutingContext, userID string, excludedProviders map[string]struct{}) (model.Definition, error) {
	tier := baselineTier(rc)
	tier = r.applyEconomyDowngrade(ctx, userID, tier)

	if rc.Domain != "" {
		if def, ok := r.selectDomainPriority(rc.Domain, tier, excludedProviders); ok {
			r.observeDecision(def)
			return def, nil
		}
	}

	def, err := r.selectGeneric(tier, excludedProviders)
	if err == nil {
		r.observeDecision(def)
	}
	return def, err
}

func (r *Router) observeDecision(def model.Definition) {
	if r.metrics != nil {
		r.metrics.ObserveRouteDecision(def.Tier.String(), def.Provider)
	}
}

// baselineTier implements spec step 1.
func baselineTier(rc model.RoutingContext) model.Tier {
	if rc.Complexity >= 0.8 || strings.ToLower(rc.Domain) == "safety_critical" {
		return model.TierReasoning
	}
	if rc.Complexity >= 0.4 {
		return model.TierSmart
	}
	return model.TierFast
}

// applyEconomyDowngrade implements spec step 2: a failure or absence of a
// Budget collaborator fails open, leaving tier unchanged.
func (r *Router) applyEconomyDowngrade(ctx context.Context, userID string, tier model.Tier) model.Tier {
	if r.budget == nil || tier != model.TierSmart {
		return tier
	}
	fraction, err := r.budget.GetRemainingBudgetPercentage(ctx, userID)
	if err != nil {
		r.logger.Warn("router: budget read failed, proceeding at baseline tier", zap.Error(err))
		return tier
	}
	if fraction < economyThreshold {
		return model.TierFast
	}
	return tier
}

// selectDomainPriority implements spec step 3.
func (r *Router) selectDomainPriority(domain string, tier model.Tier, excluded map[string]struct{}) (model.Definition, bool) {
	candidates := r.filterAdmitted(r.registry.List(nil, &domain), excluded)
	if len(candidates) == 0 {
		return model.Definition{}, false
	}
	for _, d := range candidates {
		if d.Tier == tier {
			return d, true
		}
	}
	return candidates[0], true
}

// selectGeneric implements spec step 4.
func (r *Router) selectGeneric(tier model.Tier, excluded map[string]struct{}) (model.Definition, error) {
	candidates := r.filterAdmitted(r.registry.List(&tier, nil), excluded)
	if len(candidates) == 0 {
		return model.Definition{}, arberrors.New(arberrors.KindNoHealthyModel, "no healthy model for tier "+tier.String())
	}
	return candidates[0], nil
}

// filterAdmitted applies static health, the exclusion set, and dynamic
// Health Tracker health, in that order, preserving input order.
func (r *Router) filterAdmitted(defs []model.Definition, excluded map[string]struct{}) []model.Definition {
	out := make([]model.Definition, 0, len(defs))
	for _, d := range defs {
		if !d.IsHealthy {
			continue
		}
		if _, excludedProvider := excluded[d.Provider]; excludedProvider {
			continue
		}
		if r.tracker != nil && !r.tracker.IsHealthy(d.Provider) {
			continue
		}
		out = append(out, d)
	}
	return out
}
