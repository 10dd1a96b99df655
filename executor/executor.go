// Package executor implements the Executor: the orchestrator that admits a
// request, classifies it, drives the bounded Router/Invoker retry loop, and
// falls open to a fallback model on exhaustion. Grounded almost line for
// line on the Python original's CompletionsWrapper.create
// (original_source/.../smart_client.go), restructured around the teacher's
// decorator-free call shape (agentflow/llm/resilient_provider.go) rather
// than the original's provider-decorator pattern.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/CoReason-AI/coreason-arbitrage/arberrors"
	"github.com/CoReason-AI/coreason-arbitrage/audit"
	"github.com/CoReason-AI/coreason-arbitrage/budget"
	"github.com/CoReason-AI/coreason-arbitrage/gatekeeper"
	"github.com/CoReason-AI/coreason-arbitrage/internal/metrics"
	"github.com/CoReason-AI/coreason-arbitrage/model"
)

// MaxAttempts is the default bound on the Router/Invoker retry loop before
// fail-open, used when New is not given WithMaxAttempts.
const MaxAttempts = 3

var tracer = otel.Tracer("github.com/CoReason-AI/coreason-arbitrage/executor")

// defaultFallbackModel is used when FALLBACK_MODEL is unset.
const defaultFallbackModel = "azure/gpt-4o"

// fallbackCostPer1kInput and fallbackCostPer1kOutput price the ad-hoc
// fail-open model definition.
const (
	fallbackCostPer1kInput  = 0.005
	fallbackCostPer1kOutput = 0.015
)

// HealthTracker is the subset of circuitbreaker.Tracker the Executor needs.
type HealthTracker interface {
	RecordSuccess(provider string)
	RecordFailure(provider string)
	IsHealthy(provider string) bool
}

// Router is the subset of router.Router the Executor needs.
type Router interface {
	Route(ctx context.Context, rc model.RoutingContext, userID string, excludedProviders map[string]struct{}) (model.Definition, error)
}

// Invoker is the subset of invoker.Invoker the Executor needs.
type Invoker interface {
	Invoke(ctx context.Context, def model.Definition, messages []model.Message) (*model.Response, error)
}

// Classifier is the subset of gatekeeper.Classifier the Executor needs.
type Classifier interface {
	Classify(text string) model.RoutingContext
}

// Executor is stateless per invocation: instances are safe to share across
// concurrent requests, provided the Router and Health Tracker they wrap are
// (they are, by construction).
type Executor struct {
	router        Router
	tracker       HealthTracker
	invoker       Invoker
	classifier    Classifier
	budgetClient  budget.Client
	auditClient   audit.Client
	metrics       *metrics.Collector
	logger        *zap.Logger
	fallbackModel string
	maxAttempts   int
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithBudget attaches the Budget collaborator. Admission is skipped if unset.
func WithBudget(c budget.Client) Option { return func(e *Executor) { e.budgetClient = c } }

// WithAudit attaches the Audit collaborator. Logging is skipped if unset.
func WithAudit(c audit.Client) Option { return func(e *Executor) { e.auditClient = c } }

// WithFallbackModel overrides the fail-open model id, bypassing the
// FALLBACK_MODEL environment variable. cmd/gateway uses it to pass the
// configured fallback model.
func WithFallbackModel(id string) Option { return func(e *Executor) { e.fallbackModel = id } }

// WithMaxAttempts overrides the default MaxAttempts bound on the Router/
// Invoker retry loop before fail-open. Values <= 0 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithMetrics attaches a Collector to record route decisions, retry
// attempts, fail-opens, request duration and circuit-breaker state.
// Observation is skipped if unset.
func WithMetrics(c *metrics.Collector) Option { return func(e *Executor) { e.metrics = c } }

// New creates an Executor over its required collaborators (router, health
// tracker, invoker, classifier) plus optional ones (budget, audit, metrics)
// via Option.
func New(r Router, tracker HealthTracker, inv Invoker, classifier Classifier, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		router:        r,
		tracker:       tracker,
		invoker:       inv,
		classifier:    classifier,
		logger:        logger,
		fallbackModel: fallbackModelFromEnv(),
		maxAttempts:   MaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func fallbackModelFromEnv() string {
	if v := os.Getenv("FALLBACK_MODEL"); v != "" {
		return v
	}
	return defaultFallbackModel
}

// Create runs the full ADMIT -> CLASSIFY -> (ROUTE -> INVOKE)* -> FAIL_OPEN
// state machine for one request. A context cancelled or timed out at any
// point after admission skips all subsequent retries and the fail-open
// attempt, surfacing KindCancelled instead.
func (e *Executor) Create(ctx context.Context, messages []model.Message, userID string) (*model.Response, error) {
	traceID := uuid.NewString()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "Executor.Create",
		trace.WithAttributes(
			attribute.String("trace_id", traceID),
			attribute.String("user_id", userID),
		),
	)
	defer span.End()

	log := e.logger.With(zap.String("trace_id", traceID), zap.String("user_id", userID))

	outcome := "other_failure"
	defer func() {
		if e.metrics != nil {
			e.metrics.ObserveRequestDuration(outcome, time.Since(start).Seconds())
		}
	}()

	finish := func(resp *model.Response, err error) (*model.Response, error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			outcome = "success"
			span.SetStatus(codes.Ok, "")
		}
		return resp, err
	}

	if err := e.admit(ctx, userID, log); err != nil {
		outcome = "admission_denied"
		return finish(nil, err)
	}

	text, _ := model.LastUserMessage(messages)
	rc := e.classifier.Classify(text)

	excluded := make(map[string]struct{})
	var lastErr error

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if cancelErr := cancellationError(ctx); cancelErr != nil {
			log.Debug("request cancelled, skipping remaining retries", zap.Int("attempt", attempt))
			outcome = "cancelled"
			return finish(nil, cancelErr)
		}

		def, err := e.router.Route(ctx, rc, userID, excluded)
		if err != nil {
			lastErr = err
			if e.metrics != nil {
				e.metrics.ObserveRetryAttempt("no_healthy_model")
			}
			log.Debug("router found no candidate", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		resp, invokeErr := e.invoker.Invoke(ctx, def, messages)
		if invokeErr == nil {
			e.tracker.RecordSuccess(def.Provider)
			if e.metrics != nil {
				e.metrics.ObserveRetryAttempt("success")
				e.metrics.SetCircuitBreakerState(def.Provider, !e.tracker.IsHealthy(def.Provider))
			}
			e.account(ctx, userID, def, resp, log)
			return finish(resp, nil)
		}

		kind := arberrors.KindOf(invokeErr)
		if kind == arberrors.KindCancelled {
			log.Debug("request cancelled mid-call, skipping remaining retries", zap.Int("attempt", attempt))
			outcome = "cancelled"
			return finish(nil, invokeErr)
		}

		lastErr = invokeErr
		if arberrors.IsAvailability(kind) {
			e.tracker.RecordFailure(def.Provider)
			excluded[def.Provider] = struct{}{}
			if e.metrics != nil {
				e.metrics.ObserveRetryAttempt("retriable_failure")
				e.metrics.SetCircuitBreakerState(def.Provider, !e.tracker.IsHealthy(def.Provider))
			}
		} else if e.metrics != nil {
			e.metrics.ObserveRetryAttempt("other_failure")
		}
		log.Debug("invoker failed", zap.Int("attempt", attempt), zap.String("provider", def.Provider), zap.Error(invokeErr))
	}

	if cancelErr := cancellationError(ctx); cancelErr != nil {
		log.Debug("request cancelled before fail-open")
		outcome = "cancelled"
		return finish(nil, cancelErr)
	}

	resp, err := e.failOpen(ctx, messages, userID, lastErr, log)
	return finish(resp, err)
}

// cancellationError reports ctx's cancellation as a KindCancelled
// *arberrors.Error, distinguishing an explicit cancel from an elapsed
// deadline, or nil if ctx is still live.
func cancellationError(ctx context.Context) *arberrors.Error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return arberrors.Wrap(arberrors.KindCancelled, "request deadline exceeded", err)
	}
	return arberrors.Wrap(arberrors.KindCancelled, "request cancelled", err)
}

// admit implements phase 1. It is the only fail-closed path in the system.
func (e *Executor) admit(ctx context.Context, userID string, log *zap.Logger) error {
	if e.budgetClient == nil {
		return nil
	}
	allowed, err := e.budgetClient.CheckAllowance(ctx, userID)
	if err != nil {
		log.Warn("budget admission check raised, failing closed", zap.Error(err))
		return arberrors.Wrap(arberrors.KindBudgetUnavailable, "budget admission check failed", err)
	}
	if !allowed {
		return arberrors.New(arberrors.KindBudgetExceeded, "budget exceeded for user")
	}
	return nil
}

// account performs the best-effort accounting of phase 3(b): Audit logging
// and Budget deduction, both swallowed on error since the response has
// already been produced and must still be returned.
func (e *Executor) account(ctx context.Context, userID string, def model.Definition, resp *model.Response, log *zap.Logger) {
	cost := model.Cost(def, resp.Usage)

	if e.auditClient != nil {
		if err := e.auditClient.LogTransaction(ctx, userID, def.ID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, cost); err != nil {
			log.Warn("audit logging failed", zap.Error(err))
		}
	}
	if e.budgetClient != nil {
		if err := e.budgetClient.DeductFunds(ctx, userID, cost); err != nil {
			log.Warn("budget deduction failed", zap.Error(err))
		}
	}
}

// failOpen implements phase 4: a single terminal attempt against the
// configured fallback model.
func (e *Executor) failOpen(ctx context.Context, messages []model.Message, userID string, lastErr error, log *zap.Logger) (*model.Response, error) {
	def := model.Definition{
		ID:              e.fallbackModel,
		Provider:        "failover",
		Tier:            model.TierSmart,
		CostPer1kInput:  fallbackCostPer1kInput,
		CostPer1kOutput: fallbackCostPer1kOutput,
		IsHealthy:       true,
	}

	resp, err := e.invoker.Invoke(ctx, def, messages)
	if err == nil {
		if e.metrics != nil {
			e.metrics.ObserveFailOpen("success")
		}
		e.account(ctx, userID, def, resp, log)
		return resp, nil
	}
	if e.metrics != nil {
		e.metrics.ObserveFailOpen("failure")
	}

	failOpenErr := arberrors.Wrap(arberrors.KindFailOpen, "fail-open attempt failed", err)
	if lastErr != nil {
		// Surface the retry loop's last error as the primary failure, with the
		// fail-open error chained on for observability.
		return nil, fmt.Errorf("%w (fail-open also failed: %w)", lastErr, failOpenErr)
	}
	return nil, failOpenErr
}

var _ Classifier = (*gatekeeper.Classifier)(nil)
