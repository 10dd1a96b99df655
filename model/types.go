// Package model defines the core data types shared across the arbitrage
// gateway: models, tiers, routing context, and the message/response shapes
// exchanged with upstream LLM providers.
package model

import (
	"fmt"
	"time"
)

// Tier is an ordered capability level. Higher tiers are strictly more
// capable (and more expensive) than lower ones.
type Tier int

const (
	TierFast Tier = iota + 1
	TierSmart
	TierReasoning
)

func (t Tier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierSmart:
		return "smart"
	case TierReasoning:
		return "reasoning"
	default:
		return "unknown"
	}
}

// Definition is an immutable-by-convention model record held by the
// Registry. Callers must not mutate a Definition obtained from a Registry
// snapshot.
type Definition struct {
	ID              string
	Provider        string
	Tier            Tier
	CostPer1kInput  float64
	CostPer1kOutput float64
	IsHealthy       bool
	Domain          string
}

// Validate checks the invariants required before a Definition can be
// registered: non-empty id/provider, a known tier, non-negative costs.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("model: id must not be empty")
	}
	if d.Provider == "" {
		return fmt.Errorf("model: provider must not be empty")
	}
	switch d.Tier {
	case TierFast, TierSmart, TierReasoning:
	default:
		return fmt.Errorf("model: unknown tier %d", d.Tier)
	}
	if d.CostPer1kInput < 0 || d.CostPer1kOutput < 0 {
		return fmt.Errorf("model: costs must be non-negative")
	}
	return nil
}

// RoutingContext is the Classifier's verdict on a prompt.
type RoutingContext struct {
	Complexity float64
	Domain     string
}

// NewRoutingContext constructs a RoutingContext, clamping complexity into
// [0,1] as required by the data model invariant.
func NewRoutingContext(complexity float64, domain string) RoutingContext {
	if complexity < 0 {
		complexity = 0
	}
	if complexity > 1 {
		complexity = 1
	}
	return RoutingContext{Complexity: complexity, Domain: domain}
}

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
	Name    string
}

// Usage reports token counts for a single completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is what the upstream invoker returns on success.
type Response struct {
	ID        string
	ModelID   string
	Provider  string
	Content   string
	Usage     Usage
	CreatedAt time.Time
}

// LastUserMessage returns the content of the last message with RoleUser,
// and false if there is none.
func LastUserMessage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content, true
		}
	}
	return "", false
}

// Cost computes the cost of a completion as a pure function of the model's
// per-1k prices and the usage reported for the call. It is never stored on
// the model's own state.
func Cost(d Definition, usage Usage) float64 {
	input := float64(usage.PromptTokens) / 1000 * d.CostPer1kInput
	output := float64(usage.CompletionTokens) / 1000 * d.CostPer1kOutput
	return input + output
}
