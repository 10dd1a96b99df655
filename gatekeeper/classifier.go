// Package gatekeeper implements the prompt Classifier: a pure, stateless
// heuristic over prompt text that produces a model.RoutingContext. Grounded
// on the Python original's Gatekeeper
// (original_source/.../gatekeeper.go) and on the teacher's preference for
// precompiled regexes over ad-hoc scanning (agentflow/providers/utils.go).
package gatekeeper

import (
	"regexp"

	"github.com/CoReason-AI/coreason-arbitrage/model"
)

const complexityThresholdLength = 2000

const (
	highComplexity = 0.9
	lowComplexity  = 0.1
)

var complexityKeywords = regexp.MustCompile(`(?i)\b(analyze|critique|reason)\b`)

// domainRule pairs a domain tag with the keywords that trigger it. Order
// matters: the first matching rule wins, so safety_critical must be
// checked before medical.
type domainRule struct {
	domain   string
	keywords *regexp.Regexp
}

var domainRules = []domainRule{
	{domain: "safety_critical", keywords: regexp.MustCompile(`(?i)\b(hazard|emergency|danger|immediate|adverse event)\b`)},
	{domain: "medical", keywords: regexp.MustCompile(`(?i)\b(clinical|dose)\b`)},
}

// Classifier maps prompt text to a routing context. It holds no state and
// is safe to share across goroutines and requests.
type Classifier struct{}

// New creates a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify is a pure, deterministic, referentially transparent function of
// text. Empty input yields {0.1, ""}.
func (c *Classifier) Classify(text string) model.RoutingContext {
	complexity := lowComplexity
	if len(text) > complexityThresholdLength || complexityKeywords.MatchString(text) {
		complexity = highComplexity
	}

	var domain string
	for _, rule := range domainRules {
		if rule.keywords.MatchString(text) {
			domain = rule.domain
			break
		}
	}

	return model.NewRoutingContext(complexity, domain)
}
