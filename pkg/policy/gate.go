package policy

import (
	"context"
	"log/slog"
	"sync"
)

// Source provides rule sets to the gate.
type Source interface {
	// LoadRules loads the complete rule set from the source.
	LoadRules(ctx context.Context) (*RuleSet, error)

	// Path describes the source location for logs and errors.
	Path() string
}

// Gate evaluates policy requests against a loaded rule set.
//
// Evaluation is pure with respect to in-memory state: the same request
// against the same rule set always yields the same decision, and
// evaluating has no side effects. The rule set may be reloaded at any
// time; each evaluation reads a consistent snapshot, so a reload is
// never observed mid-check by an in-flight request.
type Gate struct {
	source Source
	logger *slog.Logger

	// rulesMu protects rules for concurrent access. Reloads swap the
	// pointer atomically under the write lock.
	rulesMu sync.RWMutex
	rules   *RuleSet
}

// NewGate creates a gate and performs the initial rule load. A load or
// validation failure is returned as a *ConfigError and is fatal: the
// gate never starts without a valid rule set.
func NewGate(ctx context.Context, source Source, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gate{
		source: source,
		logger: logger.With("component", "policy.gate"),
	}

	if err := g.Reload(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Evaluate checks the request against the current rule set.
//
// Precedence: an explicit deny overrides any matching allow. Among
// matching rules with the winning effect, the most specific rule (the
// fewest wildcard fields) is reported as the matched rule. A request no
// rule matches is denied with an empty matched rule (default-deny).
func (g *Gate) Evaluate(req Request) Decision {
	g.rulesMu.RLock()
	rules := g.rules
	g.rulesMu.RUnlock()

	var (
		bestAllow     *Rule
		bestAllowSpec = -1
		bestDeny      *Rule
		bestDenySpec  = -1
	)

	for i := range rules.Rules {
		rule := &rules.Rules[i]
		if !rule.Matches(req) {
			continue
		}

		spec := rule.Specificity()
		switch rule.Effect {
		case EffectDeny:
			if spec > bestDenySpec {
				bestDeny, bestDenySpec = rule, spec
			}
		case EffectAllow:
			if spec > bestAllowSpec {
				bestAllow, bestAllowSpec = rule, spec
			}
		}
	}

	var decision Decision
	switch {
	case bestDeny != nil:
		decision = Decision{Allowed: false, MatchedRule: bestDeny.ID}
	case bestAllow != nil:
		decision = Decision{Allowed: true, MatchedRule: bestAllow.ID}
	default:
		decision = Decision{Allowed: false}
	}

	g.logger.Debug("policy request evaluated",
		"actor_id", req.ActorID,
		"role", req.Role,
		"action", req.Action,
		"resource", req.Resource,
		"allowed", decision.Allowed,
		"matched_rule", decision.MatchedRule,
	)

	return decision
}

// Reload loads the rule set from the source and swaps it in atomically.
// On failure the previous rule set (if any) stays in effect and the
// error is returned as a *ConfigError.
func (g *Gate) Reload(ctx context.Context) error {
	rules, err := g.source.LoadRules(ctx)
	if err != nil {
		return &ConfigError{Path: g.source.Path(), Cause: err}
	}

	if err := rules.Validate(); err != nil {
		return &ConfigError{Path: g.source.Path(), Cause: err}
	}

	g.rulesMu.Lock()
	g.rules = rules
	g.rulesMu.Unlock()

	g.logger.Info("policy rules loaded",
		"path", g.source.Path(),
		"version", rules.Version,
		"rule_count", len(rules.Rules),
	)

	return nil
}

// Rules returns a copy of the current rule set for introspection.
func (g *Gate) Rules() []Rule {
	g.rulesMu.RLock()
	defer g.rulesMu.RUnlock()

	out := make([]Rule, len(g.rules.Rules))
	copy(out, g.rules.Rules)
	return out
}
