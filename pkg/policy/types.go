package policy

import (
	"fmt"
	"strings"
)

// Effect is the outcome a rule prescribes when it matches a request.
type Effect string

const (
	// EffectAllow permits the request.
	EffectAllow Effect = "allow"

	// EffectDeny rejects the request. An explicit deny always overrides
	// any matching allow rule.
	EffectDeny Effect = "deny"
)

// Wildcard matches any value in a rule field. A trailing "*" matches any
// value with the preceding prefix (e.g. "route:intent:*").
const Wildcard = "*"

// Rule is a single subject/action/resource triple with an effect.
//
// Subject is matched against the requesting actor's role, or against the
// actor ID itself for per-actor rules. Action and Resource are matched
// against the request's action and resource. Each field supports the
// full wildcard "*" and trailing-prefix wildcards.
type Rule struct {
	// ID uniquely identifies the rule within the rule set. Reported in
	// decisions and audit records. Assigned positionally when omitted.
	ID string `yaml:"id"`

	// Subject is the role (or actor ID) the rule applies to.
	Subject string `yaml:"subject"`

	// Action is the operation being requested.
	Action string `yaml:"action"`

	// Resource is the target of the operation.
	Resource string `yaml:"resource"`

	// Effect is "allow" or "deny".
	Effect Effect `yaml:"effect"`
}

// Matches reports whether the rule applies to the request.
func (r *Rule) Matches(req Request) bool {
	if !matchField(r.Subject, req.Role) && r.Subject != req.ActorID {
		return false
	}
	return matchField(r.Action, req.Action) && matchField(r.Resource, req.Resource)
}

// Specificity scores how precisely the rule's fields match: 2 per exact
// field, 1 per prefix wildcard, 0 per full wildcard. Used to pick the
// reported rule when several rules with the same effect match.
func (r *Rule) Specificity() int {
	return fieldSpecificity(r.Subject) + fieldSpecificity(r.Action) + fieldSpecificity(r.Resource)
}

func matchField(pattern, value string) bool {
	if pattern == Wildcard {
		return true
	}
	if strings.HasSuffix(pattern, Wildcard) {
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, Wildcard))
	}
	return pattern == value
}

func fieldSpecificity(pattern string) int {
	switch {
	case pattern == Wildcard:
		return 0
	case strings.HasSuffix(pattern, Wildcard):
		return 1
	default:
		return 2
	}
}

// RuleSet is an immutable collection of rules loaded from a source.
type RuleSet struct {
	// Version is an optional rule set version tag carried into logs.
	Version string `yaml:"version"`

	// Rules are evaluated as a whole; ordering carries no precedence.
	Rules []Rule `yaml:"rules"`
}

// Validate checks structural integrity of the rule set and assigns
// positional IDs to rules that omit one.
func (rs *RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return &ValidationError{Errors: []string{"rule set contains no rules"}}
	}

	var errs []string
	seen := make(map[string]bool, len(rs.Rules))

	for i := range rs.Rules {
		rule := &rs.Rules[i]

		if rule.ID == "" {
			rule.ID = fmt.Sprintf("rule-%03d", i+1)
		}
		if seen[rule.ID] {
			errs = append(errs, fmt.Sprintf("duplicate rule id %q", rule.ID))
		}
		seen[rule.ID] = true

		if rule.Subject == "" {
			errs = append(errs, fmt.Sprintf("rule %q: subject is required", rule.ID))
		}
		if rule.Action == "" {
			errs = append(errs, fmt.Sprintf("rule %q: action is required", rule.ID))
		}
		if rule.Resource == "" {
			errs = append(errs, fmt.Sprintf("rule %q: resource is required", rule.ID))
		}

		switch rule.Effect {
		case EffectAllow, EffectDeny:
		default:
			errs = append(errs, fmt.Sprintf("rule %q: invalid effect %q", rule.ID, rule.Effect))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Request is the ephemeral input to a single gate check. It is built
// fresh for each check and discarded afterwards.
type Request struct {
	// ActorID identifies the requesting user.
	ActorID string `json:"actor_id"`

	// Role is the actor's role, matched against rule subjects.
	Role string `json:"role"`

	// Action is the operation being requested.
	Action string `json:"action"`

	// Resource is the target of the operation.
	Resource string `json:"resource"`
}

// Decision is the synchronous result of a gate check. It is never
// persisted directly; the caller records it in the audit trail.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// MatchedRule is the ID of the rule that determined the outcome.
	// Empty when no rule matched (default-deny).
	MatchedRule string `json:"matched_rule,omitempty"`
}
