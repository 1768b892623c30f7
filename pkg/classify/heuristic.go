package classify

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Pattern lists are checked in order: privileged first, then
// informational, then an operational verb fallback.
var (
	privilegedPatterns = compileAll(
		`\breset\b.*\bpassword\b`,
		`\bgrant\b.*\baccess\b`,
		`\bdisable\b.*\baccount\b`,
		`\belevate\b.*\bprivilege\b`,
		`\bcreate\b.*\badmin\b`,
	)

	informationalPatterns = compileAll(
		`\bhow do i\b`,
		`\binstructions\b`,
		`\bpolicy\b`,
		`\bguide\b`,
		`\bdocumentation\b`,
		`\bwhat is\b`,
		`\bwhere can i\b`,
	)

	operationalVerbs = regexp.MustCompile(`\b(create|update|change|request|provision|run)\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// HeuristicClassifier classifies intent with fixed regex pattern lists.
// It is deterministic and self-contained, suitable as the default
// collaborator and as a stand-in for a hosted model in tests.
type HeuristicClassifier struct {
	logger *slog.Logger
}

// NewHeuristicClassifier creates a heuristic classifier.
func NewHeuristicClassifier(logger *slog.Logger) *HeuristicClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeuristicClassifier{
		logger: logger.With("component", "classify.heuristic"),
	}
}

// Classify produces a routing decision from the raw user input.
func (c *HeuristicClassifier) Classify(ctx context.Context, input string) (*RoutingDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ClassificationError{Cause: err}
	}

	intent := classifyIntent(input)
	decision := &RoutingDecision{
		Intent:   intent,
		RiskTier: riskFromIntent(intent),
	}

	switch intent {
	case IntentPrivileged:
		decision.RouteTo = RouteActionAgent
		decision.RecommendedTools = ToolClassRestricted
		decision.RequiredPrereqs = []string{"ticket_id"}
		decision.Explanation = "Privileged request detected. Execution gate will apply."
		decision.Confidence = 0.85

	case IntentOperational:
		decision.RouteTo = RouteActionAgent
		decision.RecommendedTools = ToolClassSafe
		decision.Explanation = "Operational request detected. Route to action agent."
		decision.Confidence = 0.65

	case IntentInformational:
		decision.RouteTo = RouteKnowledgeAgent
		decision.RecommendedTools = ToolClassSafe
		decision.Explanation = "Informational request detected. Route to knowledge agent."
		decision.Confidence = 0.85

	default:
		decision.RouteTo = RouteKnowledgeAgent
		decision.RecommendedTools = ToolClassSafe
		decision.Explanation = "Intent ambiguous. Start with knowledge lookup before any action."
		decision.Confidence = 0.65
	}

	c.logger.Debug("input classified",
		"intent", decision.Intent,
		"risk_tier", decision.RiskTier,
		"route_to", decision.RouteTo,
		"confidence", decision.Confidence,
	)

	return decision, nil
}

func classifyIntent(input string) Intent {
	text := strings.ToLower(strings.TrimSpace(input))

	for _, p := range privilegedPatterns {
		if p.MatchString(text) {
			return IntentPrivileged
		}
	}
	for _, p := range informationalPatterns {
		if p.MatchString(text) {
			return IntentInformational
		}
	}
	// Sounds like "do X" without touching accounts or access.
	if operationalVerbs.MatchString(text) {
		return IntentOperational
	}
	return IntentAmbiguous
}

func riskFromIntent(intent Intent) RiskTier {
	switch intent {
	case IntentInformational:
		return RiskLow
	case IntentPrivileged:
		return RiskHigh
	default:
		return RiskMedium
	}
}
