// Warden is a policy-gated request router for IT service desk automation.
//
// It classifies free-text requests into intents, checks every routing and
// tool-execution decision against a declarative rule set, and writes a
// durable audit record for each check before the decision takes effect.
//
// Usage:
//
//	# Process requests from stdin with default configuration
//	warden run
//
//	# Run with a custom configuration file
//	warden run --config /etc/warden/warden.yaml
//
//	# Validate a rule file
//	warden lint --file rules.yaml
//
//	# Show the most recent audit records
//	warden audit tail -n 20
//
//	# Show version information
//	warden version
package main

func main() {
	Execute()
}
