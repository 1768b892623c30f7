package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool is a named, invokable action with a policy scope.
type Tool struct {
	// Name is the tool identifier used in execution-gate actions
	// ("tool:<name>").
	Name string

	// Scope is the resource the execution gate checks for this tool
	// (e.g. "kb", "identity").
	Scope string

	// Run performs the action. Mock tools return canned output.
	Run func(ctx context.Context, args map[string]string) (string, error)
}

// Registry holds the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Run == nil {
		return fmt.Errorf("tool %q has no run function", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the built-in mock tools. They
// are deterministic stand-ins with no external effect, but are still
// gated like real tools.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(Tool{
		Name:  "get_kb_article",
		Scope: "kb",
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			query := args["query"]
			if query == "" {
				return "", fmt.Errorf("get_kb_article requires a %q argument", "query")
			}
			return fmt.Sprintf("KB results for %q:\n- VPN Setup Guide\n- MFA Troubleshooting\n- Remote Access Policy", query), nil
		},
	})

	r.Register(Tool{
		Name:  "reset_password",
		Scope: "identity",
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			username := args["username"]
			if username == "" {
				return "", fmt.Errorf("reset_password requires a %q argument", "username")
			}
			return fmt.Sprintf("Password reset initiated for user %q. (Mock execution)", username), nil
		},
	})

	return r
}
