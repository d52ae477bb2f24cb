// Package tool holds the Tool Registry, the tool execution pipeline and the
// reference tools shipped with the CLI.
package tool

import (
	"log/slog"
	"strings"
	"sync"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
)

// Registry holds named tools in registration order. It is populated at
// startup and read concurrently afterwards.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]domain.Tool
	order    []string
	validate bool
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithArgumentValidation wraps every registered tool with JSON Schema
// argument validation.
func WithArgumentValidation(enabled bool) RegistryOption {
	return func(r *Registry) { r.validate = enabled }
}

// NewRegistry creates an empty tool registry.
func NewRegistry(log *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger.OrDiscard(log),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. A duplicate name fails with ErrDuplicateTool and the
// original registration stays. With argument validation enabled, a schema
// that fails to compile is logged and the tool is registered unwrapped.
func (r *Registry) Register(t domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return domain.NewDomainError("Registry.Register", domain.ErrDuplicateTool, name)
	}

	if r.validate {
		wrapped, err := WithSchemaValidation(t)
		if err != nil {
			r.logger.Warn("schema validation disabled for tool", "tool", name, "error", err)
		} else {
			t = wrapped
		}
	}

	r.tools[name] = t
	r.order = append(r.order, name)
	r.logger.Debug("tool registered", "tool", name, "tier", t.RiskTier().String())
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		detail := name + " (available: none)"
		if len(r.order) > 0 {
			detail = name + " (available: " + strings.Join(r.order, ", ") + ")"
		}
		return nil, domain.NewDomainError("Registry.Get", domain.ErrToolNotFound, detail)
	}
	return t, nil
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Unregister removes and returns the named tool, or nil if absent.
func (r *Registry) Unregister(name string) domain.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tools[name]
	if !ok {
		return nil
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return t
}

// Clear removes every tool.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]domain.Tool)
	r.order = nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// List returns all registered tools in registration order.
func (r *Registry) List() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Filter returns the registered tools named in allow, in registration order.
// A nil or empty allow list returns every tool. Unknown names are ignored.
func (r *Registry) Filter(allow []string) []domain.Tool {
	if len(allow) == 0 {
		return r.List()
	}
	allowed := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowed[name] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var tools []domain.Tool
	for _, name := range r.order {
		if allowed[name] {
			tools = append(tools, r.tools[name])
		}
	}
	return tools
}

// Schemas returns all tool schemas in registration order.
func (r *Registry) Schemas() []domain.ToolSchema {
	tools := r.List()
	schemas := make([]domain.ToolSchema, len(tools))
	for i, t := range tools {
		schemas[i] = t.Schema()
	}
	return schemas
}

func orDiscard(l *slog.Logger) *slog.Logger { return logger.OrDiscard(l) }
