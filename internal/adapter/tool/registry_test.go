package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"hedwig/internal/domain"
)

type mockTool struct {
	name   string
	tier   domain.RiskTier
	schema json.RawMessage
}

func (m *mockTool) Name() string              { return m.name }
func (m *mockTool) Description() string       { return "mock" }
func (m *mockTool) RiskTier() domain.RiskTier { return m.tier }
func (m *mockTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: m.name, Parameters: m.schema}
}
func (m *mockTool) Execute(context.Context, map[string]any) (*domain.ToolResult, error) {
	return TextResult("ok"), nil
}

func TestRegistryBasic(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.Register(&mockTool{name: "test"}); err != nil {
		t.Fatal(err)
	}

	tool, err := reg.Get("test")
	if err != nil {
		t.Fatal(err)
	}
	if tool.Name() != "test" {
		t.Errorf("Name = %q, want %q", tool.Name(), "test")
	}
	if !reg.Has("test") || reg.Has("other") {
		t.Error("Has reported wrong membership")
	}
	if len(reg.Schemas()) != 1 {
		t.Errorf("Schemas len = %d, want 1", len(reg.Schemas()))
	}
}

func TestRegistryGetReturnsRegisteredInstance(t *testing.T) {
	reg := NewRegistry(nil)
	orig := &mockTool{name: "echo"}
	if err := reg.Register(orig); err != nil {
		t.Fatal(err)
	}
	got, _ := reg.Get("echo")
	if got != domain.Tool(orig) {
		t.Error("Get should return the registered instance")
	}
}

func TestRegistryNotFound(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(&mockTool{name: "echo"})
	reg.Register(&mockTool{name: "shell"})

	_, err := reg.Get("nonexistent")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "echo, shell") {
		t.Errorf("error should list available tools: %v", err)
	}
}

func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry(nil)
	first := &mockTool{name: "dup", tier: domain.RiskReadOnly}
	reg.Register(first)

	err := reg.Register(&mockTool{name: "dup", tier: domain.RiskDestructive})
	if !errors.Is(err, domain.ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
	got, _ := reg.Get("dup")
	if got != domain.Tool(first) {
		t.Error("original registration must survive a duplicate")
	}
}

func TestRegistryOrderAndFilter(t *testing.T) {
	reg := NewRegistry(nil)
	for _, name := range []string{"echo", "shell", "file_reader", "file_writer"} {
		reg.Register(&mockTool{name: name})
	}

	if got := strings.Join(reg.Names(), ","); got != "echo,shell,file_reader,file_writer" {
		t.Errorf("Names = %s", got)
	}

	filtered := reg.Filter([]string{"file_writer", "echo", "missing"})
	if len(filtered) != 2 || filtered[0].Name() != "echo" || filtered[1].Name() != "file_writer" {
		t.Errorf("Filter returned %v", toolNames(filtered))
	}
	if len(reg.Filter(nil)) != 4 {
		t.Error("nil allow list should return every tool")
	}
}

func TestRegistryUnregisterAndClear(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(&mockTool{name: "a"})
	reg.Register(&mockTool{name: "b"})
	reg.Register(&mockTool{name: "c"})

	if reg.Unregister("missing") != nil {
		t.Error("Unregister of unknown tool should return nil")
	}
	if removed := reg.Unregister("b"); removed == nil || removed.Name() != "b" {
		t.Fatalf("Unregister returned %v", removed)
	}
	if got := strings.Join(reg.Names(), ","); got != "a,c" {
		t.Errorf("Names after unregister = %s", got)
	}
	if err := reg.Register(&mockTool{name: "b"}); err != nil {
		t.Errorf("re-register after unregister: %v", err)
	}

	reg.Clear()
	if len(reg.List()) != 0 || len(reg.Names()) != 0 {
		t.Error("Clear should remove every tool")
	}
}

func TestRegistrySchemaValidationWrapsTools(t *testing.T) {
	reg := NewRegistry(nil, WithArgumentValidation(true))
	reg.Register(&mockTool{name: "strict", schema: json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`)})
	reg.Register(&mockTool{name: "loose"})
	reg.Register(&mockTool{name: "broken", schema: json.RawMessage(`{"type": 12}`)})

	strict, _ := reg.Get("strict")
	again, _ := reg.Get("strict")
	if strict != again {
		t.Error("Get should return the same wrapper every time")
	}
	if _, ok := strict.(*SchemaValidatingTool); !ok {
		t.Errorf("strict tool should be wrapped, got %T", strict)
	}

	res, err := strict.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || !strings.Contains(res.Error, "schema validation failed") {
		t.Errorf("missing required arg should fail validation: %+v", res)
	}
	res, _ = strict.Execute(context.Background(), map[string]any{"path": "a.txt"})
	if !res.Success {
		t.Errorf("valid args should pass: %+v", res)
	}

	loose, _ := reg.Get("loose")
	if _, ok := loose.(*mockTool); !ok {
		t.Errorf("tool without schema should not be wrapped, got %T", loose)
	}
	broken, _ := reg.Get("broken")
	if _, ok := broken.(*mockTool); !ok {
		t.Errorf("tool with invalid schema should be registered unwrapped, got %T", broken)
	}
}

func TestRegistryConcurrentReads(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(&mockTool{name: "echo"})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if _, err := reg.Get("echo"); err != nil {
					t.Error(err)
					return
				}
				_ = reg.Filter([]string{"echo"})
			}
		}()
	}
	wg.Wait()
}

func toolNames(tools []domain.Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}
