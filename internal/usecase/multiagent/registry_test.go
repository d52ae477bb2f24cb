package multiagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedwig/internal/domain"
)

func TestRegistryOrderAndLookup(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(newStubAgent("GeneralAgent", nil)))
	require.NoError(t, r.Register(newStubAgent("SWEAgent", nil)))
	require.NoError(t, r.Register(newStubAgent("ResearchAgent", nil)))

	assert.Equal(t, []string{"GeneralAgent", "SWEAgent", "ResearchAgent"}, r.Names())
	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Has("SWEAgent"))

	a, ok := r.Get("ResearchAgent")
	require.True(t, ok)
	assert.Equal(t, "ResearchAgent", a.Name())

	_, ok = r.Get("Nobody")
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "GeneralAgent", list[0].Name())
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	first := newStubAgent("GeneralAgent", nil)
	require.NoError(t, r.Register(first))

	err := r.Register(newStubAgent("GeneralAgent", nil))
	assert.ErrorIs(t, err, domain.ErrDuplicateAgent)
	got, _ := r.Get("GeneralAgent")
	assert.Same(t, first, got)
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(newStubAgent("A", nil)))
	require.NoError(t, r.Register(newStubAgent("B", nil)))
	require.NoError(t, r.Register(newStubAgent("C", nil)))

	assert.True(t, r.Unregister("B"))
	assert.False(t, r.Unregister("B"))
	assert.Equal(t, []string{"A", "C"}, r.Names())

	require.NoError(t, r.Register(newStubAgent("B", nil)))
	assert.Equal(t, []string{"A", "C", "B"}, r.Names())
}

func TestRegistryAvailable(t *testing.T) {
	r := NewRegistry(nil)
	for _, n := range []string{"A", "B", "C"} {
		require.NoError(t, r.Register(newStubAgent(n, nil)))
	}
	names := func(agents []domain.Agent) []string {
		out := make([]string, len(agents))
		for i, a := range agents {
			out[i] = a.Name()
		}
		return out
	}
	assert.Equal(t, []string{"A", "C"}, names(r.available([]string{"B"})))
	assert.Empty(t, r.available([]string{"A", "B", "C"}))
	assert.Equal(t, []string{"A", "B", "C"}, names(r.available([]string{"Z"})))
}

type invalidAgent struct{ stubAgent }

func (*invalidAgent) Descriptor() domain.AgentDescriptor {
	return domain.AgentDescriptor{Name: "Broken"}
}

func TestRegistryRejectsInvalidDescriptor(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Register(&invalidAgent{stubAgent: stubAgent{name: "Broken"}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, r.Len())
}
