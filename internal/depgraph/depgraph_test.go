package depgraph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewboard/internal/domain"
	"crewboard/internal/stage"
)

func TestDetectCyclesAcyclic(t *testing.T) {
	g := New([]Node{
		{ID: "a", DependsOn: []string{"b", "c"}},
		{ID: "b", DependsOn: []string{"c"}},
		{ID: "c"},
	})
	assert.Nil(t, g.DetectCycles())
}

func TestDetectCyclesSimple(t *testing.T) {
	g := New([]Node{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"c"}},
		{ID: "c", DependsOn: []string{"b"}},
	})
	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"b", "c", "b"}, cycles[0])
}

func TestDetectCyclesSelfLoop(t *testing.T) {
	g := New([]Node{{ID: "a", DependsOn: []string{"a"}}})
	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "a"}, cycles[0])
}

func TestDetectCyclesIgnoresAbsentDeps(t *testing.T) {
	g := New([]Node{
		{ID: "a", DependsOn: []string{"ghost"}},
		{ID: "b", DependsOn: []string{"a", "other-ghost"}},
	})
	assert.Nil(t, g.DetectCycles())
}

func TestDetectCyclesMultiple(t *testing.T) {
	g := New([]Node{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "x", DependsOn: []string{"y"}},
		{ID: "y", DependsOn: []string{"x"}},
	})
	cycles := g.DetectCycles()
	assert.Len(t, cycles, 2)
}

// A long chain must not overflow the stack; the DFS is iterative.
func TestDetectCyclesDeepChain(t *testing.T) {
	const n = 200_000
	nodes := make([]Node, n)
	for i := 0; i < n; i++ {
		nodes[i] = Node{ID: fmt.Sprintf("item-%06d", i)}
		if i > 0 {
			nodes[i].DependsOn = []string{fmt.Sprintf("item-%06d", i-1)}
		}
	}
	g := New(nodes)
	assert.Nil(t, g.DetectCycles())

	// Close the chain into one big loop and detect it.
	nodes[0].DependsOn = []string{fmt.Sprintf("item-%06d", n-1)}
	g = New(nodes)
	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], n+1)
}

func TestClassify(t *testing.T) {
	g := New([]Node{
		{ID: "standalone"},
		{ID: "waiting", DependsOn: []string{"pending"}},
		{ID: "pending"},
		{ID: "unblocked", DependsOn: []string{"finished"}},
		{ID: "finished", Done: true},
		{ID: "external", DependsOn: []string{"archived-or-deleted"}},
	})
	ready, blocked := g.Classify()
	assert.Equal(t, []string{"external", "pending", "standalone", "unblocked"}, ready)
	assert.Equal(t, []string{"waiting"}, blocked)
}

func TestClassifyExcludesDone(t *testing.T) {
	g := New([]Node{
		{ID: "finished", Done: true},
		{ID: "next", DependsOn: []string{"finished"}},
	})
	ready, blocked := g.Classify()
	assert.Equal(t, []string{"next"}, ready)
	assert.Empty(t, blocked)
	assert.NotContains(t, ready, "finished")
}

func TestClassifyMixedDeps(t *testing.T) {
	g := New([]Node{
		{ID: "a", Done: true},
		{ID: "b"},
		{ID: "c", DependsOn: []string{"a", "b"}},
	})
	ready, blocked := g.Classify()
	assert.Equal(t, []string{"b"}, ready)
	assert.Equal(t, []string{"c"}, blocked)
}

func TestFromItems(t *testing.T) {
	items := []domain.Item{
		{ID: "one", StageID: stage.Done},
		{ID: "two", StageID: stage.Ready, DependsOn: []string{"one"}},
		{ID: "three", StageID: stage.Briefings, DependsOn: []string{"two"}},
	}
	g := FromItems(items)
	require.Equal(t, 3, g.Len())
	ready, blocked := g.Classify()
	assert.Equal(t, []string{"two"}, ready)
	assert.Equal(t, []string{"three"}, blocked)
}
