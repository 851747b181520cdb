package deadlock

import "testing"

func TestGraphNoCycleInitially(t *testing.T) {
	g := NewGraph[string]()
	if g.HasCycle() {
		t.Fatal("empty graph should report no cycle")
	}
}

func TestGraphDetectsDirectCycle(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")
	if !g.HasCycle() {
		t.Fatal("A->B->A should be detected as a cycle")
	}
}

func TestGraphDetectsLongerCycle(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")
	if !g.HasCycle() {
		t.Fatal("A->B->C->A should be detected as a cycle")
	}
}

func TestGraphAcyclicChainHasNoCycle(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	if g.HasCycle() {
		t.Fatal("a linear chain should not be a cycle")
	}
}

func TestGraphRemoveNodeBreaksCycle(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")
	if !g.HasCycle() {
		t.Fatal("expected a cycle before removal")
	}
	g.RemoveNode("A")
	if g.HasCycle() {
		t.Fatal("removing a node from a two-cycle should eliminate the cycle")
	}
}

func TestGraphCacheInvalidatesOnChange(t *testing.T) {
	g := NewGraph[string]()
	if g.HasCycle() {
		t.Fatal("expected no cycle")
	}
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")
	if !g.HasCycle() {
		t.Fatal("cache should not mask a newly introduced cycle")
	}
}

func TestGraphFindCycleReturnsCycleMembers(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	cycle := g.FindCycle()
	if len(cycle) != 3 {
		t.Fatalf("expected a 3-node cycle, got %v", cycle)
	}
	seen := map[string]bool{}
	for _, n := range cycle {
		seen[n] = true
	}
	for _, want := range []string{"A", "B", "C"} {
		if !seen[want] {
			t.Errorf("expected %s in the reported cycle, got %v", want, cycle)
		}
	}
}

func TestGraphFindCycleNilWhenAcyclic(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	if cycle := g.FindCycle(); cycle != nil {
		t.Fatalf("expected no cycle, got %v", cycle)
	}
}

func TestGraphWaiters(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("C", "B")

	waiters := g.Waiters()
	if len(waiters) != 2 {
		t.Fatalf("expected 2 waiters, got %d", len(waiters))
	}
}

func TestGraphSelfLoopIsACycle(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "A")
	if !g.HasCycle() {
		t.Fatal("a self-loop should be detected as a cycle")
	}
}
