package pkg

import "sync"

// DepNode is a vertex in the package dependency DAG (spec.md §3.5): it holds
// the package, its resolved direct dependency nodes, its children in
// traversal order, and a monotonic done flag. The orchestrator (internal/
// build) and the precompiler (internal/precompiler) share this type: the
// precompiler builds the tree, the orchestrator walks it.
type DepNode struct {
	Package      *Package
	Dependencies []*DepNode
	Children     []*DepNode

	mu   sync.Mutex
	cond *sync.Cond
	done bool
}

// NewDepNode creates a leaf node for p with no dependencies yet.
func NewDepNode(p *Package) *DepNode {
	n := &DepNode{Package: p}
	n.cond = sync.NewCond(&n.mu)
	return n
}

// Done reports the node's current done flag.
func (n *DepNode) Done() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.done
}

// MarkDone transitions done false -> true and wakes any waiters. Per
// spec.md §3.5, done only transitions monotonically and only while the
// node's own lock is held.
func (n *DepNode) MarkDone() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.done = true
	n.cond.Broadcast()
}

// WaitUntilDone blocks until done becomes true. Used by the build
// orchestrator's dependency poll (spec.md §4.7, §5 "Suspension points").
func (n *DepNode) WaitUntilDone() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for !n.done {
		n.cond.Wait()
	}
}

// TransitiveDependencies returns every DepNode reachable by walking
// Dependencies, used for cycle detection while building the tree.
func (n *DepNode) TransitiveDependencies() []*DepNode {
	seen := map[*DepNode]bool{}
	var out []*DepNode
	var walk func(*DepNode)
	walk = func(cur *DepNode) {
		for _, d := range cur.Dependencies {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			walk(d)
		}
	}
	walk(n)
	return out
}
