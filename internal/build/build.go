// Package build implements the orchestrator of spec.md §4.7: one goroutine
// per dependency-tree node, each waiting on its own dependencies'
// DepNode.Done before running its stage, with sticky per-package errors
// that halt only the affected subtree rather than the whole build.
//
// Grounded on the teacher's internal/runtime package's ModuleRuntime
// (sync.Once-guarded single evaluation, DFS cycle tracking), generalized
// from single-threaded DFS to one-goroutine-per-node fan-out, and on
// internal/eval_harness/runner.go's goroutine+channel completion-wait
// pattern — expressed here through pkg.DepNode's sync.Cond rather than a
// channel, since a node's completion is observed by every dependent that
// reaches it, not just one waiter.
package build

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/sunholo/lily/internal/pkg"
)

var verboseColor = color.New(color.Faint)

// Stage runs one package's remaining pipeline stages (precompile through
// MIR lowering) once its dependencies are compiled, populating the fields
// of pkg.Package it owns. The CLI wires a concrete Stage in from the
// precompiler/parser/analysis/mir packages; build itself stays pipeline-
// agnostic so it can fan out any per-package unit of work.
type Stage func(p *pkg.Package) error

// Orchestrator walks one or more dependency trees, running Stage over
// every node exactly once, in dependency order, with maximal parallelism
// across independent subtrees (spec.md §4.7 "Scheduling").
type Orchestrator struct {
	Stage Stage

	// Verbose prints one "+ <package> <msg>" progress line per stage
	// transition per package, matching original_source's LOG_VERBOSE macro.
	Verbose bool

	mu      sync.Mutex
	errs    map[*pkg.Package]error
	started map[*pkg.DepNode]bool
}

// log prints a verbose progress line for p, a no-op when Verbose is false.
func (o *Orchestrator) log(p *pkg.Package, msg string) {
	if !o.Verbose {
		return
	}
	fmt.Fprintln(os.Stderr, verboseColor.Sprintf("+ %s %s", p.Name, msg))
}

// New creates an Orchestrator that runs stage over each package.
func New(stage Stage) *Orchestrator {
	return &Orchestrator{Stage: stage, errs: map[*pkg.Package]error{}, started: map[*pkg.DepNode]bool{}}
}

// Run builds every node reachable from roots (by walking Dependencies and
// Children) to completion, or to first sticky per-package failure, and
// returns the accumulated per-package errors keyed by package name.
func (o *Orchestrator) Run(roots []*pkg.DepNode) map[string]error {
	nodes := collectNodes(roots)

	var wg sync.WaitGroup
	for _, n := range nodes {
		if o.claim(n) {
			wg.Add(1)
			go o.run(n, &wg)
		}
	}
	wg.Wait()

	out := map[string]error{}
	o.mu.Lock()
	defer o.mu.Unlock()
	for p, err := range o.errs {
		out[p.Name] = err
	}
	return out
}

// collectNodes gathers every node reachable from roots via Children, since
// the precompiler's dependency DAG (spec.md §4.2) attaches every non-root
// package as a Child of one of its dependencies.
func collectNodes(roots []*pkg.DepNode) []*pkg.DepNode {
	seen := map[*pkg.DepNode]bool{}
	var out []*pkg.DepNode
	var walk func(*pkg.DepNode)
	walk = func(n *pkg.DepNode) {
		if seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

func (o *Orchestrator) claim(n *pkg.DepNode) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started[n] {
		return false
	}
	o.started[n] = true
	return true
}

// run waits for every direct dependency of n to finish, skips n's own
// Stage if any dependency failed (the failure is sticky to this subtree
// only, per spec.md §4.7 "Error propagation"), runs n's Stage, then marks
// n done so its own dependents can proceed.
func (o *Orchestrator) run(n *pkg.DepNode, wg *sync.WaitGroup) {
	defer wg.Done()
	defer n.MarkDone()

	for _, dep := range n.Dependencies {
		o.log(n.Package, fmt.Sprintf("waiting on %s", dep.Package.Name))
		dep.WaitUntilDone()
		if o.failureOf(dep.Package) != nil {
			o.record(n.Package, fmt.Errorf("dependency %q failed to build", dep.Package.Name))
			return
		}
	}

	o.log(n.Package, "building")
	if err := o.Stage(n.Package); err != nil {
		o.log(n.Package, "failed")
		o.record(n.Package, err)
		return
	}
	o.log(n.Package, "done")
}

func (o *Orchestrator) record(p *pkg.Package, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[p] = err
}

func (o *Orchestrator) failureOf(p *pkg.Package) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errs[p]
}

// Failed reports whether any package in the last Run failed.
func (o *Orchestrator) Failed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.errs) > 0
}
