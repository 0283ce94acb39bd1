package build_test

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/build"
	"github.com/sunholo/lily/internal/pkg"
)

// newNode builds a leaf DepNode for a freshly named package.
func newNode(name string) *pkg.DepNode {
	return pkg.NewDepNode(pkg.NewPackage(name, name+".lily", pkg.StatusNormal, pkg.Public))
}

// diamond builds base <- {left, right} <- top, i.e. top depends on left and
// right, which both depend on base, mirroring a shared-dependency DAG.
func diamond() (top, left, right, base *pkg.DepNode) {
	base = newNode("base")
	left = newNode("left")
	right = newNode("right")
	top = newNode("top")

	left.Dependencies = []*pkg.DepNode{base}
	right.Dependencies = []*pkg.DepNode{base}
	top.Dependencies = []*pkg.DepNode{left, right}

	// Children are the reverse edges: each non-root node is attached as a
	// Child of its first dependency (its "owner"), so a walk from the
	// dependency-free roots via Children reaches every node exactly once.
	base.Children = []*pkg.DepNode{left, right}
	left.Children = []*pkg.DepNode{top}
	return
}

func TestRunRespectsDependencyOrder(t *testing.T) {
	_, _, _, base := diamond()

	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	orch := build.New(func(p *pkg.Package) error {
		time.Sleep(time.Millisecond)
		record(p.Name)
		return nil
	})

	errs := orch.Run([]*pkg.DepNode{base})
	require.Empty(t, errs)
	require.False(t, orch.Failed())

	require.Len(t, order, 4)
	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	require.Less(t, pos["base"], pos["left"])
	require.Less(t, pos["base"], pos["right"])
	require.Less(t, pos["left"], pos["top"])
	require.Less(t, pos["right"], pos["top"])
}

func TestRunPropagatesStickyFailure(t *testing.T) {
	_, _, _, base := diamond()

	var ranTop, ranRight bool
	var mu sync.Mutex

	orch := build.New(func(p *pkg.Package) error {
		if p.Name == "base" {
			return fmt.Errorf("boom")
		}
		mu.Lock()
		switch p.Name {
		case "top":
			ranTop = true
		case "right":
			ranRight = true
		}
		mu.Unlock()
		return nil
	})

	errs := orch.Run([]*pkg.DepNode{base})
	require.True(t, orch.Failed())

	require.Contains(t, errs, "base")
	require.Contains(t, errs, "left")
	require.Contains(t, errs, "right")
	require.Contains(t, errs, "top")

	require.False(t, ranTop, "top's stage must not run once its dependency chain failed")
	require.False(t, ranRight, "right's stage must not run once its dependency failed")
}

func TestRunVerboseLogsStageTransitions(t *testing.T) {
	_, _, _, base := diamond()

	orch := build.New(func(p *pkg.Package) error { return nil })
	orch.Verbose = true

	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stderr
	os.Stderr = w

	orch.Run([]*pkg.DepNode{base})

	w.Close()
	os.Stderr = old
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "+ base building")
	require.Contains(t, out, "+ top building")
	require.Contains(t, out, "+ top waiting on left")
}

func TestRunIndependentSubtreesDoNotBlockEachOther(t *testing.T) {
	a := newNode("a")
	b := newNode("b")

	var ran int
	var mu sync.Mutex
	orch := build.New(func(p *pkg.Package) error {
		mu.Lock()
		ran++
		mu.Unlock()
		return nil
	})

	errs := orch.Run([]*pkg.DepNode{a, b})
	require.Empty(t, errs)
	require.Equal(t, 2, ran)
}
