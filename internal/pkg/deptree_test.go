package pkg_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/pkg"
)

func TestDepNodeMarkDoneWakesWaiters(t *testing.T) {
	n := pkg.NewDepNode(pkg.NewPackage("a", "a.lily", pkg.StatusNormal, pkg.Public))
	require.False(t, n.Done())

	done := make(chan struct{})
	go func() {
		n.WaitUntilDone()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitUntilDone returned before MarkDone was called")
	case <-time.After(20 * time.Millisecond):
	}

	n.MarkDone()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitUntilDone did not wake up after MarkDone")
	}
	require.True(t, n.Done())
}

func TestTransitiveDependenciesWalksAndDedupes(t *testing.T) {
	base := pkg.NewDepNode(pkg.NewPackage("base", "base.lily", pkg.StatusNormal, pkg.Public))
	left := pkg.NewDepNode(pkg.NewPackage("left", "left.lily", pkg.StatusNormal, pkg.Public))
	right := pkg.NewDepNode(pkg.NewPackage("right", "right.lily", pkg.StatusNormal, pkg.Public))
	top := pkg.NewDepNode(pkg.NewPackage("top", "top.lily", pkg.StatusNormal, pkg.Public))

	left.Dependencies = []*pkg.DepNode{base}
	right.Dependencies = []*pkg.DepNode{base}
	top.Dependencies = []*pkg.DepNode{left, right}

	trans := top.TransitiveDependencies()
	require.Len(t, trans, 3, "left, right, and base each appear exactly once despite base being reachable via both branches")

	names := map[string]bool{}
	for _, n := range trans {
		names[n.Package.Name] = true
	}
	require.True(t, names["left"])
	require.True(t, names["right"])
	require.True(t, names["base"])
}

func TestTransitiveDependenciesLeaf(t *testing.T) {
	leaf := pkg.NewDepNode(pkg.NewPackage("leaf", "leaf.lily", pkg.StatusNormal, pkg.Public))
	require.Empty(t, leaf.TransitiveDependencies())
}
