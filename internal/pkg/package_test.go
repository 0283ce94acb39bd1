package pkg_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/pkg"
)

func TestNewPackageDefaults(t *testing.T) {
	p := pkg.NewPackage("main", "main.lily", pkg.StatusRootExeMain, pkg.Public)
	require.Equal(t, "main", p.Name)
	require.Equal(t, "main", p.GlobalName)
	require.Equal(t, pkg.StatusRootExeMain, p.Status)
	require.Equal(t, pkg.Public, p.Visibility)
	require.Equal(t, 0, p.ErrorCount)
	require.Equal(t, 0, p.WarningCount)
}

func TestStatusString(t *testing.T) {
	cases := map[pkg.Status]string{
		pkg.StatusRootExeMain: "root-exe-main",
		pkg.StatusRootLibMain: "root-lib-main",
		pkg.StatusSubMain:     "sub-main",
		pkg.StatusNormal:      "normal",
		pkg.StatusStandalone:  "standalone",
	}
	for status, want := range cases {
		require.Equal(t, want, status.String())
	}
	require.Equal(t, "unknown", pkg.Status(99).String())
}

func TestAddErrorAndWarningAreConcurrencySafe(t *testing.T) {
	p := pkg.NewPackage("main", "main.lily", pkg.StatusNormal, pkg.Public)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.AddError()
		}()
		go func() {
			defer wg.Done()
			p.AddWarning()
		}()
	}
	wg.Wait()

	require.Equal(t, 100, p.ErrorCount)
	require.Equal(t, 100, p.WarningCount)
}

func TestRecordBuiltinUsageDeduplicates(t *testing.T) {
	p := pkg.NewPackage("main", "main.lily", pkg.StatusNormal, pkg.Public)
	p.RecordBuiltinUsage("print")
	p.RecordBuiltinUsage("len")
	p.RecordBuiltinUsage("print")

	require.Equal(t, []string{"print", "len"}, p.BuiltinUsage)
}

func TestDependsOnTransitive(t *testing.T) {
	base := pkg.NewPackage("base", "base.lily", pkg.StatusNormal, pkg.Public)
	mid := pkg.NewPackage("mid", "mid.lily", pkg.StatusNormal, pkg.Public)
	top := pkg.NewPackage("top", "top.lily", pkg.StatusNormal, pkg.Public)

	mid.Dependencies = []*pkg.Package{base}
	top.Dependencies = []*pkg.Package{mid}

	require.True(t, top.DependsOn(mid))
	require.True(t, top.DependsOn(base))
	require.False(t, base.DependsOn(top))
}

func TestProgramCheckAcyclicDetectsCycle(t *testing.T) {
	a := pkg.NewPackage("a", "a.lily", pkg.StatusNormal, pkg.Public)
	b := pkg.NewPackage("b", "b.lily", pkg.StatusNormal, pkg.Public)
	a.Dependencies = []*pkg.Package{b}
	b.Dependencies = []*pkg.Package{a}

	pr := pkg.NewProgram()
	pr.AddPackage(a)
	pr.AddPackage(b)

	err := pr.CheckAcyclic()
	require.ErrorContains(t, err, "cyclic package dependency")
}

func TestProgramCheckAcyclicDetectsUnknownDependency(t *testing.T) {
	a := pkg.NewPackage("a", "a.lily", pkg.StatusNormal, pkg.Public)
	outside := pkg.NewPackage("outside", "outside.lily", pkg.StatusNormal, pkg.Public)
	a.Dependencies = []*pkg.Package{outside}

	pr := pkg.NewProgram()
	pr.AddPackage(a)

	err := pr.CheckAcyclic()
	require.ErrorContains(t, err, "not in the program")
}

func TestProgramCheckAcyclicAcceptsValidDAG(t *testing.T) {
	base := pkg.NewPackage("base", "base.lily", pkg.StatusNormal, pkg.Public)
	top := pkg.NewPackage("top", "top.lily", pkg.StatusRootExeMain, pkg.Public)
	top.Dependencies = []*pkg.Package{base}

	pr := pkg.NewProgram()
	pr.AddPackage(base)
	pr.AddPackage(top)

	require.NoError(t, pr.CheckAcyclic())
}
