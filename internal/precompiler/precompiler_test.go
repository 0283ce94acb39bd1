package precompiler_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/pkg"
	"github.com/sunholo/lily/internal/precompiler"
	"github.com/sunholo/lily/internal/preparser"
	"github.com/sunholo/lily/internal/token"
)

// fakeLoader is an in-memory precompiler.Loader: packages and libraries are
// registered ahead of time by name, sub-packages are looked up as
// name/child, and files resolve by exact path.
type fakeLoader struct {
	roots    map[precompiler.Root]*pkg.Package
	packages map[string]*pkg.Package
	subs     map[string]*pkg.Package // key: "<parent>/<name>"
	files    map[string]*pkg.Package
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		roots:    map[precompiler.Root]*pkg.Package{},
		packages: map[string]*pkg.Package{},
		subs:     map[string]*pkg.Package{},
		files:    map[string]*pkg.Package{},
	}
}

func (f *fakeLoader) ResolveFile(dir, path string) (*pkg.Package, error) {
	if p, ok := f.files[path]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no such file %q", path)
}

func (f *fakeLoader) ResolvePackage(cur *pkg.Package, name string) (*pkg.Package, error) {
	if p, ok := f.subs[cur.Name+"/"+name]; ok {
		return p, nil
	}
	if p, ok := f.packages[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no such package %q under %q", name, cur.Name)
}

func (f *fakeLoader) ResolveLibrary(name string) (*pkg.Package, error) {
	if p, ok := f.packages[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no such library %q", name)
}

func (f *fakeLoader) ResolveRoot(root precompiler.Root) (*pkg.Package, error) {
	if p, ok := f.roots[root]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no such root %v", root)
}

func emptyInfo(pkgName string) *preparser.Info {
	return &preparser.Info{PackageName: pkgName}
}

func TestResolveImportsStdRoot(t *testing.T) {
	loader := newFakeLoader()
	stringsPkg := pkg.NewPackage("strings", "std/strings.lily", pkg.StatusNormal, pkg.Public)
	loader.roots[precompiler.RootStd] = pkg.NewPackage("std", "std.lily", pkg.StatusNormal, pkg.Public)
	loader.subs["std/strings"] = stringsPkg

	p := pkg.NewPackage("main", "main.lily", pkg.StatusRootExeMain, pkg.Public)
	info := emptyInfo("main")
	info.PublicImports = []preparser.Import{{Segments: []string{"std", "strings"}}}

	pc := precompiler.New(loader)
	out, err := pc.Process(p, info)
	require.NoError(t, err)
	require.Len(t, out.Imports, 1)
	require.Equal(t, "std", out.Imports[0].TargetKind)
	require.Equal(t, "strings", out.Imports[0].TargetName)
	require.Equal(t, "strings", out.Imports[0].Alias)
	require.Contains(t, p.Dependencies, stringsPkg)
}

func TestResolveImportsPrivateAccessDenied(t *testing.T) {
	loader := newFakeLoader()
	loader.roots[precompiler.RootCore] = pkg.NewPackage("core", "core.lily", pkg.StatusNormal, pkg.Public)
	secret := pkg.NewPackage("secret", "core/secret.lily", pkg.StatusNormal, pkg.Private)
	loader.subs["core/secret"] = secret

	p := pkg.NewPackage("main", "main.lily", pkg.StatusRootExeMain, pkg.Public)
	info := emptyInfo("main")
	info.PublicImports = []preparser.Import{{Segments: []string{"core", "secret"}}}

	pc := precompiler.New(loader)
	_, err := pc.Process(p, info)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.CodePrivateImportAccess, rep.Code)
}

func TestResolveImportsNotFound(t *testing.T) {
	loader := newFakeLoader()
	p := pkg.NewPackage("main", "main.lily", pkg.StatusRootExeMain, pkg.Public)
	info := emptyInfo("main")
	info.PublicImports = []preparser.Import{{Segments: []string{"nope"}}}

	pc := precompiler.New(loader)
	_, err := pc.Process(p, info)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.CodeImportNotFound, rep.Code)
}

func TestDetermineTreeBuildsRootsAndChildren(t *testing.T) {
	loader := newFakeLoader()
	base := pkg.NewPackage("base", "base.lily", pkg.StatusNormal, pkg.Public)
	loader.packages["base"] = base

	pc := precompiler.New(loader)

	baseInfo := emptyInfo("base")
	baseOut, err := pc.Process(base, baseInfo)
	require.NoError(t, err)
	require.Nil(t, baseOut.Node.Dependencies)

	child := pkg.NewPackage("child", "child.lily", pkg.StatusNormal, pkg.Public)
	childInfo := emptyInfo("child")
	childInfo.PublicImports = []preparser.Import{{Segments: []string{"base"}}}
	childOut, err := pc.Process(child, childInfo)
	require.NoError(t, err)
	require.Len(t, childOut.Node.Dependencies, 1)

	require.Len(t, pc.Roots(), 1)
	require.Contains(t, pc.Roots()[0].Children, childOut.Node)
}

func TestDetermineTreeDetectsCycle(t *testing.T) {
	loader := newFakeLoader()
	a := pkg.NewPackage("a", "a.lily", pkg.StatusNormal, pkg.Public)
	b := pkg.NewPackage("b", "b.lily", pkg.StatusNormal, pkg.Public)
	loader.packages["a"] = a
	loader.packages["b"] = b

	pc := precompiler.New(loader)

	// a starts as a dependency-free root.
	_, err := pc.Process(a, emptyInfo("a"))
	require.NoError(t, err)

	// b imports a: fine, b becomes a's child.
	bInfo := emptyInfo("b")
	bInfo.PublicImports = []preparser.Import{{Segments: []string{"a"}}}
	_, err = pc.Process(b, bInfo)
	require.NoError(t, err)

	// Reprocessing the same a package with an import back on b closes the
	// cycle: a's new node depends on b, whose existing node transitively
	// depends on a's original node (same *pkg.Package).
	aInfo2 := emptyInfo("a")
	aInfo2.PublicImports = []preparser.Import{{Segments: []string{"b"}}}
	_, err = pc.Process(a, aInfo2)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.CodeCyclicPackageDep, rep.Code)
}

func tok(k token.Kind, lexeme string) token.Token {
	return token.Token{Kind: k, Lexeme: lexeme}
}

func TestExpandMacrosSubstitutesArguments(t *testing.T) {
	loader := newFakeLoader()
	pc := precompiler.New(loader)

	// macro double!(x: expr) => @x + @x
	macro := preparser.Macro{
		Name:   "double",
		Params: []preparser.MacroParam{{Name: "x", Kind: preparser.ParamExpression}},
		Body: []token.Token{
			tok(token.AT, "@"), tok(token.IDENT, "x"),
			tok(token.PLUS, "+"),
			tok(token.AT, "@"), tok(token.IDENT, "x"),
		},
	}

	p := pkg.NewPackage("main", "main.lily", pkg.StatusRootExeMain, pkg.Public)
	info := emptyInfo("main")
	info.PublicMacros = []preparser.Macro{macro}
	info.Shells = []preparser.DeclShell{{
		Name: "f",
		Kind: preparser.DeclFun,
		Tokens: []token.Token{
			tok(token.IDENT, "double"), tok(token.BANG, "!"), tok(token.LPAREN, "("),
			tok(token.INT, "5"),
			tok(token.RPAREN, ")"),
		},
	}}

	out, err := pc.Process(p, info)
	require.NoError(t, err)
	require.Len(t, out.Shells, 1)

	got := out.Shells[0].Tokens
	require.Len(t, got, 3)
	require.Equal(t, "5", got[0].Lexeme)
	require.Equal(t, token.PLUS, got[1].Kind)
	require.Equal(t, "5", got[2].Lexeme)
}

func TestExpandMacrosArityMismatch(t *testing.T) {
	loader := newFakeLoader()
	pc := precompiler.New(loader)

	macro := preparser.Macro{
		Name:   "pair",
		Params: []preparser.MacroParam{{Name: "x"}, {Name: "y"}},
		Body:   []token.Token{tok(token.AT, "@"), tok(token.IDENT, "x")},
	}

	p := pkg.NewPackage("main", "main.lily", pkg.StatusRootExeMain, pkg.Public)
	info := emptyInfo("main")
	info.PublicMacros = []preparser.Macro{macro}
	info.Shells = []preparser.DeclShell{{
		Name: "f",
		Kind: preparser.DeclFun,
		Tokens: []token.Token{
			tok(token.IDENT, "pair"), tok(token.BANG, "!"), tok(token.LPAREN, "("),
			tok(token.INT, "1"),
			tok(token.RPAREN, ")"),
		},
	}}

	_, err := pc.Process(p, info)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.CodeMacroArityMismatch, rep.Code)
}

func TestExpandMacrosRecursionLimit(t *testing.T) {
	loader := newFakeLoader()
	pc := precompiler.New(loader)
	pc.MacroRecursionLimit = 3

	// A macro whose body re-invokes itself: loop!() => loop!()
	macro := preparser.Macro{
		Name: "loop",
		Body: []token.Token{
			tok(token.IDENT, "loop"), tok(token.BANG, "!"), tok(token.LPAREN, "("), tok(token.RPAREN, ")"),
		},
	}

	p := pkg.NewPackage("main", "main.lily", pkg.StatusRootExeMain, pkg.Public)
	info := emptyInfo("main")
	info.PublicMacros = []preparser.Macro{macro}
	info.Shells = []preparser.DeclShell{{
		Name: "f",
		Kind: preparser.DeclFun,
		Tokens: []token.Token{
			tok(token.IDENT, "loop"), tok(token.BANG, "!"), tok(token.LPAREN, "("), tok(token.RPAREN, ")"),
		},
	}}

	_, err := pc.Process(p, info)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.CodeMacroRecursionLimit, rep.Code)
}
