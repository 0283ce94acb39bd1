package preparser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/lexer"
)

func TestPrepare_SimpleMain(t *testing.T) {
	src := `fun main() = unit;`
	toks := lexer.All([]byte(src), "main.lily")
	info, err := Prepare(toks)
	require.NoError(t, err)
	require.Len(t, info.Shells, 1)
	require.Equal(t, "main", info.Shells[0].Name)
	require.Equal(t, DeclFun, info.Shells[0].Kind)
}

func TestPrepare_ImportWithAlias(t *testing.T) {
	src := `pub import std.print as s;
fun main() = unit;`
	toks := lexer.All([]byte(src), "main.lily")
	info, err := Prepare(toks)
	require.NoError(t, err)
	require.Len(t, info.PublicImports, 1)
	require.Equal(t, "s", info.PublicImports[0].Alias)
	require.Len(t, info.Shells, 1)
}

func TestPrepare_MacroWithParams(t *testing.T) {
	src := `macro square(x: expr) { @x * @x }
fun main() = unit;`
	toks := lexer.All([]byte(src), "main.lily")
	info, err := Prepare(toks)
	require.NoError(t, err)
	require.Len(t, info.PrivateMacros, 1)
	m := info.PrivateMacros[0]
	require.Equal(t, "square", m.Name)
	require.Len(t, m.Params, 1)
	require.Equal(t, ParamExpression, m.Params[0].Kind)
	require.True(t, m.Params[0].Used)
}

func TestPrepare_BalancedBraceBody(t *testing.T) {
	src := `fun f() = { let a = 1; let b = { 2 }; a };`
	toks := lexer.All([]byte(src), "main.lily")
	info, err := Prepare(toks)
	require.NoError(t, err)
	require.Len(t, info.Shells, 1)
}

func TestPrepare_UnbalancedMacroBodyErrors(t *testing.T) {
	src := `macro broken(x: expr) { @x * @x
fun g() = unit;`
	toks := lexer.All([]byte(src), "main.lily")
	_, err := Prepare(toks)
	require.Error(t, err)
	rep, ok := errors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, errors.CodeUnbalancedDelimiters, rep.Code)
}

func TestPrepare_MultipleDeclsInSequence(t *testing.T) {
	src := `fun f() = 1 + 2;
fun g() = unit;`
	toks := lexer.All([]byte(src), "main.lily")
	info, err := Prepare(toks)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, s := range info.Shells {
		names[s.Name] = true
	}
	require.True(t, names["f"])
	require.True(t, names["g"])
}

func TestPrepare_NestedModule(t *testing.T) {
	src := `module outer {
  fun inner() = unit;
}`
	toks := lexer.All([]byte(src), "main.lily")
	info, err := Prepare(toks)
	require.NoError(t, err)
	require.Len(t, info.Shells, 1)
	require.Equal(t, DeclModule, info.Shells[0].Kind)
	require.Equal(t, "outer", info.Shells[0].Name)
	require.Len(t, info.Shells[0].Nested, 1)
	require.Equal(t, "inner", info.Shells[0].Nested[0].Name)
}
