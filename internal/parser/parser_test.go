package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/ast"
	"github.com/sunholo/lily/internal/lexer"
	"github.com/sunholo/lily/internal/parser"
	"github.com/sunholo/lily/internal/pipeline"
	"github.com/sunholo/lily/internal/pkg"
	"github.com/sunholo/lily/internal/precompiler"
	"github.com/sunholo/lily/internal/preparser"
	"github.com/sunholo/lily/internal/token"
)

// parseSrc drives src through the lexer, preparser, and precompiler exactly
// as internal/pipeline does, then hands the expanded shells to
// parser.ParsePackage directly so a per-shell parse failure doesn't hide a
// sibling shell's successfully parsed declaration (pipeline.Compile returns
// nil on any parse error, which would hide that).
func parseSrc(t *testing.T, src string) (*ast.File, []error) {
	t.Helper()
	toks := lexer.All([]byte(src), "parser_test.lily")
	info, err := preparser.Prepare(toks)
	require.NoError(t, err)

	p := pkg.NewPackage("parser_test", "parser_test.lily", pkg.StatusStandalone, pkg.Public)
	pc := precompiler.New(pipeline.NoImportLoader{})
	out, err := pc.Process(p, info)
	require.NoError(t, err)

	return parser.ParsePackage("parser_test", out.Imports, out)
}

func firstFuncBodyExpr(t *testing.T, f *ast.File) ast.Expr {
	t.Helper()
	require.NotEmpty(t, f.Decls)
	fn, ok := f.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Len(t, fn.Body, 1)
	stmt, ok := fn.Body[0].(*ast.ExprStmt)
	require.True(t, ok)
	return stmt.Expr
}

func TestPrecedenceMulBindsTighterThanAdd(t *testing.T) {
	f, errs := parseSrc(t, "fun f() Int64 = 1 + 2 * 3;")
	require.Empty(t, errs)

	root, ok := firstFuncBodyExpr(t, f).(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, root.Op)

	require.IsType(t, &ast.IntLit{}, root.Left)
	require.Equal(t, int64(1), root.Left.(*ast.IntLit).Value)

	right, ok := root.Right.(*ast.BinaryExpr)
	require.True(t, ok, "2 * 3 should nest under the addition's right operand")
	require.Equal(t, token.STAR, right.Op)
}

func TestPrecedenceLeftAssociative(t *testing.T) {
	f, errs := parseSrc(t, "fun f() Int64 = 10 - 2 - 3;")
	require.Empty(t, errs)

	root, ok := firstFuncBodyExpr(t, f).(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.MINUS, root.Op)

	left, ok := root.Left.(*ast.BinaryExpr)
	require.True(t, ok, "(10 - 2) - 3: left-associative, so the left child is itself a subtraction")
	require.Equal(t, token.MINUS, left.Op)
	require.Equal(t, int64(10), left.Left.(*ast.IntLit).Value)
	require.Equal(t, int64(2), left.Right.(*ast.IntLit).Value)
	require.Equal(t, int64(3), root.Right.(*ast.IntLit).Value)
}

func TestPrecedencePowRightAssociative(t *testing.T) {
	f, errs := parseSrc(t, "fun f() Int64 = 2 ** 3 ** 2;")
	require.Empty(t, errs)

	root, ok := firstFuncBodyExpr(t, f).(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.POW, root.Op)
	require.Equal(t, int64(2), root.Left.(*ast.IntLit).Value)

	right, ok := root.Right.(*ast.BinaryExpr)
	require.True(t, ok, "2 ** (3 ** 2): right-associative, so the right child is itself a power")
	require.Equal(t, token.POW, right.Op)
}

func TestPrecedenceComparisonBelowArithmetic(t *testing.T) {
	f, errs := parseSrc(t, "fun f() Bool = 1 + 2 < 4;")
	require.Empty(t, errs)

	root, ok := firstFuncBodyExpr(t, f).(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.LT, root.Op)

	left, ok := root.Left.(*ast.BinaryExpr)
	require.True(t, ok, "1 + 2 should bind tighter than <, nesting under its left operand")
	require.Equal(t, token.PLUS, left.Op)
}

func TestErrorRecoveryIsolatesFailingShell(t *testing.T) {
	f, errs := parseSrc(t, `
fun broken() Int64 = + ;
fun ok() Int64 = 1 + 1;
`)
	require.Len(t, errs, 1)
	require.Len(t, f.Decls, 1, "the failing shell must not prevent the sibling shell from parsing")

	fn, ok := f.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "ok", fn.NameStr)
}
