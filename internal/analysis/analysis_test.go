package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/analysis/checked"
	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/pipeline"
)

func checkSrc(t *testing.T, src string) (*pipeline.Result, []error) {
	t.Helper()
	return pipeline.Compile("analysis_test.lily", src, pipeline.NoImportLoader{})
}

func firstReportCode(t *testing.T, errs []error) string {
	t.Helper()
	require.NotEmpty(t, errs)
	rep, ok := errors.AsReport(errs[0])
	require.True(t, ok, "expected a *errors.Report, got %T", errs[0])
	return rep.Code
}

func TestCheckSimpleFunction(t *testing.T) {
	res, errs := checkSrc(t, "fun add(x: Int64, y: Int64) Int64 = x + y;")
	require.Empty(t, errs)
	require.Equal(t, 1, res.Checked.FunctionCount())

	fn, ok := res.Checked.Decls[0].(*checked.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name())
	require.Len(t, fn.Params, 2)
	require.Equal(t, checked.TyInt, fn.Params[0].Type.Kind)
	require.Equal(t, checked.TyInt, fn.Params[1].Type.Kind)
	require.Equal(t, checked.TyInt, fn.Return.Kind)
}

func TestCheckUnknownIdentifier(t *testing.T) {
	_, errs := checkSrc(t, "fun f() Int64 = y;")
	require.Equal(t, errors.CodeUnknownIdentifier, firstReportCode(t, errs))
}

func TestCheckCallArityMismatch(t *testing.T) {
	_, errs := checkSrc(t, `
fun one(x: Int64) Int64 = x;
fun two() Int64 = one(1, 2);
`)
	require.Equal(t, errors.CodeGenericArityMismatch, firstReportCode(t, errs))
}

func TestCheckIfConditionMustBeBool(t *testing.T) {
	_, errs := checkSrc(t, "fun f() Int64 = if 1 { 2 } else { 3 };")
	require.Equal(t, errors.CodeTypeMismatch, firstReportCode(t, errs))
}

func TestCheckUnresolvedOperator(t *testing.T) {
	_, errs := checkSrc(t, `fun f() Bool = true + false;`)
	require.Equal(t, errors.CodeUnresolvedOperator, firstReportCode(t, errs))
}

func TestCheckStructParamIsLinear(t *testing.T) {
	// A struct-shaped parameter (any unregistered named type) is non-Copy
	// and moves on use; referencing it twice is a use-after-move error.
	_, errs := checkSrc(t, "fun make(p: Point) Int64 = p + p;")
	require.Equal(t, errors.CodeUseAfterMove, firstReportCode(t, errs))
}

func TestCheckStructParamSingleUseIsFine(t *testing.T) {
	res, errs := checkSrc(t, "fun touch(p: Point) Point = p;")
	require.Empty(t, errs)
	fn, ok := res.Checked.Decls[0].(*checked.FuncDecl)
	require.True(t, ok)
	require.Equal(t, checked.TyStruct, fn.Params[0].Type.Kind)
	require.Equal(t, checked.TyStruct, fn.Return.Kind)
}

func TestCheckScalarParamIsNotLinear(t *testing.T) {
	res, errs := checkSrc(t, "fun twice(x: Int64) Int64 = x + x;")
	require.Empty(t, errs)
	require.Equal(t, 1, res.Checked.FunctionCount())
}
