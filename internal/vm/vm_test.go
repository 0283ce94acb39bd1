package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/mir"
	"github.com/sunholo/lily/internal/pipeline"
	"github.com/sunholo/lily/internal/vm"
)

func compileAndRun(t *testing.T, body string, mode vm.Mode) (mir.Value, error) {
	t.Helper()
	src := "fun entry() = (" + body + ");"
	res, errs := pipeline.Compile("test.lily", src, pipeline.NoImportLoader{})
	require.Empty(t, errs)

	fn, ok := res.MIR.Functions["entry"]
	require.True(t, ok)

	m := vm.New(map[string]*mir.Module{res.MIR.PackageName: res.MIR}, mode)
	return m.Call(res.MIR, fn, nil)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want int64
	}{
		{"add", "1 + 2", 3},
		{"sub", "10 - 4", 6},
		{"mul", "6 * 7", 42},
		{"div", "84 / 2", 42},
		{"mod", "10 % 3", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := compileAndRun(t, tt.expr, vm.ModeDebug)
			require.NoError(t, err)
			require.Equal(t, tt.want, val.Const)
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := compileAndRun(t, "1 / 0", vm.ModeDebug)
	require.Error(t, err)
}

func TestIfBranching(t *testing.T) {
	val, err := compileAndRun(t, "if true { 1 } else { 2 }", vm.ModeDebug)
	require.NoError(t, err)
	require.Equal(t, int64(1), val.Const)

	val, err = compileAndRun(t, "if false { 1 } else { 2 }", vm.ModeDebug)
	require.NoError(t, err)
	require.Equal(t, int64(2), val.Const)
}

func TestComparison(t *testing.T) {
	val, err := compileAndRun(t, "3 < 5", vm.ModeDebug)
	require.NoError(t, err)
	require.Equal(t, int64(1), val.Const)
}

func TestReleaseModeWraps(t *testing.T) {
	val, err := compileAndRun(t, "{ let a: Int8 = 100; let b: Int8 = 100; a + b }", vm.ModeRelease)
	require.NoError(t, err)
	require.Equal(t, int64(-56), val.Const)

	_, err = compileAndRun(t, "{ let a: Int8 = 100; let b: Int8 = 100; a + b }", vm.ModeDebug)
	require.Error(t, err)
}
