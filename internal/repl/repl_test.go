package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/vm"
)

func TestEvalLinePrintsResult(t *testing.T) {
	r := New("test")
	var buf bytes.Buffer
	r.evalLine("1 + 2", &buf)
	require.Contains(t, buf.String(), "3")
}

func TestEvalLineReportsCompileError(t *testing.T) {
	r := New("test")
	var buf bytes.Buffer
	r.evalLine("1 +", &buf)
	require.Contains(t, buf.String(), "error")
}

func TestEvalLineShowsMIRWhenToggled(t *testing.T) {
	r := New("test")
	r.config.ShowMIR = true
	var buf bytes.Buffer
	r.evalLine("1 + 1", &buf)
	require.Contains(t, buf.String(), "fn __repl_entry")
}

func TestHandleCommandMIRToggle(t *testing.T) {
	r := New("test")
	require.False(t, r.config.ShowMIR)

	var buf bytes.Buffer
	quit := r.handleCommand(":mir", &buf)
	require.False(t, quit)
	require.True(t, r.config.ShowMIR)
	require.Contains(t, buf.String(), "on")
}

func TestHandleCommandModeSwitch(t *testing.T) {
	r := New("test")
	var buf bytes.Buffer

	r.handleCommand(":release", &buf)
	require.Equal(t, vm.ModeRelease, r.config.Mode)

	buf.Reset()
	r.handleCommand(":debug", &buf)
	require.Equal(t, vm.ModeDebug, r.config.Mode)
}

func TestHandleCommandQuit(t *testing.T) {
	r := New("test")
	var buf bytes.Buffer
	require.True(t, r.handleCommand(":quit", &buf))
}

func TestHandleCommandHistory(t *testing.T) {
	r := New("test")
	r.history = []string{"1 + 1", "2 + 2"}
	var buf bytes.Buffer
	r.handleCommand(":history", &buf)
	out := buf.String()
	require.True(t, strings.Contains(out, "1 + 1"))
	require.True(t, strings.Contains(out, "2 + 2"))
}

func TestHandleCommandUnknown(t *testing.T) {
	r := New("test")
	var buf bytes.Buffer
	quit := r.handleCommand(":bogus", &buf)
	require.False(t, quit)
	require.Contains(t, buf.String(), "unknown command")
}

func TestPromptReflectsMode(t *testing.T) {
	r := New("test")
	require.Equal(t, "lily> ", r.prompt())
	r.config.Mode = vm.ModeRelease
	require.Equal(t, "lily[release]> ", r.prompt())
}
