package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsReportRoundTrip(t *testing.T) {
	rep := &Report{Schema: Schema, Code: CodeTypeMismatch, Phase: "analysis", Message: "mismatch"}
	err := WrapReport(rep)
	require.Error(t, err)

	got, ok := AsReport(err)
	require.True(t, ok)
	require.Equal(t, CodeTypeMismatch, got.Code)
}

func TestWrapReportNil(t *testing.T) {
	require.NoError(t, WrapReport(nil))
}

func TestReportToJSON(t *testing.T) {
	rep := &Report{Schema: Schema, Code: CodeImportNotFound, Phase: "precompiler", Message: "not found"}
	js, err := rep.ToJSON(true)
	require.NoError(t, err)
	require.Contains(t, js, CodeImportNotFound)
	require.Contains(t, js, Schema)
}

func TestCodesAreUnique(t *testing.T) {
	codes := []string{
		CodeMalformedTopLevel, CodeUnbalancedDelimiters, CodeIncompleteMacro,
		CodeImportNotFound, CodeAmbiguousImport, CodeCyclicPackageDep,
		CodeTypeMismatch, CodeUnresolvedOperator, CodeMIRMissingSymbol,
		CodeVMDivisionByZero, CodeVMIntegerOverflow, CodeBackendFailure,
	}
	seen := map[string]bool{}
	for _, c := range codes {
		require.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
}
