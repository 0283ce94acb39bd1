package errors

// Error codes grouped by pipeline phase, following the uppercase phase
// prefix + 3-digit taxonomy set out in spec.md §7 (CodeRuntime is the one
// code without a number).
const (
	// Lex/Preparse (PRP###)
	CodeMalformedTopLevel    = "PRP001"
	CodeUnbalancedDelimiters = "PRP002"
	CodeIncompleteMacro      = "PRP003"
	CodeBadParamKind         = "PRP004"
	CodeUnknownParamKind     = "PRP005"

	// Resolve/Import (PRC###)
	CodeImportNotFound         = "PRC001"
	CodeAmbiguousImport        = "PRC002"
	CodePrivateImportAccess    = "PRC003"
	CodeCyclicPackageDep       = "PRC004"
	CodeMacroRecursionLimit    = "PRC005"
	CodeMacroArityMismatch     = "PRC006"
	CodeMacroUnusedParam       = "PRC007"
	CodeMacroUnknownParam      = "PRC008"

	// Parse (PAR###)
	CodeExpectedToken        = "PAR001"
	CodeReservedKeywordMisuse = "PAR002"
	CodeBadPrecedenceContext = "PAR003"

	// Type/Analysis (TYP###)
	CodeTypeMismatch              = "TYP001"
	CodeUnresolvedOperator        = "TYP002"
	CodeAmbiguousOperator         = "TYP003"
	CodeUnknownIdentifier         = "TYP004"
	CodeUseAfterMove              = "TYP005"
	CodeBorrowOfTemporary         = "TYP006"
	CodeGenericArityMismatch      = "TYP007"
	CodeUnconcretizedInferVar     = "TYP008"

	// Effect (EFF###)
	CodeRaiseNotCaught         = "EFF001"
	CodeAsyncInsideSync        = "EFF002"
	CodeRecursionInConstContext = "EFF003"

	// MIR (MIR###)
	CodeMIRMissingSymbol     = "MIR001"
	CodeMIRIllegalTerminator = "MIR002"
	CodeMIRTypeMismatch      = "MIR003"

	// VM runtime (VM###)
	CodeVMDivisionByZero  = "VM001"
	CodeVMIntegerOverflow = "VM002"
	CodeVMUncaughtRaise   = "VM003"
	CodeVMOutOfMemory     = "VM004"
	CodeVMStackOverflow   = "VM005"
	CodeVMMissingSymbol   = "VM006"

	// Build (BLD###)
	CodeBackendFailure = "BLD001"
	CodeLinkerFailure  = "BLD002"

	// Generic/IO
	CodeRuntime         = "RUNTIME"
	CodeIOFileNotFound  = "IO001"
	CodeIOPermission    = "IO002"
	CodeIOShortRead     = "IO003"
)
