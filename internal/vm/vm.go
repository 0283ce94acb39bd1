// Package vm implements the interpreter of spec.md §4.6: a register
// machine (one register slice per call, no heap) that directly executes
// mir.Function bodies, with debug-checked
// arithmetic in development builds and release-wrapping arithmetic in
// release builds.
//
// Grounded on the teacher's internal/eval package's Evaluator (env.go's
// Environment chain plus eval_evaluator.go's dispatch-by-node-type loop),
// generalized from a tree-walking interpreter over typed AST to a
// block-and-register interpreter over mir.Function, since Lily's VM
// operates one step below the teacher's typed AST (spec.md §4.6 requires
// an explicit call-stack/block-frame model the teacher's recursive Go
// evaluator gets for free from the Go call stack).
package vm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/mir"
)

// Mode selects debug-checked vs release-wrapping arithmetic (spec.md §4.6:
// "in debug builds, overflow/underflow/division-by-zero raise a checked
// panic; in release builds, signed/unsigned arithmetic wraps per Go's
// native integer semantics").
type Mode int

const (
	ModeDebug Mode = iota
	ModeRelease
)

// Defaults per spec.md §4.6 "Resource limits".
const (
	DefaultStackCapacity = 1 << 20 // 1Mi stack slots
	DefaultMaxCallDepth  = 4096
)

// StackFrame describes one function activation (spec.md §3.11): registers,
// the caller's frame and the caller's PC to resume. Call does not build
// StackFrame values: each activation keeps its registers in a local slice
// and returns through Go's own call stack.
type StackFrame struct {
	Fn       *mir.Function
	Regs     []mir.Value
	ParentPC int
	Parent   *StackFrame
}

// StructValue is the runtime representation of a struct/variant/error
// payload built by OpMakeStruct: Tag carries the variant/error name (read
// back through mir.TagField), Fields the constructor arguments in order
// (spec.md §4.6 "Raise" needs a raised error's identity and payload to
// survive as an actual runtime value a catch clause can bind and inspect).
type StructValue struct {
	Tag    string
	Fields []mir.Value
}

// raiseSignal is the internal, catchable form of a raise as it unwinds
// through nested Call invocations: it carries the raised payload as a Go
// error so an enclosing try region's catch stack (tracked per Call
// activation) gets a chance to intercept it before it reaches the
// outermost frame (spec.md §4.6 "Raise").
type raiseSignal struct {
	Payload mir.Value
}

func (r *raiseSignal) Error() string {
	return fmt.Sprintf("unhandled raise: %s", describeValue(r.Payload))
}

// catchFrame is one active try region: Target is the block a raise jumps
// to when caught, BindReg the register the raised payload is bound into.
type catchFrame struct {
	Target  int
	BindReg int
}

// Machine is one interpreter instance: its module table, the current call
// stack, and configuration (spec.md §4.6 "Machine model").
type Machine struct {
	Modules  map[string]*mir.Module
	Mode     Mode
	MaxDepth int
	Stdout   func(string)

	depth int
}

// New creates a Machine over modules, executing in mode.
func New(modules map[string]*mir.Module, mode Mode) *Machine {
	return &Machine{Modules: modules, Mode: mode, MaxDepth: DefaultMaxCallDepth, Stdout: func(string) {}}
}

// Run executes pkgName's entry function (by convention "main") with no
// arguments and returns its result value (spec.md §4.6 "Entry point").
func (m *Machine) Run(pkgName string) (mir.Value, error) {
	mod, ok := m.Modules[pkgName]
	if !ok {
		return mir.Value{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeVMMissingSymbol, Phase: "vm",
			Message: fmt.Sprintf("package %q not loaded", pkgName),
		})
	}
	fn, ok := mod.Functions["main"]
	if !ok {
		return mir.Value{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeVMMissingSymbol, Phase: "vm",
			Message: fmt.Sprintf("package %q has no main function", pkgName),
		})
	}
	return m.Call(mod, fn, nil)
}

// Call invokes fn with args, running its blocks until a Return terminator,
// an uncaught raise unwinds all the way out, or the raise is intercepted
// by a try region somewhere on the call stack (spec.md §4.6 "Call
// semantics", "Raise"). Only the outermost activation (depth drops back to
// 0) converts a still-unhandled raise into the final CodeVMUncaughtRaise
// report; every inner Call lets it keep propagating as a *raiseSignal so
// callers other than Run (e.g. the REPL, which invokes Call directly) also
// get a proper report rather than the internal signal type.
func (m *Machine) Call(mod *mir.Module, fn *mir.Function, args []mir.Value) (result mir.Value, err error) {
	m.depth++
	defer func() {
		m.depth--
		if m.depth == 0 {
			if rs, ok := err.(*raiseSignal); ok {
				err = errors.WrapReport(&errors.Report{
					Schema: errors.Schema, Code: errors.CodeVMUncaughtRaise, Phase: "vm",
					Message: fmt.Sprintf("uncaught raise: %s", describeValue(rs.Payload)),
				})
			}
		}
	}()
	if m.depth > m.MaxDepth {
		return mir.Value{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeVMStackOverflow, Phase: "vm",
			Message: fmt.Sprintf("call stack exceeded max depth %d", m.MaxDepth),
		})
	}

	regs := make([]mir.Value, fn.NumRegs)
	for i, a := range args {
		if i < len(regs) {
			regs[i] = a
		}
	}

	var catchStack []catchFrame
	prevBlock := -1
	blockIdx := 0
blockLoop:
	for {
		block := fn.Blocks[blockIdx]
		for _, instr := range block.Instr {
			switch instr.Op {
			case mir.OpPushCatch:
				catchStack = append(catchStack, catchFrame{Target: instr.CatchTarget, BindReg: instr.CatchBindReg})
				continue
			case mir.OpPopCatch:
				if len(catchStack) > 0 {
					catchStack = catchStack[:len(catchStack)-1]
				}
				continue
			case mir.OpPhi:
				val, perr := execPhi(instr, regs, prevBlock)
				if perr != nil {
					return mir.Value{}, perr
				}
				if instr.HasDst {
					regs[instr.Dst] = val
				}
				continue
			}
			val, ierr := m.exec(mod, instr, regs)
			if ierr != nil {
				if rs, ok := ierr.(*raiseSignal); ok && len(catchStack) > 0 {
					frame := catchStack[len(catchStack)-1]
					catchStack = catchStack[:len(catchStack)-1]
					regs[frame.BindReg] = rs.Payload
					prevBlock = blockIdx
					blockIdx = frame.Target
					continue blockLoop
				}
				return mir.Value{}, ierr
			}
			if instr.HasDst {
				regs[instr.Dst] = val
			}
		}
		switch block.Term.Kind {
		case mir.TermReturn:
			return resolveArg(block.Term.Value, regs), nil
		case mir.TermBranch:
			prevBlock = blockIdx
			blockIdx = block.Term.Target
		case mir.TermCondBranch:
			cond := resolveArg(block.Term.Cond, regs)
			prevBlock = blockIdx
			if truthy(cond) {
				blockIdx = block.Term.Then
			} else {
				blockIdx = block.Term.Else
			}
		case mir.TermRaise:
			payload := resolveArg(block.Term.Value, regs)
			if len(catchStack) > 0 {
				frame := catchStack[len(catchStack)-1]
				catchStack = catchStack[:len(catchStack)-1]
				regs[frame.BindReg] = payload
				prevBlock = blockIdx
				blockIdx = frame.Target
				continue blockLoop
			}
			return mir.Value{}, &raiseSignal{Payload: payload}
		case mir.TermUnreachable:
			return mir.Value{}, errors.WrapReport(&errors.Report{
				Schema: errors.Schema, Code: errors.CodeRuntime, Phase: "vm",
				Message: "reached unreachable terminator",
			})
		}
	}
}

// describeValue renders a raised payload for an error message: a struct's
// tag name, or the bare constant otherwise.
func describeValue(v mir.Value) string {
	if sv, ok := v.Const.(*StructValue); ok {
		return sv.Tag
	}
	return fmt.Sprintf("%v", v.Const)
}

// execPhi selects the Phi argument produced by prevBlock, the block control
// actually branched in from, rather than guessing from value shape (spec.md
// §4.5 "Phi nodes select by incoming edge, not by value shape").
func execPhi(instr mir.Instr, regs []mir.Value, prevBlock int) (mir.Value, error) {
	for i, b := range instr.PhiBlocks {
		if b == prevBlock {
			return resolveArg(instr.Args[i], regs), nil
		}
	}
	if len(instr.Args) > 0 {
		return resolveArg(instr.Args[0], regs), nil
	}
	return mir.Const(nil, mir.Simple(mir.TUnit)), nil
}

func resolveArg(v mir.Value, regs []mir.Value) mir.Value {
	if v.IsConst {
		return v
	}
	if v.Reg < len(regs) {
		return regs[v.Reg]
	}
	return v
}

func truthy(v mir.Value) bool {
	if b, ok := v.Const.(int64); ok {
		return b != 0
	}
	return false
}

func (m *Machine) exec(mod *mir.Module, instr mir.Instr, regs []mir.Value) (mir.Value, error) {
	args := make([]mir.Value, len(instr.Args))
	for i, a := range instr.Args {
		args[i] = resolveArg(a, regs)
	}
	switch instr.Op {
	case mir.OpConst:
		return args[0], nil
	case mir.OpAdd, mir.OpSub, mir.OpMul, mir.OpDiv, mir.OpMod,
		mir.OpAnd, mir.OpOr, mir.OpXor, mir.OpShl, mir.OpShr:
		return m.arith(instr.Op, args[0], args[1])
	case mir.OpCmpEq, mir.OpCmpNe, mir.OpCmpLt, mir.OpCmpLe, mir.OpCmpGt, mir.OpCmpGe:
		return m.compare(instr.Op, args[0], args[1])
	case mir.OpNeg:
		return negate(args[0])
	case mir.OpNot:
		return boolNot(args[0])
	case mir.OpCast:
		return args[0], nil
	case mir.OpCall:
		return m.callNamed(mod, instr.Callee, args)
	case mir.OpMakeStruct:
		return mir.Const(&StructValue{Tag: instr.Field, Fields: args}, mir.Simple(mir.TStruct)), nil
	case mir.OpFieldGet:
		return fieldGet(args[0], instr.Field)
	default:
		return mir.Value{}, fmt.Errorf("vm: unsupported opcode %v", instr.Op)
	}
}

func (m *Machine) callNamed(mod *mir.Module, name string, args []mir.Value) (mir.Value, error) {
	fn, ok := mod.Functions[name]
	if !ok {
		return mir.Value{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeVMMissingSymbol, Phase: "vm",
			Message: fmt.Sprintf("call to undefined function %q", name),
		})
	}
	return m.Call(mod, fn, args)
}

// fieldGet reads field off v: mir.TagField returns the struct's variant
// tag, any other field name is a positional index into its constructor
// arguments (spec.md §4.5 "match lowers to a decision tree of
// cond-branches" tests the tag this way). Non-struct values pass through
// unchanged, since OpFieldGet is also used for plain record access where
// the checked layer hasn't yet been taught to emit a StructValue.
func fieldGet(v mir.Value, field string) (mir.Value, error) {
	sv, ok := v.Const.(*StructValue)
	if !ok {
		return v, nil
	}
	if field == mir.TagField {
		return mir.Const(sv.Tag, mir.Simple(mir.TStr)), nil
	}
	idx, err := strconv.Atoi(field)
	if err != nil || idx < 0 || idx >= len(sv.Fields) {
		return mir.Value{}, fmt.Errorf("vm: field %q out of range on %s", field, sv.Tag)
	}
	return sv.Fields[idx], nil
}

func asInt(v mir.Value) (int64, bool) {
	i, ok := v.Const.(int64)
	return i, ok
}

func asFloat(v mir.Value) (float64, bool) {
	f, ok := v.Const.(float64)
	return f, ok
}

// arith applies one binary arithmetic opcode, honoring Mode for integer
// overflow/division-by-zero (spec.md §4.6 "Arithmetic semantics").
func (m *Machine) arith(op mir.Op, a, b mir.Value) (mir.Value, error) {
	if af, ok := asFloat(a); ok {
		bf, _ := asFloat(b)
		return mir.Const(floatArith(op, af, bf), a.Type), nil
	}
	ai, _ := asInt(a)
	bi, _ := asInt(b)

	if (op == mir.OpDiv || op == mir.OpMod) && bi == 0 {
		return mir.Value{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeVMDivisionByZero, Phase: "vm",
			Message: "division by zero",
		})
	}

	result := intArith(op, ai, bi)
	if m.Mode == ModeDebug && a.Type.Kind.IsInteger() && overflowsInt(op, ai, bi, result, a.Type.Kind) {
		return mir.Value{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeVMIntegerOverflow, Phase: "vm",
			Message: fmt.Sprintf("integer overflow in %v(%d, %d)", op, ai, bi),
		})
	}
	return mir.Const(wrapToWidth(result, a.Type.Kind), a.Type), nil
}

func floatArith(op mir.Op, a, b float64) float64 {
	switch op {
	case mir.OpAdd:
		return a + b
	case mir.OpSub:
		return a - b
	case mir.OpMul:
		return a * b
	case mir.OpDiv:
		return a / b
	case mir.OpMod:
		return math.Mod(a, b)
	default:
		return 0
	}
}

func intArith(op mir.Op, a, b int64) int64 {
	switch op {
	case mir.OpAdd:
		return a + b
	case mir.OpSub:
		return a - b
	case mir.OpMul:
		return a * b
	case mir.OpDiv:
		return a / b
	case mir.OpMod:
		return a % b
	case mir.OpAnd:
		return a & b
	case mir.OpOr:
		return a | b
	case mir.OpXor:
		return a ^ b
	case mir.OpShl:
		return a << uint(b)
	case mir.OpShr:
		return a >> uint(b)
	default:
		return 0
	}
}

// overflowsInt reports whether the mathematically exact result of op(a,b)
// does not fit in width's integer range, used only in ModeDebug (spec.md
// §4.6: debug builds check overflow; release builds wrap).
func overflowsInt(op mir.Op, a, b, result int64, width mir.Type) bool {
	switch op {
	case mir.OpAdd:
		if (b > 0 && result < a) || (b < 0 && result > a) {
			return true
		}
	case mir.OpSub:
		if (b < 0 && result < a) || (b > 0 && result > a) {
			return true
		}
	case mir.OpMul:
		if a != 0 && b != 0 && result/b != a {
			return true
		}
	default:
		return false
	}
	return wrapToWidth(result, width) != result
}

// wrapToWidth truncates v to width's bit width, the release-build
// semantics (spec.md §4.6).
func wrapToWidth(v int64, width mir.Type) int64 {
	switch width {
	case mir.TI8:
		return int64(int8(v))
	case mir.TI16:
		return int64(int16(v))
	case mir.TI32:
		return int64(int32(v))
	case mir.TU8:
		return int64(uint8(v))
	case mir.TU16:
		return int64(uint16(v))
	case mir.TU32:
		return int64(uint32(v))
	default:
		return v
	}
}

func negate(a mir.Value) (mir.Value, error) {
	if f, ok := asFloat(a); ok {
		return mir.Const(-f, a.Type), nil
	}
	i, _ := asInt(a)
	return mir.Const(-i, a.Type), nil
}

func boolNot(a mir.Value) (mir.Value, error) {
	i, _ := asInt(a)
	if i == 0 {
		return mir.Const(int64(1), a.Type), nil
	}
	return mir.Const(int64(0), a.Type), nil
}

func (m *Machine) compare(op mir.Op, a, b mir.Value) (mir.Value, error) {
	var cmp int
	if af, ok := asFloat(a); ok {
		bf, _ := asFloat(b)
		cmp = cmpFloat(af, bf)
	} else if as, ok := a.Const.(string); ok {
		bs, _ := b.Const.(string)
		cmp = cmpString(as, bs)
	} else {
		ai, _ := asInt(a)
		bi, _ := asInt(b)
		cmp = cmpInt(ai, bi)
	}
	var result bool
	switch op {
	case mir.OpCmpEq:
		result = cmp == 0
	case mir.OpCmpNe:
		result = cmp != 0
	case mir.OpCmpLt:
		result = cmp < 0
	case mir.OpCmpLe:
		result = cmp <= 0
	case mir.OpCmpGt:
		result = cmp > 0
	case mir.OpCmpGe:
		result = cmp >= 0
	}
	v := int64(0)
	if result {
		v = 1
	}
	return mir.Const(v, mir.Simple(mir.TI1)), nil
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
