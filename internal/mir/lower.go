package mir

import (
	"fmt"

	"github.com/sunholo/lily/internal/analysis/checked"
)

// Lower translates one package's checked declarations into a Module
// (spec.md §4.5 "Lowering rules"): each checked.FuncDecl becomes one
// Function with a single entry block per straight-line region, splitting
// at `if`/`match` branches.
//
// Grounded on the teacher's internal/eval package's structural walk over
// typed AST (eval_typed.go dispatches on the checked node's concrete type
// to produce a runtime Value); lower.go performs the analogous dispatch
// but emits MIR instructions into a block builder instead of evaluating
// directly, since the VM (not the lowering pass) interprets MIR.
func Lower(pkgName string, decls []checked.Decl) (*Module, error) {
	m := NewModule(pkgName)
	for _, d := range decls {
		fd, ok := d.(*checked.FuncDecl)
		if !ok {
			continue
		}
		fn, err := lowerFunc(fd)
		if err != nil {
			return nil, err
		}
		m.AddFunction(fn)
		for key, mono := range fd.Monomorphs {
			monoFn, err := lowerFunc(mono)
			if err != nil {
				return nil, err
			}
			monoFn.Name = fd.Name() + "$" + string(key)
			m.AddFunction(monoFn)
		}
	}
	return m, nil
}

// builder accumulates blocks/instructions for one function being lowered.
type builder struct {
	fn      *Function
	cur     int // index of the block currently being appended to
	nextReg int
}

func newBuilder(fn *Function) *builder {
	fn.Blocks = append(fn.Blocks, Block{Name: "entry"})
	return &builder{fn: fn, cur: 0}
}

func (b *builder) emit(instr Instr) Value {
	if instr.HasDst {
		instr.Dst = b.nextReg
		b.nextReg++
	}
	b.fn.Blocks[b.cur].Instr = append(b.fn.Blocks[b.cur].Instr, instr)
	if instr.HasDst {
		return Reg(instr.Dst, resultTypeOf(instr))
	}
	return Value{}
}

func resultTypeOf(instr Instr) ValueType {
	if len(instr.Args) > 0 {
		return instr.Args[0].Type
	}
	return Simple(TAny)
}

func (b *builder) newBlock(name string) int {
	b.fn.Blocks = append(b.fn.Blocks, Block{Name: name})
	return len(b.fn.Blocks) - 1
}

func (b *builder) setBlock(idx int) { b.cur = idx }

func (b *builder) terminate(t Terminator) {
	b.fn.Blocks[b.cur].Term = t
}

func lowerFunc(fd *checked.FuncDecl) (*Function, error) {
	fn := &Function{
		Name:   fd.Name(),
		Return: toMIRType(fd.Return),
	}
	for _, p := range fd.Params {
		fn.Params = append(fn.Params, toMIRType(p.Type))
		fn.ParamNames = append(fn.ParamNames, p.Name)
	}
	for _, r := range fd.Raises {
		fn.Raises = append(fn.Raises, toMIRType(r))
	}

	b := newBuilder(fn)
	regOf := map[string]int{}
	for i, name := range fn.ParamNames {
		regOf[name] = i
	}
	b.nextReg = len(fn.ParamNames)

	retVal, err := lowerExpr(b, fd.Body, regOf)
	if err != nil {
		return nil, err
	}
	b.terminate(Terminator{Kind: TermReturn, Value: retVal})
	fn.NumRegs = b.nextReg
	return fn, nil
}

func toMIRType(t checked.Type) ValueType {
	switch t.Kind {
	case checked.TyInt:
		return Simple(intWidth(t.Name))
	case checked.TyFloat:
		if t.Name == "Float32" {
			return Simple(TF32)
		}
		return Simple(TF64)
	case checked.TyBool:
		return Simple(TI1)
	case checked.TyString:
		return Simple(TStr)
	case checked.TyChar:
		return Simple(TU32)
	case checked.TyUnit:
		return Simple(TUnit)
	case checked.TyList:
		if len(t.Args) == 1 {
			return ValueType{Kind: TList, Elem: elemPtr(t.Args[0])}
		}
		return ValueType{Kind: TList, Elem: elemPtr(Simple2Checked())}
	case checked.TyArray:
		if len(t.Args) == 1 {
			return ValueType{Kind: TArray, Elem: elemPtr(t.Args[0]), ArrayLen: -1}
		}
		return Simple(TArray)
	case checked.TyTuple:
		vt := ValueType{Kind: TTuple, ArrayLen: -1}
		for _, a := range t.Args {
			vt.Fields = append(vt.Fields, toMIRType(a))
		}
		return vt
	case checked.TyPtr:
		if len(t.Args) == 1 {
			return ValueType{Kind: TPtr, Elem: elemPtr(t.Args[0])}
		}
		return Simple(TPtr)
	case checked.TyRef:
		if len(t.Args) == 1 {
			return ValueType{Kind: TRef, Elem: elemPtr(t.Args[0])}
		}
		return Simple(TRef)
	case checked.TyTrace:
		return Simple(TAny)
	case checked.TyStruct, checked.TyEnum:
		vt := ValueType{Kind: TStruct, ArrayLen: -1}
		for _, a := range t.Args {
			vt.Fields = append(vt.Fields, toMIRType(a))
		}
		return vt
	default:
		return Simple(TAny)
	}
}

func elemPtr(t checked.Type) *ValueType {
	v := toMIRType(t)
	return &v
}

// Simple2Checked is the placeholder element type (Int64) used for a list
// type that carries no element type argument. Analysis does not reject
// unresolved inference variables before lowering; toMIRType maps those
// to TAny.
func Simple2Checked() checked.Type { return checked.Type{Kind: checked.TyInt, Name: "Int64"} }

func intWidth(name string) Type {
	switch name {
	case "Int8", "Uint8":
		return TI8
	case "Int16", "Uint16":
		return TI16
	case "Int32", "Uint32":
		return TI32
	case "Isize":
		return TIsize
	case "Usize":
		return TUsize
	default:
		return TI64
	}
}

func lowerExpr(b *builder, e checked.Expr, regOf map[string]int) (Value, error) {
	switch expr := e.(type) {
	case *checked.IntLit:
		return Const(expr.Value, toMIRType(expr.ResolvedType())), nil
	case *checked.FloatLit:
		return Const(expr.Value, toMIRType(expr.ResolvedType())), nil
	case *checked.StringLit:
		return Const(expr.Value, toMIRType(expr.ResolvedType())), nil
	case *checked.BoolLit:
		v := int64(0)
		if expr.Value {
			v = 1
		}
		return Const(v, Simple(TI1)), nil
	case *checked.UnitLit:
		return Const(nil, Simple(TUnit)), nil
	case *checked.Ident:
		if reg, ok := regOf[expr.Name]; ok {
			return Reg(reg, toMIRType(expr.ResolvedType())), nil
		}
		return Value{}, fmt.Errorf("lowering: unbound identifier %q", expr.Name)
	case *checked.BinaryOp:
		left, err := lowerExpr(b, expr.Left, regOf)
		if err != nil {
			return Value{}, err
		}
		right, err := lowerExpr(b, expr.Right, regOf)
		if err != nil {
			return Value{}, err
		}
		op, ok := binOpOf(expr.Op)
		if !ok {
			return Value{}, fmt.Errorf("lowering: unsupported operator %q", expr.Op)
		}
		return b.emit(Instr{Op: op, HasDst: true, Args: []Value{left, right}, Callee: expr.OperatorFunc}), nil
	case *checked.UnaryOp:
		operand, err := lowerExpr(b, expr.Operand, regOf)
		if err != nil {
			return Value{}, err
		}
		if expr.Op == "as" {
			return b.emit(Instr{Op: OpCast, HasDst: true, Args: []Value{operand}}), nil
		}
		op := OpNeg
		if expr.Op == "not" {
			op = OpNot
		}
		return b.emit(Instr{Op: op, HasDst: true, Args: []Value{operand}}), nil
	case *checked.Call:
		args := make([]Value, len(expr.Args))
		for i, a := range expr.Args {
			v, err := lowerExpr(b, a, regOf)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		name := expr.Callee
		if expr.Target != "" && string(expr.Target) != expr.Callee {
			name = expr.Callee + "$" + string(expr.Target)
		}
		return b.emit(Instr{Op: OpCall, HasDst: true, Args: args, Callee: name}), nil
	case *checked.FieldAccess:
		obj, err := lowerExpr(b, expr.Object, regOf)
		if err != nil {
			return Value{}, err
		}
		return b.emit(Instr{Op: OpFieldGet, HasDst: true, Args: []Value{obj}, Field: expr.Field}), nil
	case *checked.If:
		return lowerIf(b, expr, regOf)
	case *checked.Block:
		for _, s := range expr.Stmts {
			if _, err := lowerExpr(b, s, regOf); err != nil {
				return Value{}, err
			}
		}
		return lowerExpr(b, expr.Result, regOf)
	case *checked.Let:
		v, err := lowerExpr(b, expr.Value, regOf)
		if err != nil {
			return Value{}, err
		}
		if !v.IsConst {
			regOf[expr.Name] = v.Reg
		} else {
			moved := b.emit(Instr{Op: OpConst, HasDst: true, Args: []Value{v}})
			regOf[expr.Name] = moved.Reg
		}
		return v, nil
	case *checked.Raise:
		args := make([]Value, len(expr.Args))
		for i, a := range expr.Args {
			v, err := lowerExpr(b, a, regOf)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		payload := b.emit(Instr{Op: OpMakeStruct, HasDst: true, Args: args, Field: expr.ErrorName})
		b.terminate(Terminator{Kind: TermRaise, Value: payload})
		// The raise terminator never falls through, so the block this
		// register would be read from is unreachable; the value itself is
		// only needed to keep lowerExpr's recursive callers happy (e.g. a
		// raise used as a Block's trailing expression).
		return Const(nil, Simple(TUnit)), nil
	case *checked.Try:
		return lowerTry(b, expr, regOf)
	case *checked.Match:
		return lowerMatch(b, expr, regOf)
	default:
		return Value{}, fmt.Errorf("lowering: unsupported checked expression %T", e)
	}
}

func binOpOf(op string) (Op, bool) {
	switch op {
	case "+":
		return OpAdd, true
	case "-":
		return OpSub, true
	case "*":
		return OpMul, true
	case "/":
		return OpDiv, true
	case "%":
		return OpMod, true
	case "==":
		return OpCmpEq, true
	case "not=":
		return OpCmpNe, true
	case "<":
		return OpCmpLt, true
	case "<=":
		return OpCmpLe, true
	case ">":
		return OpCmpGt, true
	case ">=":
		return OpCmpGe, true
	case "&":
		return OpAnd, true
	case "|":
		return OpOr, true
	case "^":
		return OpXor, true
	case "<<":
		return OpShl, true
	case ">>":
		return OpShr, true
	case "and":
		return OpAnd, true
	case "or":
		return OpOr, true
	default:
		return 0, false
	}
}

// lowerIf splits the current block into then/else/join blocks (spec.md
// §4.5: "if/match lower to a conditional branch plus a join block carrying
// the result via Phi"). The join's Phi tags each incoming value with the
// block that actually falls through to it (not necessarily thenIdx/elseIdx
// themselves, since either arm may itself contain nested control flow that
// splits further blocks before reaching the join) so the VM can select the
// live value by the edge it actually took, not by inspecting the value.
func lowerIf(b *builder, expr *checked.If, regOf map[string]int) (Value, error) {
	cond, err := lowerExpr(b, expr.Cond, regOf)
	if err != nil {
		return Value{}, err
	}
	thenIdx := b.newBlock("if.then")
	elseIdx := b.newBlock("if.else")
	joinIdx := b.newBlock("if.join")
	b.terminate(Terminator{Kind: TermCondBranch, Cond: cond, Then: thenIdx, Else: elseIdx})

	b.setBlock(thenIdx)
	thenVal, err := lowerExpr(b, expr.Then, regOf)
	if err != nil {
		return Value{}, err
	}
	thenExit := b.cur
	b.terminate(Terminator{Kind: TermBranch, Target: joinIdx})

	b.setBlock(elseIdx)
	var elseVal Value
	if expr.Else != nil {
		elseVal, err = lowerExpr(b, expr.Else, regOf)
		if err != nil {
			return Value{}, err
		}
	} else {
		elseVal = Const(nil, Simple(TUnit))
	}
	elseExit := b.cur
	b.terminate(Terminator{Kind: TermBranch, Target: joinIdx})

	b.setBlock(joinIdx)
	return b.emit(Instr{
		Op: OpPhi, HasDst: true,
		Args:      []Value{thenVal, elseVal},
		PhiBlocks: []int{thenExit, elseExit},
	}), nil
}

// lowerMatch lowers to a decision tree of conditional branches with a
// default trap block (spec.md §4.5): each arm gets a test block that either
// falls straight through to its arm (irrefutable patterns: wildcard/bind)
// or conditionally branches to its arm vs. the next test (refutable
// patterns: literal/variant), and a final trap block is reached only if no
// arm's test matched.
func lowerMatch(b *builder, expr *checked.Match, regOf map[string]int) (Value, error) {
	scrutinee, err := lowerExpr(b, expr.Scrutinee, regOf)
	if err != nil {
		return Value{}, err
	}
	joinIdx := b.newBlock("match.join")
	trapIdx := b.newBlock("match.trap")

	var phiArgs []Value
	var phiBlocks []int
	for i, arm := range expr.Arms {
		armScope := map[string]int{}
		for k, v := range regOf {
			armScope[k] = v
		}
		testIdx := b.cur
		matched, refutable, err := emitPatternTest(b, arm.Pattern, scrutinee, armScope)
		if err != nil {
			return Value{}, err
		}
		armIdx := b.newBlock("match.arm")
		if refutable {
			nextTestIdx := trapIdx
			if i < len(expr.Arms)-1 {
				nextTestIdx = b.newBlock("match.test")
			}
			b.setBlock(testIdx)
			b.terminate(Terminator{Kind: TermCondBranch, Cond: matched, Then: armIdx, Else: nextTestIdx})
			b.setBlock(nextTestIdx)
		} else {
			b.setBlock(testIdx)
			b.terminate(Terminator{Kind: TermBranch, Target: armIdx})
		}

		b.setBlock(armIdx)
		v, err := lowerExpr(b, arm.Body, armScope)
		if err != nil {
			return Value{}, err
		}
		armExit := b.cur
		b.terminate(Terminator{Kind: TermBranch, Target: joinIdx})
		phiArgs = append(phiArgs, v)
		phiBlocks = append(phiBlocks, armExit)

		if !refutable {
			// An irrefutable arm always matches, so every later arm is
			// unreachable; stop extending the test chain.
			break
		}
	}

	b.setBlock(trapIdx)
	b.terminate(Terminator{Kind: TermUnreachable})

	b.setBlock(joinIdx)
	return b.emit(Instr{Op: OpPhi, HasDst: true, Args: phiArgs, PhiBlocks: phiBlocks}), nil
}

// emitPatternTest emits whatever instructions are needed to test scrutinee
// against p, binding any names p introduces into scope. It returns the
// boolean condition value to branch on and whether the pattern is
// refutable at all (wildcard/bind patterns always match and need no
// branch).
func emitPatternTest(b *builder, p checked.Pattern, scrutinee Value, scope map[string]int) (Value, bool, error) {
	switch pat := p.(type) {
	case checked.WildcardPattern:
		return Value{}, false, nil
	case checked.BindPattern:
		reg := b.emit(Instr{Op: OpConst, HasDst: true, Args: []Value{scrutinee}})
		scope[pat.Name] = reg.Reg
		return Value{}, false, nil
	case checked.LiteralPattern:
		lit, err := lowerExpr(b, pat.Value, scope)
		if err != nil {
			return Value{}, false, err
		}
		cmp := b.emit(Instr{Op: OpCmpEq, HasDst: true, Args: []Value{scrutinee, lit}})
		return cmp, true, nil
	case checked.VariantPattern:
		tag := b.emit(Instr{Op: OpFieldGet, HasDst: true, Args: []Value{scrutinee}, Field: TagField})
		wantTag := Const(pat.Variant, Simple(TStr))
		cmp := b.emit(Instr{Op: OpCmpEq, HasDst: true, Args: []Value{tag, wantTag}})
		for i, f := range pat.Fields {
			fieldVal := b.emit(Instr{Op: OpFieldGet, HasDst: true, Args: []Value{scrutinee}, Field: fmt.Sprintf("%d", i)})
			// Nested sub-patterns inside a variant's fields are bound
			// irrefutably here; a refutable nested pattern (e.g. a literal
			// inside a variant field) is not yet decision-tree tested.
			if _, _, err := emitPatternTest(b, f, fieldVal, scope); err != nil {
				return Value{}, false, err
			}
		}
		return cmp, true, nil
	default:
		return Value{}, false, nil
	}
}

// lowerTry establishes a catch landing block for expr.Inner: OpPushCatch
// registers the landing block and bind register before evaluating the
// protected region, OpPopCatch retires it once the region completes
// normally, and the VM redirects a raise that occurs anywhere underneath
// (including inside a callee) to the landing block while the catch frame
// is live (spec.md §4.6 "Raise").
func lowerTry(b *builder, expr *checked.Try, regOf map[string]int) (Value, error) {
	catchIdx := b.newBlock("try.catch")
	joinIdx := b.newBlock("try.join")

	bindReg := b.nextReg
	b.nextReg++
	b.emit(Instr{Op: OpPushCatch, CatchTarget: catchIdx, CatchBindReg: bindReg})

	innerVal, err := lowerExpr(b, expr.Inner, regOf)
	if err != nil {
		return Value{}, err
	}
	b.emit(Instr{Op: OpPopCatch})
	tryExit := b.cur
	b.terminate(Terminator{Kind: TermBranch, Target: joinIdx})

	b.setBlock(catchIdx)
	catchScope := map[string]int{}
	for k, v := range regOf {
		catchScope[k] = v
	}
	var catchVal Value
	if expr.CatchBind != "" {
		catchScope[expr.CatchBind] = bindReg
	}
	if expr.CatchBody != nil {
		catchVal, err = lowerExpr(b, expr.CatchBody, catchScope)
		if err != nil {
			return Value{}, err
		}
	} else {
		catchVal = Reg(bindReg, Simple(TAny))
	}
	catchExit := b.cur
	b.terminate(Terminator{Kind: TermBranch, Target: joinIdx})

	b.setBlock(joinIdx)
	return b.emit(Instr{
		Op: OpPhi, HasDst: true,
		Args:      []Value{innerVal, catchVal},
		PhiBlocks: []int{tryExit, catchExit},
	}), nil
}
