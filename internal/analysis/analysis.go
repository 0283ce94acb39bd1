// Package analysis implements spec.md §4.4: scope resolution, bidirectional
// type inference, generic monomorphization, operator resolution, raise/
// effect tracking, and move/borrow checking, turning a parsed ast.File into
// a checked.Package.
//
// Grounded on the teacher's internal/elaborate package (the AST-to-
// typed-AST walk that threads an environment and substitution through each
// node) and internal/types (unification-style inference), adapted to
// Lily's simpler nominal type system (no typeclass dictionaries) and
// extended with the raise-set and move-checking passes the teacher package
// does not need.
package analysis

import (
	"fmt"

	"github.com/sunholo/lily/internal/analysis/checked"
	"github.com/sunholo/lily/internal/ast"
	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/token"
)

var unitType = checked.Type{Kind: checked.TyUnit, Name: "Unit"}
var neverType = checked.Type{Kind: checked.TyNever, Name: "Never"}

// Checker holds the state of one package's analysis pass: the global
// function/type signature environment (needed to resolve forward
// references) and the package under construction.
type Checker struct {
	funcs   map[string]*checked.FuncDecl
	types   map[string]checked.Type
	pkg     *checked.Package
	nextVar int
	ops     *OperatorRegistry
}

// New creates a Checker with the builtin scalar types pre-registered and a
// fresh per-package operator registry seeded with the default overloads
// (spec.md §4.4, §5).
func New() *Checker {
	c := &Checker{
		funcs: map[string]*checked.FuncDecl{},
		types: map[string]checked.Type{},
		pkg:   &checked.Package{},
		ops:   NewOperatorRegistry(defaultOperatorOverloads()),
	}
	for _, name := range []string{"Int8", "Int16", "Int32", "Int64", "Isize",
		"Uint8", "Uint16", "Uint32", "Uint64", "Usize", "Float32", "Float64"} {
		kind := checked.TyInt
		if name == "Float32" || name == "Float64" {
			kind = checked.TyFloat
		}
		c.types[name] = checked.Type{Kind: kind, Name: name}
	}
	c.types["Bool"] = checked.Type{Kind: checked.TyBool, Name: "Bool"}
	c.types["Str"] = checked.Type{Kind: checked.TyString, Name: "Str"}
	c.types["Char"] = checked.Type{Kind: checked.TyChar, Name: "Char"}
	c.types["Unit"] = unitType
	return c
}

// Check runs analysis over every declaration in f, in two passes: first
// registering every function/type signature (so mutually recursive and
// forward-referenced declarations resolve), then checking each body
// (spec.md §4.4 "two-pass: signatures then bodies").
func (c *Checker) Check(f *ast.File) (*checked.Package, error) {
	for _, d := range f.Decls {
		if err := c.registerSignature(d); err != nil {
			return nil, err
		}
	}
	for _, d := range f.Decls {
		cd, err := c.checkDecl(d)
		if err != nil {
			return nil, err
		}
		if cd != nil {
			c.pkg.Decls = append(c.pkg.Decls, cd)
		}
	}
	if err := c.inferEffects(); err != nil {
		return nil, err
	}
	return c.pkg, nil
}

// inferEffects fills in each checked function's effect flags (spec.md §3.6,
// §4.4 "Effect tracking") by walking its checked body: can_raise is true
// iff the body raises directly, calls a can_raise function, or contains a
// try/catch; raises accumulates the error names that actually propagate
// out (a try with a catch clause absorbs whatever its protected region
// raises); is_recursive is true iff the function is reachable from itself
// through the direct-call graph. Since callees may be defined later in the
// file (or call each other mutually), raises is computed by iterating the
// call graph to a fixed point rather than in one pass.
func (c *Checker) inferEffects() error {
	callees := map[string]map[string]bool{}
	sawTry := map[string]bool{}
	for name, fd := range c.funcs {
		if fd.Body == nil {
			continue
		}
		fd.IsMain = name == "main"
		fd.IsChecked = true
		callees[name] = directCallees(fd.Body)
		sawTry[name] = containsTry(fd.Body)
	}

	raises := map[string]map[string]bool{}
	for pass := 0; pass <= len(c.funcs)+1; pass++ {
		changed := false
		for name, fd := range c.funcs {
			if fd.Body == nil {
				continue
			}
			for errName := range collectRaises(fd.Body, raises) {
				if raises[name] == nil {
					raises[name] = map[string]bool{}
				}
				if !raises[name][errName] {
					raises[name][errName] = true
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	canRaise := map[string]bool{}
	for changed := true; changed; {
		changed = false
		for name, cs := range callees {
			can := len(raises[name]) > 0 || sawTry[name]
			for callee := range cs {
				can = can || canRaise[callee]
			}
			if can && !canRaise[name] {
				canRaise[name], changed = true, true
			}
		}
	}

	for name, fd := range c.funcs {
		if fd.Body == nil {
			continue
		}
		declared := map[string]bool{}
		for _, r := range fd.Raises {
			declared[r.Name] = true
		}
		for errName := range raises[name] {
			if !declared[errName] {
				return errors.WrapReport(&errors.Report{
					Schema: errors.Schema, Code: errors.CodeRaiseNotCaught, Phase: "analysis",
					Message: fmt.Sprintf("function %s raises %q without declaring it in its !%s clause", name, errName, errName),
				})
			}
		}
		fd.CanRaise = canRaise[name]
		fd.IsRecursive = isRecursive(name, callees)
	}
	return nil
}

// directCallees collects the set of function names e calls directly
// (ignoring indirect calls, whose callee isn't statically known).
func directCallees(e checked.Expr) map[string]bool {
	out := map[string]bool{}
	var walk func(checked.Expr)
	walk = func(e checked.Expr) {
		if e == nil {
			return
		}
		switch expr := e.(type) {
		case *checked.Call:
			if expr.Callee != "<indirect>" {
				out[expr.Callee] = true
			}
			for _, a := range expr.Args {
				walk(a)
			}
		case *checked.Raise:
			for _, a := range expr.Args {
				walk(a)
			}
		case *checked.Try:
			walk(expr.Inner)
			walk(expr.CatchBody)
		case *checked.If:
			walk(expr.Cond)
			walk(expr.Then)
			walk(expr.Else)
		case *checked.Block:
			for _, s := range expr.Stmts {
				walk(s)
			}
			walk(expr.Result)
		case *checked.Let:
			walk(expr.Value)
		case *checked.Match:
			walk(expr.Scrutinee)
			for _, a := range expr.Arms {
				walk(a.Body)
			}
		case *checked.BinaryOp:
			walk(expr.Left)
			walk(expr.Right)
		case *checked.UnaryOp:
			walk(expr.Operand)
		case *checked.FieldAccess:
			walk(expr.Object)
		}
	}
	walk(e)
	return out
}

// containsTry reports whether e contains a try (at any depth): a function
// whose body catches a raise is can_raise regardless of whether anything
// still propagates out of it (spec.md §4.4, §8 scenario 6).
func containsTry(e checked.Expr) bool {
	if e == nil {
		return false
	}
	switch expr := e.(type) {
	case *checked.Try:
		return true
	case *checked.Raise:
		for _, a := range expr.Args {
			if containsTry(a) {
				return true
			}
		}
	case *checked.Call:
		for _, a := range expr.Args {
			if containsTry(a) {
				return true
			}
		}
	case *checked.If:
		return containsTry(expr.Cond) || containsTry(expr.Then) || containsTry(expr.Else)
	case *checked.Block:
		for _, s := range expr.Stmts {
			if containsTry(s) {
				return true
			}
		}
		return containsTry(expr.Result)
	case *checked.Let:
		return containsTry(expr.Value)
	case *checked.Match:
		if containsTry(expr.Scrutinee) {
			return true
		}
		for _, a := range expr.Arms {
			if containsTry(a.Body) {
				return true
			}
		}
	case *checked.BinaryOp:
		return containsTry(expr.Left) || containsTry(expr.Right)
	case *checked.UnaryOp:
		return containsTry(expr.Operand)
	case *checked.FieldAccess:
		return containsTry(expr.Object)
	}
	return false
}

// collectRaises returns the set of error names e can propagate out to its
// caller, given the current (possibly still-incomplete, mid-fixed-point)
// raises set of every other function in raisesOf. A try with a catch
// clause absorbs whatever its protected region raises; a bare try (no
// catch) lets it keep propagating.
func collectRaises(e checked.Expr, raisesOf map[string]map[string]bool) map[string]bool {
	out := map[string]bool{}
	if e == nil {
		return out
	}
	merge := func(s map[string]bool) {
		for k := range s {
			out[k] = true
		}
	}
	switch expr := e.(type) {
	case *checked.Raise:
		out[expr.ErrorName] = true
		for _, a := range expr.Args {
			merge(collectRaises(a, raisesOf))
		}
	case *checked.Call:
		for _, a := range expr.Args {
			merge(collectRaises(a, raisesOf))
		}
		merge(raisesOf[expr.Callee])
	case *checked.Try:
		inner := collectRaises(expr.Inner, raisesOf)
		if expr.CatchBody == nil {
			merge(inner)
		}
		merge(collectRaises(expr.CatchBody, raisesOf))
	case *checked.If:
		merge(collectRaises(expr.Cond, raisesOf))
		merge(collectRaises(expr.Then, raisesOf))
		merge(collectRaises(expr.Else, raisesOf))
	case *checked.Block:
		for _, s := range expr.Stmts {
			merge(collectRaises(s, raisesOf))
		}
		merge(collectRaises(expr.Result, raisesOf))
	case *checked.Let:
		merge(collectRaises(expr.Value, raisesOf))
	case *checked.Match:
		merge(collectRaises(expr.Scrutinee, raisesOf))
		for _, a := range expr.Arms {
			merge(collectRaises(a.Body, raisesOf))
		}
	case *checked.BinaryOp:
		merge(collectRaises(expr.Left, raisesOf))
		merge(collectRaises(expr.Right, raisesOf))
	case *checked.UnaryOp:
		merge(collectRaises(expr.Operand, raisesOf))
	case *checked.FieldAccess:
		merge(collectRaises(expr.Object, raisesOf))
	}
	return out
}

// isRecursive reports whether name is reachable from itself through the
// direct-call graph (spec.md §4.4 "Recursion is detected by walking the
// call graph").
func isRecursive(name string, callees map[string]map[string]bool) bool {
	visited := map[string]bool{}
	var dfs func(string) bool
	dfs = func(cur string) bool {
		for callee := range callees[cur] {
			if callee == name {
				return true
			}
			if visited[callee] {
				continue
			}
			visited[callee] = true
			if dfs(callee) {
				return true
			}
		}
		return false
	}
	return dfs(name)
}

func (c *Checker) registerSignature(d ast.Decl) error {
	fd, ok := d.(*ast.FuncDecl)
	if !ok {
		return nil
	}
	params := make([]checked.Param, len(fd.Params))
	for i, p := range fd.Params {
		t, err := c.resolveTypeExpr(p.Type)
		if err != nil {
			return err
		}
		params[i] = checked.Param{Name: p.Name, Type: t}
	}
	ret, err := c.resolveTypeExpr(fd.ReturnType)
	if err != nil {
		return err
	}
	generics := make([]string, len(fd.Generics))
	for i, g := range fd.Generics {
		generics[i] = g.Name
		c.types[g.Name] = checked.Type{Kind: checked.TyGenericParam, Name: g.Name}
	}
	raises := make([]checked.Type, 0, len(fd.Raises))
	for _, r := range fd.Raises {
		raises = append(raises, checked.Type{Kind: checked.TyStruct, Name: r})
	}
	sig := checked.NewFuncDecl(fd.NameStr, generics, params, ret, raises)
	sig.IsAsync = fd.IsAsync
	c.funcs[fd.NameStr] = sig
	return nil
}

func (c *Checker) resolveTypeExpr(te ast.TypeExpr) (checked.Type, error) {
	if te == nil {
		return checked.Type{Kind: checked.TyInferVar, Name: c.freshVar()}, nil
	}
	switch t := te.(type) {
	case *ast.BuiltinType:
		if ty, ok := c.types[t.Name]; ok {
			return ty, nil
		}
		return checked.Type{}, c.unknown(t.Name, t.Loc)
	case *ast.NamedType:
		if ty, ok := c.types[t.Name]; ok {
			return ty, nil
		}
		args := make([]checked.Type, len(t.Generics))
		for i, g := range t.Generics {
			a, err := c.resolveTypeExpr(g)
			if err != nil {
				return checked.Type{}, err
			}
			args[i] = a
		}
		return checked.Type{Kind: checked.TyStruct, Name: t.Name, Args: args, Concrete: true}, nil
	case *ast.GenericType:
		if ty, ok := c.types[t.Name]; ok {
			return ty, nil
		}
		return checked.Type{Kind: checked.TyGenericParam, Name: t.Name}, nil
	case *ast.ListType:
		elem, err := c.resolveTypeExpr(t.Elem)
		if err != nil {
			return checked.Type{}, err
		}
		return checked.Type{Kind: checked.TyList, Name: "List", Args: []checked.Type{elem}}, nil
	case *ast.ArrayType:
		elem, err := c.resolveTypeExpr(t.Elem)
		if err != nil {
			return checked.Type{}, err
		}
		return checked.Type{Kind: checked.TyArray, Name: "Array", Args: []checked.Type{elem}}, nil
	case *ast.TupleType:
		elems := make([]checked.Type, len(t.Elems))
		for i, e := range t.Elems {
			ty, err := c.resolveTypeExpr(e)
			if err != nil {
				return checked.Type{}, err
			}
			elems[i] = ty
		}
		return checked.Type{Kind: checked.TyTuple, Name: "Tuple", Args: elems}, nil
	case *ast.PtrType:
		elem, err := c.resolveTypeExpr(t.Elem)
		if err != nil {
			return checked.Type{}, err
		}
		return checked.Type{Kind: checked.TyPtr, Name: "Ptr", Args: []checked.Type{elem}}, nil
	case *ast.RefType:
		elem, err := c.resolveTypeExpr(t.Elem)
		if err != nil {
			return checked.Type{}, err
		}
		return checked.Type{Kind: checked.TyRef, Name: "Ref", Args: []checked.Type{elem}}, nil
	case *ast.TraceType:
		elem, err := c.resolveTypeExpr(t.Elem)
		if err != nil {
			return checked.Type{}, err
		}
		return checked.Type{Kind: checked.TyTrace, Name: "Trace", Args: []checked.Type{elem}}, nil
	case *ast.LambdaType:
		args := make([]checked.Type, 0, len(t.Params)+1)
		for _, p := range t.Params {
			pt, err := c.resolveTypeExpr(p)
			if err != nil {
				return checked.Type{}, err
			}
			args = append(args, pt)
		}
		ret, err := c.resolveTypeExpr(t.Ret)
		if err != nil {
			return checked.Type{}, err
		}
		args = append(args, ret)
		return checked.Type{Kind: checked.TyFunc, Name: "Fun", Args: args}, nil
	default:
		return checked.Type{}, fmt.Errorf("unsupported type expression %T", te)
	}
}

func (c *Checker) freshVar() string {
	c.nextVar++
	return fmt.Sprintf("t%d", c.nextVar)
}

func (c *Checker) unknown(name string, loc token.Location) error {
	return errors.WrapReport(&errors.Report{
		Schema: errors.Schema, Code: errors.CodeUnknownIdentifier, Phase: "analysis",
		Message: fmt.Sprintf("unknown type %q", name), Loc: &loc,
	})
}

func (c *Checker) checkDecl(d ast.Decl) (checked.Decl, error) {
	switch decl := d.(type) {
	case *ast.FuncDecl:
		return c.checkFunc(decl)
	case *ast.ConstantDecl:
		return c.checkConstant(decl)
	case *ast.TypeDecl, *ast.ObjectDecl, *ast.ErrorDecl, *ast.ModuleDecl:
		return nil, nil // structural declarations carry no executable body to check
	default:
		return nil, fmt.Errorf("unsupported declaration %T", d)
	}
}

func (c *Checker) checkConstant(decl *ast.ConstantDecl) (checked.Decl, error) {
	sc := newScope(nil)
	val, err := c.checkExpr(decl.Value, sc)
	if err != nil {
		return nil, err
	}
	return checked.NewConstantDecl(decl.NameStr, val.ResolvedType(), val), nil
}

func (c *Checker) checkFunc(decl *ast.FuncDecl) (checked.Decl, error) {
	sig := c.funcs[decl.NameStr]
	sc := newScope(nil)
	for _, p := range sig.Params {
		sc.define(p.Name, p.Type, false, isLinear(p.Type))
	}

	body, err := c.checkBlock(decl.Body, sc)
	if err != nil {
		return nil, err
	}
	if sig.Return.Kind != checked.TyInferVar && body.ResolvedType().Kind != checked.TyInferVar {
		if !typesCompatible(sig.Return, body.ResolvedType()) {
			return nil, errors.WrapReport(&errors.Report{
				Schema: errors.Schema, Code: errors.CodeTypeMismatch, Phase: "analysis",
				Message: fmt.Sprintf("function %s declared to return %s but body has type %s", decl.NameStr, sig.Return, body.ResolvedType()),
				Loc:     locPtr(decl.Loc),
			})
		}
	} else if sig.Return.Kind == checked.TyInferVar {
		sig.Return = body.ResolvedType()
	}
	sig.Body = body
	return sig, nil
}

// isLinear reports whether a binding of type t is non-Copy and must be
// tracked linearly (spec.md §4.4 move/borrow checking): struct, array, and
// tuple values move on use, while scalars and references copy.
func isLinear(t checked.Type) bool {
	switch t.Kind {
	case checked.TyStruct, checked.TyArray, checked.TyTuple:
		return true
	default:
		return false
	}
}

// typesCompatible reports whether a value of type got may stand in where
// want is expected. Never (the type of a raise) and Any unify with
// anything, since neither ever denotes a value actually produced at
// runtime to compare structurally (spec.md §4.4 "Never unifies with any
// type").
func typesCompatible(want, got checked.Type) bool {
	if want.Kind == checked.TyGenericParam || got.Kind == checked.TyGenericParam {
		return true
	}
	if want.Kind == checked.TyNever || got.Kind == checked.TyNever {
		return true
	}
	if want.Kind == checked.TyAny || got.Kind == checked.TyAny {
		return true
	}
	return want.Kind == got.Kind
}

func locPtr(l token.Location) *token.Location { return &l }

func (c *Checker) checkBlock(stmts []ast.Stmt, sc *Scope) (*checked.Block, error) {
	inner := sc.child()
	var out []checked.Expr
	var result checked.Expr = checked.NewUnitLit(unitType)
	for i, s := range stmts {
		ce, err := c.checkStmt(s, inner)
		if err != nil {
			return nil, err
		}
		if i == len(stmts)-1 {
			if _, ok := s.(*ast.ExprStmt); ok {
				result = ce
				continue
			}
		}
		out = append(out, ce)
	}
	return checked.NewBlock(out, result, result.ResolvedType()), nil
}

func (c *Checker) checkStmt(s ast.Stmt, sc *Scope) (checked.Expr, error) {
	switch st := s.(type) {
	case *ast.ExprStmt:
		return c.checkExpr(st.Expr, sc)
	case *ast.LetStmt:
		val, err := c.checkExpr(st.Value, sc)
		if err != nil {
			return nil, err
		}
		t := val.ResolvedType()
		if st.Type != nil {
			declared, err := c.resolveTypeExpr(st.Type)
			if err != nil {
				return nil, err
			}
			if !typesCompatible(declared, t) {
				return nil, errors.WrapReport(&errors.Report{
					Schema: errors.Schema, Code: errors.CodeTypeMismatch, Phase: "analysis",
					Message: fmt.Sprintf("let %s: declared %s, value has type %s", st.Name, declared, t),
					Loc:     locPtr(st.Loc),
				})
			}
			t = declared
			if lit, ok := val.(*checked.IntLit); ok && declared.Kind == checked.TyInt {
				val = checked.NewIntLit(lit.Value, declared)
			}
		}
		sc.define(st.Name, t, st.IsMut, isLinear(t))
		return checked.NewLet(st.Name, st.IsMut, val, val), nil
	case *ast.WhileStmt:
		cond, err := c.checkExpr(st.Cond, sc)
		if err != nil {
			return nil, err
		}
		if _, err := c.checkBlock(st.Body, sc); err != nil {
			return nil, err
		}
		return checked.NewIf(cond, checked.NewUnitLit(unitType), checked.NewUnitLit(unitType), unitType), nil
	case *ast.ForStmt:
		iter, err := c.checkExpr(st.Iterable, sc)
		if err != nil {
			return nil, err
		}
		bodyScope := sc.child()
		bodyScope.define(st.Var, checked.Type{Kind: checked.TyInferVar, Name: c.freshVar()}, false, false)
		if _, err := c.checkBlock(st.Body, bodyScope); err != nil {
			return nil, err
		}
		return checked.NewIf(iter, checked.NewUnitLit(unitType), checked.NewUnitLit(unitType), unitType), nil
	case *ast.ReturnStmt:
		if st.Value == nil {
			return checked.NewUnitLit(unitType), nil
		}
		return c.checkExpr(st.Value, sc)
	default:
		return nil, fmt.Errorf("unsupported statement %T", s)
	}
}

func (c *Checker) checkExpr(e ast.Expr, sc *Scope) (checked.Expr, error) {
	switch expr := e.(type) {
	case *ast.IntLit:
		return checked.NewIntLit(expr.Value, checked.Type{Kind: checked.TyInt, Name: "Int32"}), nil
	case *ast.FloatLit:
		return checked.NewFloatLit(expr.Value, checked.Type{Kind: checked.TyFloat, Name: "Float64"}), nil
	case *ast.StringLit:
		return checked.NewStringLit(expr.Value, checked.Type{Kind: checked.TyString, Name: "Str"}), nil
	case *ast.BoolLit:
		return checked.NewBoolLit(expr.Value, checked.Type{Kind: checked.TyBool, Name: "Bool"}), nil
	case *ast.UnitLit:
		return checked.NewUnitLit(unitType), nil
	case *ast.GroupingExpr:
		return c.checkExpr(expr.Inner, sc)
	case *ast.Ident:
		sym := sc.lookup(expr.Name)
		if sym == nil {
			return nil, errors.WrapReport(&errors.Report{
				Schema: errors.Schema, Code: errors.CodeUnknownIdentifier, Phase: "analysis",
				Message: fmt.Sprintf("undefined identifier %q", expr.Name), Loc: locPtr(expr.Loc),
			})
		}
		if sym.linear && sym.moved {
			return nil, errors.WrapReport(&errors.Report{
				Schema: errors.Schema, Code: errors.CodeUseAfterMove, Phase: "analysis",
				Message: fmt.Sprintf("use of moved value %q", expr.Name), Loc: locPtr(expr.Loc),
			})
		}
		wasMoved := sym.moved
		if sym.linear {
			sym.moved = true
		}
		return checked.NewIdent(expr.Name, sym.typ, wasMoved), nil
	case *ast.BinaryExpr:
		return c.checkBinary(expr, sc)
	case *ast.UnaryExpr:
		operand, err := c.checkExpr(expr.Operand, sc)
		if err != nil {
			return nil, err
		}
		return checked.NewUnaryOp(expr.Op.String(), operand, operand.ResolvedType()), nil
	case *ast.CallExpr:
		return c.checkCall(expr, sc)
	case *ast.IfExpr:
		return c.checkIf(expr, sc)
	case *ast.MatchExpr:
		return c.checkMatch(expr, sc)
	case *ast.RaiseExpr:
		args, err := c.checkArgs(expr.Args, sc)
		if err != nil {
			return nil, err
		}
		return checked.NewRaise(expr.ErrorName, args, neverType), nil
	case *ast.TryExpr:
		inner, err := c.checkExpr(expr.Body, sc)
		if err != nil {
			return nil, err
		}
		var catchBody checked.Expr
		if expr.CatchBody != nil {
			catchScope := sc.child()
			if expr.CatchBind != "" {
				catchScope.define(expr.CatchBind, checked.Type{Kind: checked.TyAny, Name: "Any"}, false, false)
			}
			catchBody, err = c.checkExpr(expr.CatchBody, catchScope)
			if err != nil {
				return nil, err
			}
		}
		return checked.NewTry(inner, expr.CatchBind, catchBody), nil
	case *ast.FieldAccessExpr:
		obj, err := c.checkExpr(expr.Receiver, sc)
		if err != nil {
			return nil, err
		}
		return checked.NewFieldAccess(obj, expr.Field, checked.Type{Kind: checked.TyInferVar, Name: c.freshVar()}), nil
	case *ast.CastExpr:
		val, err := c.checkExpr(expr.Value, sc)
		if err != nil {
			return nil, err
		}
		target, err := c.resolveTypeExpr(expr.Type)
		if err != nil {
			return nil, err
		}
		return checked.NewUnaryOp("as", val, target), nil
	default:
		return nil, fmt.Errorf("unsupported expression %T", e)
	}
}

func (c *Checker) checkBinary(expr *ast.BinaryExpr, sc *Scope) (checked.Expr, error) {
	left, err := c.checkExpr(expr.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := c.checkExpr(expr.Right, sc)
	if err != nil {
		return nil, err
	}
	op := expr.Op.String()
	if left.ResolvedType().Kind == checked.TyInferVar || right.ResolvedType().Kind == checked.TyInferVar {
		return checked.NewBinaryOp(op, left, right, "", checked.Type{Kind: checked.TyInferVar, Name: c.freshVar()}), nil
	}
	overload, err := c.ops.resolve(op, left.ResolvedType(), right.ResolvedType())
	if err != nil {
		return nil, err
	}
	return checked.NewBinaryOp(op, left, right, overload.Func, overload.Result), nil
}

func (c *Checker) checkCall(expr *ast.CallExpr, sc *Scope) (checked.Expr, error) {
	ident, ok := expr.Callee.(*ast.Ident)
	if !ok {
		callee, err := c.checkExpr(expr.Callee, sc)
		if err != nil {
			return nil, err
		}
		args, err := c.checkArgs(expr.Args, sc)
		if err != nil {
			return nil, err
		}
		return checked.NewCall("<indirect>", "", args, callee.ResolvedType()), nil
	}
	sig, ok := c.funcs[ident.Name]
	if !ok {
		return nil, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeUnknownIdentifier, Phase: "analysis",
			Message: fmt.Sprintf("call to undefined function %q", ident.Name), Loc: locPtr(expr.Loc),
		})
	}
	if len(expr.Args) != len(sig.Params) {
		return nil, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeGenericArityMismatch, Phase: "analysis",
			Message: fmt.Sprintf("%s expects %d arguments, got %d", ident.Name, len(sig.Params), len(expr.Args)),
			Loc:     locPtr(expr.Loc),
		})
	}
	args, err := c.checkArgs(expr.Args, sc)
	if err != nil {
		return nil, err
	}

	target := checked.SignatureKey(ident.Name)
	if len(sig.Generics) > 0 {
		concrete := make([]checked.Type, len(args))
		for i, a := range args {
			concrete[i] = a.ResolvedType()
		}
		key := checked.MakeSignatureKey(ident.Name, concrete)
		if _, done := sig.Monomorphs[key]; !done {
			mono := checked.NewFuncDecl(ident.Name, nil, sig.Params, sig.Return, sig.Raises)
			sig.Monomorphs[key] = mono
		}
		target = key
	}

	return checked.NewCall(ident.Name, target, args, sig.Return), nil
}

func (c *Checker) checkArgs(in []ast.Expr, sc *Scope) ([]checked.Expr, error) {
	out := make([]checked.Expr, len(in))
	for i, a := range in {
		ce, err := c.checkExpr(a, sc)
		if err != nil {
			return nil, err
		}
		out[i] = ce
	}
	return out, nil
}

func (c *Checker) checkIf(expr *ast.IfExpr, sc *Scope) (checked.Expr, error) {
	cond, err := c.checkExpr(expr.Cond, sc)
	if err != nil {
		return nil, err
	}
	if cond.ResolvedType().Kind != checked.TyBool && cond.ResolvedType().Kind != checked.TyInferVar {
		return nil, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeTypeMismatch, Phase: "analysis",
			Message: "if condition must be Bool", Loc: locPtr(expr.Loc),
		})
	}
	then, err := c.checkExpr(expr.Conseq, sc)
	if err != nil {
		return nil, err
	}
	alt := checked.Expr(checked.NewUnitLit(unitType))
	if expr.Altern != nil {
		alt, err = c.checkExpr(expr.Altern, sc)
		if err != nil {
			return nil, err
		}
	}
	resultType := then.ResolvedType()
	if expr.Altern == nil {
		resultType = unitType
	}
	return checked.NewIf(cond, then, alt, resultType), nil
}

func (c *Checker) checkMatch(expr *ast.MatchExpr, sc *Scope) (checked.Expr, error) {
	scrut, err := c.checkExpr(expr.Scrutinee, sc)
	if err != nil {
		return nil, err
	}
	arms := make([]checked.MatchArm, len(expr.Arms))
	var resultType checked.Type
	for i, a := range expr.Arms {
		armScope := sc.child()
		pat := c.checkPattern(a.Pattern, armScope)
		body, err := c.checkExpr(a.Body, armScope)
		if err != nil {
			return nil, err
		}
		arms[i] = checked.MatchArm{Pattern: pat, Body: body}
		if i == 0 {
			resultType = body.ResolvedType()
		}
	}
	return checked.NewMatch(scrut, arms, resultType), nil
}

func (c *Checker) checkPattern(p ast.Pattern, sc *Scope) checked.Pattern {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		return checked.WildcardPattern{}
	case *ast.IdentPattern:
		t := checked.Type{Kind: checked.TyInferVar, Name: c.freshVar()}
		sc.define(pat.Name, t, false, false)
		return checked.BindPattern{Name: pat.Name, Type: t}
	case *ast.VariantPattern:
		fields := make([]checked.Pattern, len(pat.Fields))
		for i, f := range pat.Fields {
			fields[i] = c.checkPattern(f, sc)
		}
		return checked.VariantPattern{Variant: pat.Variant, Fields: fields}
	default:
		return checked.WildcardPattern{}
	}
}
