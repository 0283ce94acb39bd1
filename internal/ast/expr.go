package ast

import (
	"fmt"
	"strings"

	"github.com/sunholo/lily/internal/token"
)

// Ident is a bare identifier reference.
type Ident struct {
	Name string
	Loc  token.Location
}

func (e *Ident) exprNode()                {}
func (e *Ident) Position() token.Location { return e.Loc }
func (e *Ident) String() string           { return e.Name }

// SelfExpr is the `self` receiver reference inside a method body.
type SelfExpr struct{ Loc token.Location }

func (e *SelfExpr) exprNode()                {}
func (e *SelfExpr) Position() token.Location { return e.Loc }
func (e *SelfExpr) String() string           { return "self" }

// IntLit, FloatLit, StringLit, CharLit, BoolLit, UnitLit are literal nodes.
type IntLit struct {
	Value int64
	Loc   token.Location
}

func (e *IntLit) exprNode()                {}
func (e *IntLit) Position() token.Location { return e.Loc }
func (e *IntLit) String() string           { return fmt.Sprintf("%d", e.Value) }

type FloatLit struct {
	Value float64
	Loc   token.Location
}

func (e *FloatLit) exprNode()                {}
func (e *FloatLit) Position() token.Location { return e.Loc }
func (e *FloatLit) String() string           { return fmt.Sprintf("%g", e.Value) }

type StringLit struct {
	Value string
	Loc   token.Location
}

func (e *StringLit) exprNode()                {}
func (e *StringLit) Position() token.Location { return e.Loc }
func (e *StringLit) String() string           { return fmt.Sprintf("%q", e.Value) }

type CharLit struct {
	Value rune
	Loc   token.Location
}

func (e *CharLit) exprNode()                {}
func (e *CharLit) Position() token.Location { return e.Loc }
func (e *CharLit) String() string           { return fmt.Sprintf("'%c'", e.Value) }

type BoolLit struct {
	Value bool
	Loc   token.Location
}

func (e *BoolLit) exprNode()                {}
func (e *BoolLit) Position() token.Location { return e.Loc }
func (e *BoolLit) String() string           { return fmt.Sprintf("%t", e.Value) }

type UnitLit struct{ Loc token.Location }

func (e *UnitLit) exprNode()                {}
func (e *UnitLit) Position() token.Location { return e.Loc }
func (e *UnitLit) String() string           { return "unit" }

// ArrayLit and ListLit hold ordered element expressions.
type ArrayLit struct {
	Elems []Expr
	Loc   token.Location
}

func (e *ArrayLit) exprNode()                {}
func (e *ArrayLit) Position() token.Location { return e.Loc }
func (e *ArrayLit) String() string           { return fmt.Sprintf("[%d elems]", len(e.Elems)) }

type ListLit struct {
	Elems []Expr
	Loc   token.Location
}

func (e *ListLit) exprNode()                {}
func (e *ListLit) Position() token.Location { return e.Loc }
func (e *ListLit) String() string           { return fmt.Sprintf("(%d list elems)", len(e.Elems)) }

type TupleLit struct {
	Elems []Expr
	Loc   token.Location
}

func (e *TupleLit) exprNode()                {}
func (e *TupleLit) Position() token.Location { return e.Loc }
func (e *TupleLit) String() string           { return fmt.Sprintf("(%d-tuple)", len(e.Elems)) }

// BinaryExpr is a left/right binary operator application, parsed per the
// twelve-level precedence table in spec.md §4.3.
type BinaryExpr struct {
	Op    token.Kind
	Left  Expr
	Right Expr
	Loc   token.Location
}

func (e *BinaryExpr) exprNode()                {}
func (e *BinaryExpr) Position() token.Location { return e.Loc }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// UnaryExpr covers `not`, `-`, `*` (deref), `&`/`&mut` (ref), and trace
// operators, all binding tighter than any binary operator (spec.md §4.3).
type UnaryExpr struct {
	Op      token.Kind
	Operand Expr
	Loc     token.Location
}

func (e *UnaryExpr) exprNode()                {}
func (e *UnaryExpr) Position() token.Location { return e.Loc }
func (e *UnaryExpr) String() string           { return fmt.Sprintf("(%s%s)", e.Op, e.Operand) }

// AssignExpr covers the assignment-family operators (right-assoc, lowest
// precedence level in spec.md §4.3).
type AssignExpr struct {
	Op     token.Kind
	Target Expr
	Value  Expr
	Loc    token.Location
}

func (e *AssignExpr) exprNode()                {}
func (e *AssignExpr) Position() token.Location { return e.Loc }
func (e *AssignExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.Target, e.Op, e.Value)
}

// CallExpr is a function/method call; binds tighter than any unary operator.
type CallExpr struct {
	Callee Expr
	Args   []Expr
	Loc    token.Location
}

func (e *CallExpr) exprNode()                {}
func (e *CallExpr) Position() token.Location { return e.Loc }
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Callee, strings.Join(args, ", "))
}

// FieldAccessExpr is `expr.field`.
type FieldAccessExpr struct {
	Receiver Expr
	Field    string
	Loc      token.Location
}

func (e *FieldAccessExpr) exprNode()                {}
func (e *FieldAccessExpr) Position() token.Location { return e.Loc }
func (e *FieldAccessExpr) String() string           { return fmt.Sprintf("%s.%s", e.Receiver, e.Field) }

// HookExpr is `expr[index]`.
type HookExpr struct {
	Receiver Expr
	Index    Expr
	Loc      token.Location
}

func (e *HookExpr) exprNode()                {}
func (e *HookExpr) Position() token.Location { return e.Loc }
func (e *HookExpr) String() string           { return fmt.Sprintf("%s[%s]", e.Receiver, e.Index) }

// ObjectAccessExpr is `expr@Type`, resolving a variant/method against a
// named object type.
type ObjectAccessExpr struct {
	Receiver Expr
	TypeName string
	Loc      token.Location
}

func (e *ObjectAccessExpr) exprNode()                {}
func (e *ObjectAccessExpr) Position() token.Location { return e.Loc }
func (e *ObjectAccessExpr) String() string           { return fmt.Sprintf("%s@%s", e.Receiver, e.TypeName) }

// CastExpr is an explicit numeric/pointer cast; spec.md §4.4 forbids
// implicit conversion between numeric families, so every conversion is one
// of these nodes.
type CastExpr struct {
	Value Expr
	Type  TypeExpr
	Loc   token.Location
}

func (e *CastExpr) exprNode()                {}
func (e *CastExpr) Position() token.Location { return e.Loc }
func (e *CastExpr) String() string           { return fmt.Sprintf("%s as %s", e.Value, e.Type) }

// LambdaExpr is an anonymous function literal.
type LambdaExpr struct {
	Params []*Param
	Body   Expr
	Loc    token.Location
}

func (e *LambdaExpr) exprNode()                {}
func (e *LambdaExpr) Position() token.Location { return e.Loc }
func (e *LambdaExpr) String() string           { return "lambda(...)" }

// GroupingExpr is a parenthesized expression kept distinct from its inner
// expression so source spans and pretty-printing round-trip.
type GroupingExpr struct {
	Inner Expr
	Loc   token.Location
}

func (e *GroupingExpr) exprNode()                {}
func (e *GroupingExpr) Position() token.Location { return e.Loc }
func (e *GroupingExpr) String() string           { return fmt.Sprintf("(%s)", e.Inner) }

// IfExpr is an `if cond then conseq else altern` expression (AILANG-style;
// Lily's `if` is an expression, not just a statement).
type IfExpr struct {
	Cond   Expr
	Conseq Expr
	Altern Expr // nil if there is no else branch (value is Unit)
	Loc    token.Location
}

func (e *IfExpr) exprNode()                {}
func (e *IfExpr) Position() token.Location { return e.Loc }
func (e *IfExpr) String() string           { return fmt.Sprintf("if %s then %s else %s", e.Cond, e.Conseq, e.Altern) }

// MatchArm is one `pattern -> expr` arm of a match expression.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr // optional guard, nil if absent
	Body    Expr
	Loc     token.Location
}

// MatchExpr is `match scrutinee with arms...`.
type MatchExpr struct {
	Scrutinee Expr
	Arms      []MatchArm
	Loc       token.Location
}

func (e *MatchExpr) exprNode()                {}
func (e *MatchExpr) Position() token.Location { return e.Loc }
func (e *MatchExpr) String() string           { return fmt.Sprintf("match %s with %d arms", e.Scrutinee, len(e.Arms)) }

// TryExpr is `try body catch pattern { handler }`.
type TryExpr struct {
	Body        Expr
	CatchBind   string
	CatchBody   Expr
	Loc         token.Location
}

func (e *TryExpr) exprNode()                {}
func (e *TryExpr) Position() token.Location { return e.Loc }
func (e *TryExpr) String() string           { return fmt.Sprintf("try %s catch %s", e.Body, e.CatchBind) }

// RaiseExpr is `raise ErrorName(args...)`.
type RaiseExpr struct {
	ErrorName string
	Args      []Expr
	Loc       token.Location
}

func (e *RaiseExpr) exprNode()                {}
func (e *RaiseExpr) Position() token.Location { return e.Loc }
func (e *RaiseExpr) String() string           { return fmt.Sprintf("raise %s", e.ErrorName) }

// CompilerFunExpr is a compiler-internal pseudo-call, e.g. `@sizeof(T)`
// (spec.md §3.8: "CompilerFun (compiler-internal pseudo-call)").
type CompilerFunExpr struct {
	Name string
	Args []Expr
	Loc  token.Location
}

func (e *CompilerFunExpr) exprNode()                {}
func (e *CompilerFunExpr) Position() token.Location { return e.Loc }
func (e *CompilerFunExpr) String() string           { return fmt.Sprintf("@%s(...)", e.Name) }
