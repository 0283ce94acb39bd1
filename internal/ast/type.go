package ast

import (
	"fmt"
	"strings"

	"github.com/sunholo/lily/internal/token"
)

// NamedType is a simple or generic-instantiated named type, e.g. `Int32`,
// `List[Int32]`, `Custom[T, U]`.
type NamedType struct {
	Name     string
	Generics []TypeExpr
	Loc      token.Location
}

func (t *NamedType) typeNode()               {}
func (t *NamedType) Position() token.Location { return t.Loc }
func (t *NamedType) String() string {
	if len(t.Generics) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Generics))
	for i, g := range t.Generics {
		parts[i] = g.String()
	}
	return fmt.Sprintf("%s[%s]", t.Name, strings.Join(parts, ", "))
}

// GenericType is a bare generic-parameter reference, e.g. `T`.
type GenericType struct {
	Name string
	Loc  token.Location
}

func (t *GenericType) typeNode()               {}
func (t *GenericType) Position() token.Location { return t.Loc }
func (t *GenericType) String() string           { return t.Name }

// PtrType is `Ptr(T)` / `*T`.
type PtrType struct {
	Elem TypeExpr
	Loc  token.Location
}

func (t *PtrType) typeNode()               {}
func (t *PtrType) Position() token.Location { return t.Loc }
func (t *PtrType) String() string           { return fmt.Sprintf("*%s", t.Elem) }

// RefType is `Ref(T)` / `&T` or `&mut T`.
type RefType struct {
	Elem  TypeExpr
	Mut   bool
	Loc   token.Location
}

func (t *RefType) typeNode()               {}
func (t *RefType) Position() token.Location { return t.Loc }
func (t *RefType) String() string {
	if t.Mut {
		return fmt.Sprintf("&mut %s", t.Elem)
	}
	return fmt.Sprintf("&%s", t.Elem)
}

// TraceType is `Trace(T)`, a runtime reference-counted reference.
type TraceType struct {
	Elem TypeExpr
	Loc  token.Location
}

func (t *TraceType) typeNode()               {}
func (t *TraceType) Position() token.Location { return t.Loc }
func (t *TraceType) String() string           { return fmt.Sprintf("Trace(%s)", t.Elem) }

// ArrayType is `Array(T, length)`.
type ArrayType struct {
	Elem   TypeExpr
	Length int // -1 if undefined length
	Loc    token.Location
}

func (t *ArrayType) typeNode()               {}
func (t *ArrayType) Position() token.Location { return t.Loc }
func (t *ArrayType) String() string           { return fmt.Sprintf("Array(%s, %d)", t.Elem, t.Length) }

// ListType is `List(T)`.
type ListType struct {
	Elem TypeExpr
	Loc  token.Location
}

func (t *ListType) typeNode()               {}
func (t *ListType) Position() token.Location { return t.Loc }
func (t *ListType) String() string           { return fmt.Sprintf("List(%s)", t.Elem) }

// TupleType is `(T1, T2, ...)`.
type TupleType struct {
	Elems []TypeExpr
	Loc   token.Location
}

func (t *TupleType) typeNode()               {}
func (t *TupleType) Position() token.Location { return t.Loc }
func (t *TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}

// LambdaType is `(Param1, Param2) -> Ret`.
type LambdaType struct {
	Params []TypeExpr
	Ret    TypeExpr
	Loc    token.Location
}

func (t *LambdaType) typeNode()               {}
func (t *LambdaType) Position() token.Location { return t.Loc }
func (t *LambdaType) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Ret)
}

// BuiltinType is one of the fixed scalar/unit/any/never families spelled out
// by spec.md §3.9 (integer/float families, Bool, Char, CStr, Str, Bytes,
// Unit, Any, Never).
type BuiltinType struct {
	Name string
	Loc  token.Location
}

func (t *BuiltinType) typeNode()               {}
func (t *BuiltinType) Position() token.Location { return t.Loc }
func (t *BuiltinType) String() string           { return t.Name }
