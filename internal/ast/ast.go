// Package ast defines the full abstract syntax tree produced by the parser
// (spec.md §4.3) from an expanded declaration-shell token span.
package ast

import (
	"fmt"
	"strings"

	"github.com/sunholo/lily/internal/token"
)

// Node is the base interface implemented by every AST node.
type Node interface {
	String() string
	Position() token.Location
}

// Expr is any expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
}

// TypeExpr is any parsed type expression (spec.md §4.3).
type TypeExpr interface {
	Node
	typeNode()
}

// Pattern is any parsed pattern (match arms, destructuring).
type Pattern interface {
	Node
	patternNode()
}

// Decl is any top-level declaration.
type Decl interface {
	Node
	declNode()
	Name() string
}

// File is one parsed source file: a package header, an import list, and the
// declarations produced by parsing every declaration shell the preparser and
// precompiler handed to the parser.
type File struct {
	Package string
	Imports []*Import
	Decls   []Decl
	Loc     token.Location
}

func (f *File) Position() token.Location { return f.Loc }
func (f *File) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n", f.Package)
	for _, d := range f.Decls {
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	return b.String()
}

// GenericParam is one entry of a generic parameter list, e.g. `[T]`.
type GenericParam struct {
	Name  string
	Bound string // optional trait bound, empty if unconstrained
	Loc   token.Location
}

// Param is a function/method parameter.
type Param struct {
	Name     string
	Type     TypeExpr // nil if untyped/inferred
	Default  Expr     // nil if no default
	IsMut    bool
	IsMoved  bool // not set by analysis, which tracks moves on its scope symbols
	Loc      token.Location
}

// FuncDecl represents `fun name[generics](params) RetType !raises = body`.
type FuncDecl struct {
	NameStr    string
	Generics   []GenericParam
	Params     []*Param
	ReturnType TypeExpr
	Raises     []string // named error types after `!`
	Body       []Stmt
	IsPub      bool
	IsAsync    bool
	Loc        token.Location
}

func (d *FuncDecl) declNode()               {}
func (d *FuncDecl) Name() string            { return d.NameStr }
func (d *FuncDecl) Position() token.Location { return d.Loc }
func (d *FuncDecl) String() string {
	return fmt.Sprintf("fun %s(...)", d.NameStr)
}

// MethodDecl represents `method Name(self, params) Ret = body` bound to an
// object declaration.
type MethodDecl struct {
	Receiver string
	FuncDecl
}

func (d *MethodDecl) Name() string { return d.Receiver + "." + d.FuncDecl.NameStr }

// TypeDecl represents `type Name[generics] = TypeExpr` or `alias`.
type TypeDecl struct {
	NameStr  string
	Generics []GenericParam
	Body     TypeExpr
	IsAlias  bool
	IsPub    bool
	Loc      token.Location
}

func (d *TypeDecl) declNode()                {}
func (d *TypeDecl) Name() string             { return d.NameStr }
func (d *TypeDecl) Position() token.Location { return d.Loc }
func (d *TypeDecl) String() string           { return fmt.Sprintf("type %s", d.NameStr) }

// ObjectField is one field of a record/enum object.
type ObjectField struct {
	Name string
	Type TypeExpr
	Loc  token.Location
}

// ObjectDecl represents `record X { ... }`, `enum X { ... }`, `class X { ... }`,
// `trait X { ... }`, and the `enum object` / `record object` variants.
type ObjectDecl struct {
	NameStr  string
	Kind     string // "record", "enum", "class", "trait", "enum-object", "record-object"
	Generics []GenericParam
	Fields   []ObjectField
	Methods  []*MethodDecl
	IsPub    bool
	Loc      token.Location
}

func (d *ObjectDecl) declNode()                {}
func (d *ObjectDecl) Name() string             { return d.NameStr }
func (d *ObjectDecl) Position() token.Location { return d.Loc }
func (d *ObjectDecl) String() string           { return fmt.Sprintf("%s %s {...}", d.Kind, d.NameStr) }

// ModuleDecl represents a nested `module Name { ... }` shell.
type ModuleDecl struct {
	NameStr string
	Decls   []Decl
	IsPub   bool
	Loc     token.Location
}

func (d *ModuleDecl) declNode()                {}
func (d *ModuleDecl) Name() string             { return d.NameStr }
func (d *ModuleDecl) Position() token.Location { return d.Loc }
func (d *ModuleDecl) String() string           { return fmt.Sprintf("module %s {...}", d.NameStr) }

// ConstantDecl represents `constant Name Type = expr`.
type ConstantDecl struct {
	NameStr string
	Type    TypeExpr
	Value   Expr
	IsPub   bool
	Loc     token.Location
}

func (d *ConstantDecl) declNode()                {}
func (d *ConstantDecl) Name() string             { return d.NameStr }
func (d *ConstantDecl) Position() token.Location { return d.Loc }
func (d *ConstantDecl) String() string           { return fmt.Sprintf("constant %s", d.NameStr) }

// ErrorDecl represents `error Name(fields...)`.
type ErrorDecl struct {
	NameStr string
	Fields  []ObjectField
	IsPub   bool
	Loc     token.Location
}

func (d *ErrorDecl) declNode()                {}
func (d *ErrorDecl) Name() string             { return d.NameStr }
func (d *ErrorDecl) Position() token.Location { return d.Loc }
func (d *ErrorDecl) String() string           { return fmt.Sprintf("error %s", d.NameStr) }

// Import is one parsed import (spec.md §3.3): an ordered sequence of import
// values interpreted left-to-right as a path walk from a root, plus an
// optional alias.
type Import struct {
	Path  []ImportValue
	Alias string // empty if unaliased
	Loc   token.Location
}

func (i *Import) Position() token.Location { return i.Loc }
func (i *Import) String() string {
	parts := make([]string, len(i.Path))
	for idx, v := range i.Path {
		parts[idx] = v.String()
	}
	s := strings.Join(parts, ".")
	if i.Alias != "" {
		s += " as " + i.Alias
	}
	return s
}

// ImportValueKind tags one element of an import path (spec.md §3.3).
type ImportValueKind int

const (
	IVAccess ImportValueKind = iota
	IVFile
	IVLibrary
	IVPackage
	IVSelectAll
	IVSelect
	IVStd
	IVCore
	IVSys
	IVBuiltin
	IVUrl
)

// ImportValue is one tagged element of an import path.
type ImportValue struct {
	Kind   ImportValueKind
	Ident  string          // for IVAccess, IVPackage, IVLibrary
	Path   string          // for IVFile, IVUrl
	Select [][]ImportValue // for IVSelect: a list of sub-paths
}

func (v ImportValue) String() string {
	switch v.Kind {
	case IVAccess, IVPackage, IVLibrary:
		return v.Ident
	case IVFile, IVUrl:
		return v.Path
	case IVSelectAll:
		return "*"
	case IVSelect:
		return "{...}"
	case IVStd:
		return "std"
	case IVCore:
		return "core"
	case IVSys:
		return "sys"
	case IVBuiltin:
		return "builtin"
	default:
		return "?"
	}
}
