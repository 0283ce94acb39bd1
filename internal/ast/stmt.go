package ast

import (
	"fmt"

	"github.com/sunholo/lily/internal/token"
)

// LetStmt binds a name to a value in the enclosing block scope.
type LetStmt struct {
	Name    string
	Type    TypeExpr // nil if inferred
	Value   Expr
	IsMut   bool
	Loc     token.Location
}

func (s *LetStmt) stmtNode()                {}
func (s *LetStmt) Position() token.Location { return s.Loc }
func (s *LetStmt) String() string           { return fmt.Sprintf("let %s = %s", s.Name, s.Value) }

// ExprStmt wraps an expression used in statement position (Lily is
// expression-oriented; most statements are simply expressions for effect).
type ExprStmt struct {
	Expr Expr
	Loc  token.Location
}

func (s *ExprStmt) stmtNode()                {}
func (s *ExprStmt) Position() token.Location { return s.Loc }
func (s *ExprStmt) String() string           { return s.Expr.String() }

// WhileStmt is `while cond { body }`.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
	Loc  token.Location
}

func (s *WhileStmt) stmtNode()                {}
func (s *WhileStmt) Position() token.Location { return s.Loc }
func (s *WhileStmt) String() string           { return fmt.Sprintf("while %s {...}", s.Cond) }

// ForStmt is `for x in iterable { body }`; desugars to While during MIR
// lowering (spec.md §4.5).
type ForStmt struct {
	Var      string
	Iterable Expr
	Body     []Stmt
	Loc      token.Location
}

func (s *ForStmt) stmtNode()                {}
func (s *ForStmt) Position() token.Location { return s.Loc }
func (s *ForStmt) String() string           { return fmt.Sprintf("for %s in %s {...}", s.Var, s.Iterable) }

// ReturnStmt is an explicit early return.
type ReturnStmt struct {
	Value Expr // nil for bare `return`
	Loc   token.Location
}

func (s *ReturnStmt) stmtNode()                {}
func (s *ReturnStmt) Position() token.Location { return s.Loc }
func (s *ReturnStmt) String() string           { return "return " + exprOrEmpty(s.Value) }

func exprOrEmpty(e Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}
