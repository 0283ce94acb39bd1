package ast

import (
	"fmt"
	"strings"

	"github.com/sunholo/lily/internal/token"
)

// WildcardPattern is `_`.
type WildcardPattern struct{ Loc token.Location }

func (p *WildcardPattern) patternNode()           {}
func (p *WildcardPattern) Position() token.Location { return p.Loc }
func (p *WildcardPattern) String() string           { return "_" }

// IdentPattern binds the scrutinee (or sub-value) to a name.
type IdentPattern struct {
	Name string
	Loc  token.Location
}

func (p *IdentPattern) patternNode()           {}
func (p *IdentPattern) Position() token.Location { return p.Loc }
func (p *IdentPattern) String() string           { return p.Name }

// LiteralPattern matches a literal value exactly.
type LiteralPattern struct {
	Value Expr
	Loc   token.Location
}

func (p *LiteralPattern) patternNode()           {}
func (p *LiteralPattern) Position() token.Location { return p.Loc }
func (p *LiteralPattern) String() string           { return p.Value.String() }

// VariantPattern destructures an enum variant, e.g. `Some(x)`.
type VariantPattern struct {
	Variant string
	Fields  []Pattern
	Loc     token.Location
}

func (p *VariantPattern) patternNode()           {}
func (p *VariantPattern) Position() token.Location { return p.Loc }
func (p *VariantPattern) String() string {
	parts := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s(%s)", p.Variant, strings.Join(parts, ", "))
}

// TuplePattern destructures a tuple positionally.
type TuplePattern struct {
	Elems []Pattern
	Loc   token.Location
}

func (p *TuplePattern) patternNode()           {}
func (p *TuplePattern) Position() token.Location { return p.Loc }
func (p *TuplePattern) String() string {
	parts := make([]string, len(p.Elems))
	for i, e := range p.Elems {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}

// RecordFieldPattern is one `name: pattern` entry of a RecordPattern.
type RecordFieldPattern struct {
	Name    string
	Pattern Pattern
}

// RecordPattern destructures a record by field name.
type RecordPattern struct {
	Fields []RecordFieldPattern
	Loc    token.Location
}

func (p *RecordPattern) patternNode()           {}
func (p *RecordPattern) Position() token.Location { return p.Loc }
func (p *RecordPattern) String() string           { return fmt.Sprintf("{%d fields}", len(p.Fields)) }

// OrPattern matches if any of its alternatives match, e.g. `1 | 2 | 3`.
type OrPattern struct {
	Alts []Pattern
	Loc  token.Location
}

func (p *OrPattern) patternNode()           {}
func (p *OrPattern) Position() token.Location { return p.Loc }
func (p *OrPattern) String() string {
	parts := make([]string, len(p.Alts))
	for i, a := range p.Alts {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}
