// Package token defines the lexical token kinds and located tokens that the
// scanner produces. The scanner itself is an external collaborator (see
// spec.md §1); this package only fixes the shape the rest of the pipeline
// borrows tokens through.
package token

import "fmt"

// Kind identifies the lexical category of a token.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF
	COMMENT

	// Literals
	IDENT
	INT
	FLOAT
	STRING
	CHAR

	// Keywords
	FUN
	PUB
	IMPORT
	MACRO
	AS
	TYPE
	MODULE
	OBJECT
	CONSTANT
	ERROR
	ALIAS
	ENUM
	RECORD
	CLASS
	TRAIT
	METHOD
	LET
	MUT
	IF
	ELSE
	MATCH
	WITH
	SELF
	TRY
	CATCH
	RAISE
	AND
	OR
	NOT
	TRUE
	FALSE
	UNIT_KW

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	POW // **
	SHL // <<
	SHR // >>
	AMP // &
	CARET
	PIPE
	RANGE // ..
	EQ
	NOTEQ // not=
	LT
	LTE
	GT
	GTE
	PIPEGT // |>
	LARROW // <-
	ARROW  // ->
	ASSIGN
	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN
	PERCENT_ASSIGN
	POW_ASSIGN
	PIPE_ASSIGN
	AMP_ASSIGN
	CARET_ASSIGN
	SHL_ASSIGN
	SHR_ASSIGN
	AMPMUT // &mut
	AT     // @ (object access)

	// Delimiters
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	DOT
	COLON
	DCOLON
	BANG // ! (raises marker)
	SEMICOLON
	NEWLINE
)

var names = map[Kind]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", COMMENT: "COMMENT",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING", CHAR: "CHAR",
	FUN: "fun", PUB: "pub", IMPORT: "import", MACRO: "macro", AS: "as",
	TYPE: "type", MODULE: "module", OBJECT: "object", CONSTANT: "constant",
	ERROR: "error", ALIAS: "alias", ENUM: "enum", RECORD: "record",
	CLASS: "class", TRAIT: "trait", METHOD: "method", LET: "let", MUT: "mut",
	IF: "if", ELSE: "else", MATCH: "match", WITH: "with", SELF: "self",
	TRY: "try", CATCH: "catch", RAISE: "raise", AND: "and", OR: "or",
	NOT: "not", TRUE: "true", FALSE: "false", UNIT_KW: "unit",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%", POW: "**",
	SHL: "<<", SHR: ">>", AMP: "&", CARET: "^", PIPE: "|", RANGE: "..",
	EQ: "==", NOTEQ: "not=", LT: "<", LTE: "<=", GT: ">", GTE: ">=",
	PIPEGT: "|>", LARROW: "<-", ARROW: "->", ASSIGN: "=",
	PLUS_ASSIGN: "+=", MINUS_ASSIGN: "-=", STAR_ASSIGN: "*=",
	SLASH_ASSIGN: "/=", PERCENT_ASSIGN: "%=", POW_ASSIGN: "**=",
	PIPE_ASSIGN: "|=", AMP_ASSIGN: "&=", CARET_ASSIGN: "^=",
	SHL_ASSIGN: "<<=", SHR_ASSIGN: ">>=", AMPMUT: "&mut", AT: "@",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[",
	RBRACKET: "]", COMMA: ",", DOT: ".", COLON: ":", DCOLON: "::",
	BANG: "!", SEMICOLON: ";", NEWLINE: "NEWLINE",
}

// Keywords maps reserved identifiers to their keyword kind.
var Keywords = map[string]Kind{
	"fun": FUN, "pub": PUB, "import": IMPORT, "macro": MACRO, "as": AS,
	"type": TYPE, "module": MODULE, "object": OBJECT, "constant": CONSTANT,
	"error": ERROR, "alias": ALIAS, "enum": ENUM, "record": RECORD,
	"class": CLASS, "trait": TRAIT, "method": METHOD, "let": LET,
	"mut": MUT, "if": IF, "else": ELSE, "match": MATCH, "with": WITH,
	"self": SELF, "try": TRY, "catch": CATCH, "raise": RAISE,
	"and": AND, "or": OR, "not": NOT, "true": TRUE, "false": FALSE,
	"unit": UNIT_KW,
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Location pins a token (or a span) to a source position, per spec.md §3.1.
type Location struct {
	FileID    string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	StartOff  int
	EndOff    int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FileID, l.StartLine, l.StartCol)
}

// Token is one lexeme with its kind and location. The core pipeline treats
// tokens as borrowed and never mutates them (spec.md §3.1).
type Token struct {
	Kind   Kind
	Lexeme string
	Loc    Location
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Lexeme, t.Loc)
}

// IsOpenDelim reports whether the token opens a balanced delimiter pair.
func IsOpenDelim(k Kind) bool {
	return k == LPAREN || k == LBRACE || k == LBRACKET
}

// IsCloseDelim reports whether the token closes a balanced delimiter pair.
func IsCloseDelim(k Kind) bool {
	return k == RPAREN || k == RBRACE || k == RBRACKET
}

// MatchesOpen reports whether closeKind is the matching closer for open.
func MatchesOpen(open, closeKind Kind) bool {
	switch open {
	case LPAREN:
		return closeKind == RPAREN
	case LBRACE:
		return closeKind == RBRACE
	case LBRACKET:
		return closeKind == RBRACKET
	}
	return false
}
