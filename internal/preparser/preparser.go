// Package preparser implements the block-level skeletonizer of spec.md §4.1:
// it segments a token stream into declaration-level units without building
// expression-level AST.
package preparser

import (
	"fmt"

	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/token"
)

// ParamKind tags a macro parameter by the syntactic category it captures
// (spec.md §3.4).
type ParamKind int

const (
	ParamIdent ParamKind = iota
	ParamType
	ParamSingleToken
	ParamTokenSeq
	ParamStatement
	ParamExpression
	ParamPath
	ParamPattern
	ParamBlock
)

// paramSuffix maps the type-like suffix used in macro signatures
// (`id/ty/tk/tks/stmt/expr/path/patt/block`, spec.md §4.1) to a ParamKind.
var paramSuffix = map[string]ParamKind{
	"id": ParamIdent, "ty": ParamType, "tk": ParamSingleToken,
	"tks": ParamTokenSeq, "stmt": ParamStatement, "expr": ParamExpression,
	"path": ParamPath, "patt": ParamPattern, "block": ParamBlock,
}

// MacroParam is one declared parameter of a macro.
type MacroParam struct {
	Name string
	Kind ParamKind
	Used bool // set when the body references @Name at least once
}

// Macro is a macro definition captured by the preparser (spec.md §3.4): a
// name, optional parameter list, and an unparsed token span for the body.
type Macro struct {
	Name   string
	Params []MacroParam
	Body   []token.Token // borrowed span, never copied into an owned slice
	Loc    token.Location
}

// DeclKind tags a declaration shell by its introducing keyword.
type DeclKind int

const (
	DeclFun DeclKind = iota
	DeclType
	DeclModule
	DeclObject
	DeclConstant
	DeclError
	DeclAlias
	DeclEnum
	DeclRecord
	DeclClass
	DeclTrait
	DeclEnumObject
	DeclRecordObject
	DeclMethod
)

// DeclShell is a named AST header plus the unparsed token span of its body
// (Glossary: "Declaration shell").
type DeclShell struct {
	Name    string
	Kind    DeclKind
	IsPub   bool
	Tokens  []token.Token // the balanced span covering the whole declaration
	Nested  []DeclShell   // nested module declarations produce nested shells
	Loc     token.Location
}

// Import is a preparsed import path: an ordered sequence of raw path
// segments up to a terminator or `as` (spec.md §3.3/§4.1).
type Import struct {
	Segments []string
	Alias    string
	IsPub    bool
	Loc      token.Location
}

// Info is the preparser's complete output for one file (spec.md §4.1
// "Responsibility"): package header, public/private import lists,
// public/private macro definitions, and an ordered declaration-shell list.
type Info struct {
	PackageName    string
	PublicImports  []Import
	PrivateImports []Import
	PublicMacros   []Macro
	PrivateMacros  []Macro
	Shells         []DeclShell
}

// mode is the preparser's two-mode state machine (spec.md §4.1 "State
// machine").
type mode int

const (
	modeTopLevel mode = iota
	modeInsideDecl
)

// preparser holds the single-pass cursor over the borrowed token stream.
type preparser struct {
	toks []token.Token
	pos  int
	info *Info
}

// Prepare walks tokens and emits the package header, import lists, macro
// definitions, and declaration shells (spec.md §4.1 "prepare(tokens) →
// PreparserInfo"). It never evaluates expressions. On unbalanced
// delimiters it skips to the next top-level keyword and keeps going, then
// returns the collected Info together with the first such error.
func Prepare(toks []token.Token) (*Info, error) {
	p := &preparser{toks: toks, info: &Info{}}
	var recovered error
	for !p.atEOF() {
		if err := p.topLevelStep(); err != nil {
			var re *errors.Report
			if r, ok := errors.AsReport(err); ok {
				re = r
			}
			if re != nil && re.Code == errors.CodeUnbalancedDelimiters {
				// Recover: advance to the next top-level keyword.
				if recovered == nil {
					recovered = err
				}
				p.recoverToNextDecl()
				continue
			}
			return nil, err
		}
	}
	return p.info, recovered
}

func (p *preparser) atEOF() bool {
	return p.pos >= len(p.toks) || p.cur().Kind == token.EOF
}

func (p *preparser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *preparser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *preparser) topLevelStep() error {
	t := p.cur()
	switch t.Kind {
	case token.MODULE:
		return p.parseModuleHeaderOrDecl()
	case token.PUB:
		p.advance()
		return p.pubForm()
	case token.IMPORT:
		return p.importForm(false)
	case token.MACRO:
		return p.macroForm(false)
	case token.FUN, token.TYPE, token.OBJECT, token.CONSTANT, token.ERROR,
		token.ALIAS, token.ENUM, token.RECORD, token.CLASS, token.TRAIT,
		token.METHOD:
		shell, err := p.declShell(false)
		if err != nil {
			return err
		}
		p.info.Shells = append(p.info.Shells, shell)
		return nil
	case token.SEMICOLON, token.NEWLINE:
		p.advance()
		return nil
	case token.EOF:
		return nil
	default:
		return errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeMalformedTopLevel,
			Phase:   "preparser",
			Message: fmt.Sprintf("unexpected token %s at top level", t.Kind),
			Data:    map[string]interface{}{"lexeme": t.Lexeme},
		})
	}
}

func (p *preparser) pubForm() error {
	switch p.cur().Kind {
	case token.IMPORT:
		return p.importForm(true)
	case token.MACRO:
		return p.macroForm(true)
	case token.FUN, token.TYPE, token.OBJECT, token.CONSTANT, token.ERROR,
		token.ALIAS, token.ENUM, token.RECORD, token.CLASS, token.TRAIT,
		token.METHOD:
		shell, err := p.declShell(true)
		if err != nil {
			return err
		}
		p.info.Shells = append(p.info.Shells, shell)
		return nil
	case token.MODULE:
		return p.parseModuleHeaderOrDecl()
	default:
		return errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeMalformedTopLevel,
			Phase: "preparser", Message: "expected import, macro, or declaration after pub",
		})
	}
}

// parseModuleHeaderOrDecl handles a bare `module path;` header (no braces)
// when it appears once at the very start of the shell list, or a nested
// `module Name { ... }` declaration otherwise.
func (p *preparser) parseModuleHeaderOrDecl() error {
	loc := p.cur().Loc
	p.advance() // consume 'module'
	if p.info.PackageName == "" && len(p.info.Shells) == 0 {
		start := p.pos
		name := p.readDottedPath()
		if p.cur().Kind != token.LBRACE {
			p.info.PackageName = name
			p.skipTerminator()
			return nil
		}
		p.pos = start
	}
	shell, err := p.declShellFrom(DeclModule, false, loc)
	if err != nil {
		return err
	}
	p.info.Shells = append(p.info.Shells, shell)
	return nil
}

func (p *preparser) readDottedPath() string {
	name := ""
	for p.cur().Kind == token.IDENT || p.cur().Kind == token.DOT {
		name += p.advance().Lexeme
	}
	return name
}

func (p *preparser) skipTerminator() {
	if p.cur().Kind == token.SEMICOLON || p.cur().Kind == token.NEWLINE {
		p.advance()
	}
}

// importForm parses `import <path> [as ident]` up to a terminator.
func (p *preparser) importForm(isPub bool) error {
	loc := p.cur().Loc
	p.advance() // consume 'import'
	var segs []string
	for {
		t := p.cur()
		if t.Kind == token.IDENT || t.Kind == token.AT {
			segs = append(segs, p.advance().Lexeme)
			if p.cur().Kind == token.DOT {
				p.advance()
				continue
			}
		}
		break
	}
	alias := ""
	if p.cur().Kind == token.AS {
		p.advance()
		alias = p.advance().Lexeme
	}
	p.skipTerminator()
	imp := Import{Segments: segs, Alias: alias, IsPub: isPub, Loc: loc}
	if isPub {
		p.info.PublicImports = append(p.info.PublicImports, imp)
	} else {
		p.info.PrivateImports = append(p.info.PrivateImports, imp)
	}
	return nil
}

// macroForm parses `macro name(params) { tokens... }`.
func (p *preparser) macroForm(isPub bool) error {
	loc := p.cur().Loc
	p.advance() // consume 'macro'
	name := p.advance().Lexeme

	var params []MacroParam
	if p.cur().Kind == token.LPAREN {
		p.advance()
		for p.cur().Kind != token.RPAREN && !p.atEOF() {
			pname := p.advance().Lexeme
			kind := ParamTokenSeq
			if p.cur().Kind == token.COLON {
				p.advance()
				suffix := p.advance().Lexeme
				if k, ok := paramSuffix[suffix]; ok {
					kind = k
				} else {
					return errors.WrapReport(&errors.Report{
						Schema: errors.Schema, Code: errors.CodeUnknownParamKind,
						Phase: "preparser", Message: fmt.Sprintf("unknown macro parameter kind %q", suffix),
					})
				}
			}
			params = append(params, MacroParam{Name: pname, Kind: kind})
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		if p.cur().Kind != token.RPAREN {
			return errors.WrapReport(&errors.Report{
				Schema: errors.Schema, Code: errors.CodeUnbalancedDelimiters,
				Phase: "preparser", Message: "unbalanced macro parameter list",
			})
		}
		p.advance() // consume ')'
	}

	if p.cur().Kind != token.LBRACE {
		return errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeIncompleteMacro,
			Phase: "preparser", Message: "expected '{' to start macro body",
		})
	}
	body, err := p.balancedSpan()
	if err != nil {
		return err
	}
	markUsedParams(params, body)

	m := Macro{Name: name, Params: params, Body: body, Loc: loc}
	if isPub {
		p.info.PublicMacros = append(p.info.PublicMacros, m)
	} else {
		p.info.PrivateMacros = append(p.info.PrivateMacros, m)
	}
	return nil
}

// markUsedParams sets Used on each param whose name is referenced in body as
// an `@name` placeholder token sequence.
func markUsedParams(params []MacroParam, body []token.Token) {
	for i := range params {
		for j, t := range body {
			if t.Kind == token.AT && j+1 < len(body) && body[j+1].Lexeme == params[i].Name {
				params[i].Used = true
				break
			}
		}
	}
}

// declShell parses one declaration keyword's shell: name, full token span,
// and decl-kind tag (spec.md §4.1).
func (p *preparser) declShell(isPub bool) (DeclShell, error) {
	loc := p.cur().Loc
	kindTok := p.advance().Kind
	kind := declKindOf(kindTok)
	return p.declShellFrom(kind, isPub, loc)
}

func (p *preparser) declShellFrom(kind DeclKind, isPub bool, loc token.Location) (DeclShell, error) {
	name := ""
	if p.cur().Kind == token.IDENT {
		name = p.advance().Lexeme
	}

	start := p.pos
	// Skip any header material (generics, params, return type, raises)
	// until we reach the opening delimiter that starts the body, or a
	// terminator for bodyless declarations (e.g. `error E;`).
	for !p.atEOF() && p.cur().Kind != token.LBRACE && p.cur().Kind != token.SEMICOLON &&
		p.cur().Kind != token.ASSIGN && p.cur().Kind != token.NEWLINE {
		p.advance()
	}

	var body []token.Token
	var nested []DeclShell
	switch p.cur().Kind {
	case token.LBRACE:
		span, err := p.balancedSpan()
		if err != nil {
			return DeclShell{}, err
		}
		body = append(append([]token.Token{}, p.toks[start:p.pos-len(span)]...), span...)
		if kind == DeclModule {
			nested = p.preparseNestedModule(span)
		}
	case token.ASSIGN:
		p.advance()
		bodyStart := p.pos
		depth := 0
		for !p.atEOF() {
			t := p.cur()
			if token.IsOpenDelim(t.Kind) {
				depth++
			} else if token.IsCloseDelim(t.Kind) {
				if depth == 0 {
					break
				}
				depth--
			} else if depth == 0 && (t.Kind == token.SEMICOLON || t.Kind == token.NEWLINE) {
				break
			}
			p.advance()
		}
		if depth > 0 {
			return DeclShell{}, errors.WrapReport(&errors.Report{
				Schema: errors.Schema, Code: errors.CodeUnbalancedDelimiters,
				Phase: "preparser", Message: "unbalanced delimiters: reached end of file",
			})
		}
		body = append(append([]token.Token{}, p.toks[start:bodyStart]...), p.toks[bodyStart:p.pos]...)
		p.skipTerminator()
	default:
		body = append([]token.Token{}, p.toks[start:p.pos]...)
		p.skipTerminator()
	}

	return DeclShell{Name: name, Kind: kind, IsPub: isPub, Tokens: body, Nested: nested, Loc: loc}, nil
}

// preparseNestedModule recursively preparses the token span inside a nested
// `module Name { ... }` shell into its own shell list (spec.md §4.1: "Nested
// module declarations produce nested shells").
func (p *preparser) preparseNestedModule(span []token.Token) []DeclShell {
	inner := &preparser{toks: span}
	var shells []DeclShell
	for !inner.atEOF() {
		t := inner.cur()
		isPub := false
		if t.Kind == token.PUB {
			inner.advance()
			isPub = true
			t = inner.cur()
		}
		switch t.Kind {
		case token.FUN, token.TYPE, token.OBJECT, token.CONSTANT, token.ERROR,
			token.ALIAS, token.ENUM, token.RECORD, token.CLASS, token.TRAIT,
			token.METHOD, token.MODULE:
			kind := declKindOf(t.Kind)
			loc := t.Loc
			inner.advance()
			shell, err := inner.declShellFrom(kind, isPub, loc)
			if err == nil {
				shells = append(shells, shell)
			}
		default:
			inner.advance()
		}
	}
	return shells
}

// balancedSpan returns the full token span starting at the current opening
// delimiter through its matching closer, inclusive (spec.md §4.1 "Contract":
// "a decl's token span ends at the matching close of its opening
// delimiter").
func (p *preparser) balancedSpan() ([]token.Token, error) {
	start := p.pos
	openKind := p.cur().Kind
	if !token.IsOpenDelim(openKind) {
		return nil, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeUnbalancedDelimiters,
			Phase: "preparser", Message: "expected an opening delimiter",
		})
	}
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		if token.IsOpenDelim(t.Kind) {
			depth++
		} else if token.IsCloseDelim(t.Kind) {
			depth--
			if depth == 0 {
				p.advance()
				return p.toks[start:p.pos], nil
			}
		}
		p.advance()
	}
	return nil, errors.WrapReport(&errors.Report{
		Schema: errors.Schema, Code: errors.CodeUnbalancedDelimiters,
		Phase: "preparser", Message: "unbalanced delimiters: reached end of file",
	})
}

// recoverToNextDecl advances past the current token until the next top-level
// declaration keyword is reached, per spec.md §4.1's error recovery policy.
func (p *preparser) recoverToNextDecl() {
	for !p.atEOF() {
		switch p.cur().Kind {
		case token.FUN, token.TYPE, token.MODULE, token.OBJECT, token.CONSTANT,
			token.ERROR, token.ALIAS, token.ENUM, token.RECORD, token.CLASS,
			token.TRAIT, token.METHOD, token.PUB, token.IMPORT, token.MACRO:
			return
		}
		p.advance()
	}
}

func declKindOf(k token.Kind) DeclKind {
	switch k {
	case token.FUN:
		return DeclFun
	case token.TYPE:
		return DeclType
	case token.MODULE:
		return DeclModule
	case token.OBJECT:
		return DeclObject
	case token.CONSTANT:
		return DeclConstant
	case token.ERROR:
		return DeclError
	case token.ALIAS:
		return DeclAlias
	case token.ENUM:
		return DeclEnum
	case token.RECORD:
		return DeclRecord
	case token.CLASS:
		return DeclClass
	case token.TRAIT:
		return DeclTrait
	case token.METHOD:
		return DeclMethod
	default:
		return DeclFun
	}
}
