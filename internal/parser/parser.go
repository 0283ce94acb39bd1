// Package parser implements spec.md §4.3: it consumes the precompiler's
// expanded declaration shells and produces a full ast.File, applying the
// twelve-level operator precedence table and the statement/declaration-
// boundary error-recovery policy.
//
// Grounded on the teacher's internal/parser package (a hand-written
// recursive-descent/Pratt parser keyed off token.Kind, with a `parseExpr`
// entry point dispatching to precedence-climbing helpers), adapted to
// Lily's twelve explicit precedence levels and to parsing from a
// pre-segmented DeclShell rather than a raw token stream.
package parser

import (
	"fmt"

	"github.com/sunholo/lily/internal/ast"
	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/pkg"
	"github.com/sunholo/lily/internal/precompiler"
	"github.com/sunholo/lily/internal/preparser"
	"github.com/sunholo/lily/internal/token"
)

// precedence is the twelve-level table of spec.md §4.3, lowest value binds
// loosest. Unary/call/field/hook/object-access are not in this table: they
// bind tighter than any entry here and are handled by parsePrimary/
// parsePostfix directly.
// precedence assigns each binary operator token its level in spec.md §4.3's
// twelve-level table (listed there high-to-low; level 12, the loosest, is
// assignment). Numerically, a higher value here binds tighter, so the
// levels are laid out in the reverse of the spec's own listing order:
// level 12 (assignment family) maps to the lowest number and level 1 (`**`)
// to the highest. Comparisons (`==` `not=` `<` `<=` `>` `>=`) are spec
// level 7, a single non-associative level, not split across two.
var precedence = map[token.Kind]int{
	// level 12: assignment family, right-assoc
	token.ASSIGN: 1, token.PLUS_ASSIGN: 1, token.MINUS_ASSIGN: 1,
	token.STAR_ASSIGN: 1, token.SLASH_ASSIGN: 1, token.PERCENT_ASSIGN: 1,
	token.POW_ASSIGN: 1, token.PIPE_ASSIGN: 1, token.AMP_ASSIGN: 1,
	token.CARET_ASSIGN: 1, token.SHL_ASSIGN: 1, token.SHR_ASSIGN: 1,

	// level 11: list-head/list-tail, right-assoc
	token.ARROW: 2, token.LARROW: 2,

	// level 10: pipe/chain, left-assoc
	token.PIPEGT: 3,

	// level 9: `or`, left-assoc
	token.OR: 4,

	// level 8: `and`, left-assoc
	token.AND: 5,

	// level 7: one non-assoc level, not two
	token.EQ: 6, token.NOTEQ: 6,
	token.LT: 6, token.LTE: 6, token.GT: 6, token.GTE: 6,

	// level 6: range, non-assoc
	token.RANGE: 7,

	// level 5: bitwise, tightest-to-loosest within the level is &, ^, |
	// (spec.md §4.3 "5. &, then ^, then |"), so | is loosest of the three
	token.PIPE: 8,
	token.CARET: 9,
	token.AMP: 10,

	// level 4: shifts, left-assoc
	token.SHL: 11, token.SHR: 11,

	// level 3: additive, left-assoc
	token.PLUS: 12, token.MINUS: 12,

	// level 2: multiplicative, left-assoc
	token.STAR: 13, token.SLASH: 13, token.PERCENT: 13,

	// level 1: `**`, right-assoc, tightest of all binary operators
	token.POW: 14,
}

// rightAssoc marks the levels that associate right-to-left (assignment
// family, list-head/list-tail, and `**`); every other level is
// left-associative or non-associative (spec.md §4.3).
var rightAssoc = map[token.Kind]bool{
	token.ASSIGN: true, token.PLUS_ASSIGN: true, token.MINUS_ASSIGN: true,
	token.STAR_ASSIGN: true, token.SLASH_ASSIGN: true, token.PERCENT_ASSIGN: true,
	token.POW_ASSIGN: true, token.PIPE_ASSIGN: true, token.AMP_ASSIGN: true,
	token.CARET_ASSIGN: true, token.SHL_ASSIGN: true, token.SHR_ASSIGN: true,
	token.ARROW: true, token.LARROW: true,
	token.POW: true,
}

// assignOps is the assignment-family operator set, parsed into an
// AssignExpr rather than a BinaryExpr.
var assignOps = map[token.Kind]bool{
	token.ASSIGN: true, token.PLUS_ASSIGN: true, token.MINUS_ASSIGN: true,
	token.STAR_ASSIGN: true, token.SLASH_ASSIGN: true, token.PERCENT_ASSIGN: true,
	token.POW_ASSIGN: true, token.PIPE_ASSIGN: true, token.AMP_ASSIGN: true,
	token.CARET_ASSIGN: true, token.SHL_ASSIGN: true, token.SHR_ASSIGN: true,
}

// parser is a single-pass recursive-descent cursor over one declaration
// shell's token span.
type parser struct {
	toks []token.Token
	pos  int
}

// ParsePackage parses every expanded shell in out into a complete ast.File
// (spec.md §4.3 "parse(shells) -> File"), recovering at declaration
// boundaries on error (spec.md §4.3 "Error recovery").
func ParsePackage(packageName string, imports []pkg.ResolvedImport, out *precompiler.Output) (*ast.File, []error) {
	f := &ast.File{Package: packageName}
	for _, imp := range imports {
		f.Imports = append(f.Imports, &ast.Import{Alias: imp.Alias})
	}

	var errs []error
	for _, shell := range out.Shells {
		d, err := parseShell(shell)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if d != nil {
			f.Decls = append(f.Decls, d)
		}
	}
	return f, errs
}

// parseShell dispatches on the shell's declaration kind.
func parseShell(shell preparser.DeclShell) (ast.Decl, error) {
	p := &parser{toks: shell.Tokens}
	loc := shell.Loc
	switch shell.Kind {
	case preparser.DeclFun, preparser.DeclMethod:
		return p.parseFunc(shell.Name, loc)
	case preparser.DeclModule:
		decl := &ast.ModuleDecl{NameStr: shell.Name, IsPub: shell.IsPub, Loc: loc}
		for _, nested := range shell.Nested {
			nd, err := parseShell(nested)
			if err != nil {
				return nil, err
			}
			if nd != nil {
				decl.Decls = append(decl.Decls, nd)
			}
		}
		return decl, nil
	case preparser.DeclConstant:
		return p.parseConstant(shell.Name, loc)
	case preparser.DeclType, preparser.DeclAlias:
		return p.parseTypeDecl(shell.Name, loc)
	case preparser.DeclObject, preparser.DeclEnum, preparser.DeclRecord,
		preparser.DeclClass, preparser.DeclTrait, preparser.DeclEnumObject,
		preparser.DeclRecordObject:
		return p.parseObjectDecl(shell.Name, shell.Kind, loc)
	case preparser.DeclError:
		return &ast.ErrorDecl{NameStr: shell.Name, IsPub: shell.IsPub, Loc: loc}, nil
	default:
		return nil, fmt.Errorf("unsupported declaration kind %v", shell.Kind)
	}
}

func (p *parser) atEOF() bool { return p.pos >= len(p.toks) }

func (p *parser) cur() token.Token {
	if p.atEOF() {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peek(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if !p.atEOF() {
		p.pos++
	}
	return t
}

func (p *parser) expect(k token.Kind) (token.Token, error) {
	if p.cur().Kind != k {
		return token.Token{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeExpectedToken, Phase: "parser",
			Message: fmt.Sprintf("expected %s, found %s", k, p.cur().Kind), Loc: &p.cur().Loc,
		})
	}
	return p.advance(), nil
}

// parseFunc parses a function header up to its `{ ... }` or `= expr;` body.
func (p *parser) parseFunc(name string, loc token.Location) (ast.Decl, error) {
	fd := &ast.FuncDecl{NameStr: name, Loc: loc}

	if p.cur().Kind == token.LBRACKET {
		p.advance()
		for p.cur().Kind != token.RBRACKET && !p.atEOF() {
			g := ast.GenericParam{Name: p.advance().Lexeme}
			if p.cur().Kind == token.COLON {
				p.advance()
				g.Bound = p.advance().Lexeme
			}
			fd.Generics = append(fd.Generics, g)
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	for p.cur().Kind != token.RPAREN && !p.atEOF() {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		fd.Params = append(fd.Params, param)
		if p.cur().Kind == token.COMMA {
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	if p.cur().Kind != token.LBRACE && p.cur().Kind != token.ASSIGN &&
		p.cur().Kind != token.BANG && p.cur().Kind != token.SEMICOLON {
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		fd.ReturnType = t
	}

	if p.cur().Kind == token.BANG {
		p.advance()
		for {
			if p.cur().Kind == token.IDENT {
				fd.Raises = append(fd.Raises, p.advance().Lexeme)
			}
			if p.cur().Kind == token.COMMA {
				p.advance()
				continue
			}
			break
		}
	}

	switch p.cur().Kind {
	case token.LBRACE:
		p.advance()
		stmts, err := p.parseStmtsUntil(token.RBRACE)
		if err != nil {
			return nil, err
		}
		fd.Body = stmts
		p.expect(token.RBRACE)
	case token.ASSIGN:
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		fd.Body = []ast.Stmt{&ast.ExprStmt{Expr: e, Loc: e.Position()}}
	default:
		fd.Body = nil
	}
	return fd, nil
}

func (p *parser) parseParam() (*ast.Param, error) {
	param := &ast.Param{}
	if p.cur().Kind == token.AMPMUT {
		p.advance()
		param.IsMut = true
	}
	param.Name = p.advance().Lexeme
	if p.cur().Kind == token.COLON {
		p.advance()
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		param.Type = t
	}
	if p.cur().Kind == token.ASSIGN {
		p.advance()
		d, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		param.Default = d
	}
	return param, nil
}

func (p *parser) parseConstant(name string, loc token.Location) (ast.Decl, error) {
	decl := &ast.ConstantDecl{NameStr: name, Loc: loc}
	if p.cur().Kind != token.ASSIGN {
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		decl.Type = t
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	v, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	decl.Value = v
	return decl, nil
}

func (p *parser) parseTypeDecl(name string, loc token.Location) (ast.Decl, error) {
	decl := &ast.TypeDecl{NameStr: name, Loc: loc}
	if p.cur().Kind == token.LBRACKET {
		p.advance()
		for p.cur().Kind != token.RBRACKET && !p.atEOF() {
			decl.Generics = append(decl.Generics, ast.GenericParam{Name: p.advance().Lexeme})
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		p.expect(token.RBRACKET)
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	t, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	decl.Body = t
	return decl, nil
}

func (p *parser) parseObjectDecl(name string, kind preparser.DeclKind, loc token.Location) (ast.Decl, error) {
	decl := &ast.ObjectDecl{NameStr: name, Kind: objectKindName(kind), Loc: loc}
	if p.cur().Kind == token.LBRACKET {
		p.advance()
		for p.cur().Kind != token.RBRACKET && !p.atEOF() {
			decl.Generics = append(decl.Generics, ast.GenericParam{Name: p.advance().Lexeme})
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		p.expect(token.RBRACKET)
	}
	if p.cur().Kind != token.LBRACE {
		return decl, nil
	}
	p.advance()
	for p.cur().Kind != token.RBRACE && !p.atEOF() {
		fname := p.advance().Lexeme
		field := ast.ObjectField{Name: fname}
		if p.cur().Kind == token.COLON {
			p.advance()
			t, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			field.Type = t
		}
		decl.Fields = append(decl.Fields, field)
		if p.cur().Kind == token.COMMA {
			p.advance()
		}
	}
	p.expect(token.RBRACE)
	return decl, nil
}

func objectKindName(k preparser.DeclKind) string {
	switch k {
	case preparser.DeclEnum:
		return "enum"
	case preparser.DeclRecord:
		return "record"
	case preparser.DeclClass:
		return "class"
	case preparser.DeclTrait:
		return "trait"
	case preparser.DeclEnumObject:
		return "enum-object"
	case preparser.DeclRecordObject:
		return "record-object"
	default:
		return "object"
	}
}

// parseStmtsUntil parses statements until it sees end at depth 0.
func (p *parser) parseStmtsUntil(end token.Kind) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for p.cur().Kind != end && !p.atEOF() {
		s, err := p.parseStmt()
		if err != nil {
			p.recoverToStmtBoundary()
			continue
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// recoverToStmtBoundary advances past tokens until a statement-starting
// keyword or a semicolon, per spec.md §4.3's error-recovery policy.
func (p *parser) recoverToStmtBoundary() {
	for !p.atEOF() {
		switch p.cur().Kind {
		case token.SEMICOLON:
			p.advance()
			return
		case token.LET, token.IF, token.WHILE, token.RBRACE:
			return
		}
		p.advance()
	}
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	loc := p.cur().Loc
	switch p.cur().Kind {
	case token.LET:
		p.advance()
		isMut := false
		if p.cur().Kind == token.MUT {
			p.advance()
			isMut = true
		}
		name := p.advance().Lexeme
		var typ ast.TypeExpr
		if p.cur().Kind == token.COLON {
			p.advance()
			t, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			typ = t
		}
		if _, err := p.expect(token.ASSIGN); err != nil {
			return nil, err
		}
		v, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		p.skipSemi()
		return &ast.LetStmt{Name: name, Type: typ, Value: v, IsMut: isMut, Loc: loc}, nil
	case token.WHILE:
		p.advance()
		cond, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LBRACE); err != nil {
			return nil, err
		}
		body, err := p.parseStmtsUntil(token.RBRACE)
		if err != nil {
			return nil, err
		}
		p.expect(token.RBRACE)
		return &ast.WhileStmt{Cond: cond, Body: body, Loc: loc}, nil
	default:
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		p.skipSemi()
		return &ast.ExprStmt{Expr: e, Loc: loc}, nil
	}
}

func (p *parser) skipSemi() {
	if p.cur().Kind == token.SEMICOLON {
		p.advance()
	}
}

// parseExpr is the precedence-climbing entry point (spec.md §4.3): minPrec
// bounds which operators may bind at this recursion level.
func (p *parser) parseExpr(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		opKind := p.cur().Kind
		prec, ok := precedence[opKind]
		if !ok || prec < minPrec {
			return left, nil
		}
		loc := p.cur().Loc
		p.advance()
		nextMin := prec + 1
		if rightAssoc[opKind] {
			nextMin = prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		if assignOps[opKind] {
			left = &ast.AssignExpr{Op: opKind, Target: left, Value: right, Loc: loc}
		} else {
			left = &ast.BinaryExpr{Op: opKind, Left: left, Right: right, Loc: loc}
		}
	}
}

// parseUnary handles prefix operators, which bind tighter than every
// binary operator (spec.md §4.3).
func (p *parser) parseUnary() (ast.Expr, error) {
	switch p.cur().Kind {
	case token.NOT, token.MINUS, token.STAR, token.AMP, token.AMPMUT:
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op.Kind, Operand: operand, Loc: op.Loc}, nil
	default:
		return p.parsePostfix()
	}
}

// parsePostfix handles call/field/hook/object-access/cast, which bind
// tighter than any unary operator (spec.md §4.3).
func (p *parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		loc := p.cur().Loc
		switch p.cur().Kind {
		case token.LPAREN:
			p.advance()
			var args []ast.Expr
			for p.cur().Kind != token.RPAREN && !p.atEOF() {
				a, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.cur().Kind == token.COMMA {
					p.advance()
				}
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			e = &ast.CallExpr{Callee: e, Args: args, Loc: loc}
		case token.DOT:
			p.advance()
			field := p.advance().Lexeme
			e = &ast.FieldAccessExpr{Receiver: e, Field: field, Loc: loc}
		case token.LBRACKET:
			p.advance()
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			e = &ast.HookExpr{Receiver: e, Index: idx, Loc: loc}
		case token.AT:
			p.advance()
			typeName := p.advance().Lexeme
			e = &ast.ObjectAccessExpr{Receiver: e, TypeName: typeName, Loc: loc}
		case token.AS:
			p.advance()
			t, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			e = &ast.CastExpr{Value: e, Type: t, Loc: loc}
		default:
			return e, nil
		}
	}
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.INT:
		p.advance()
		var v int64
		fmt.Sscanf(t.Lexeme, "%d", &v)
		return &ast.IntLit{Value: v, Loc: t.Loc}, nil
	case token.FLOAT:
		p.advance()
		var v float64
		fmt.Sscanf(t.Lexeme, "%g", &v)
		return &ast.FloatLit{Value: v, Loc: t.Loc}, nil
	case token.STRING:
		p.advance()
		return &ast.StringLit{Value: t.Lexeme, Loc: t.Loc}, nil
	case token.CHAR:
		p.advance()
		r := rune(0)
		for _, c := range t.Lexeme {
			r = c
			break
		}
		return &ast.CharLit{Value: r, Loc: t.Loc}, nil
	case token.TRUE:
		p.advance()
		return &ast.BoolLit{Value: true, Loc: t.Loc}, nil
	case token.FALSE:
		p.advance()
		return &ast.BoolLit{Value: false, Loc: t.Loc}, nil
	case token.UNIT_KW:
		p.advance()
		return &ast.UnitLit{Loc: t.Loc}, nil
	case token.SELF:
		p.advance()
		return &ast.SelfExpr{Loc: t.Loc}, nil
	case token.IDENT:
		p.advance()
		return &ast.Ident{Name: t.Lexeme, Loc: t.Loc}, nil
	case token.LPAREN:
		p.advance()
		first, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.cur().Kind == token.COMMA {
			elems := []ast.Expr{first}
			for p.cur().Kind == token.COMMA {
				p.advance()
				if p.cur().Kind == token.RPAREN {
					break
				}
				e, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			return &ast.TupleLit{Elems: elems, Loc: t.Loc}, nil
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.GroupingExpr{Inner: first, Loc: t.Loc}, nil
	case token.LBRACKET:
		p.advance()
		var elems []ast.Expr
		for p.cur().Kind != token.RBRACKET && !p.atEOF() {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		return &ast.ArrayLit{Elems: elems, Loc: t.Loc}, nil
	case token.LBRACE:
		p.advance()
		var elems []ast.Expr
		for p.cur().Kind != token.RBRACE && !p.atEOF() {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		if _, err := p.expect(token.RBRACE); err != nil {
			return nil, err
		}
		return &ast.ListLit{Elems: elems, Loc: t.Loc}, nil
	case token.IF:
		return p.parseIf()
	case token.MATCH:
		return p.parseMatch()
	case token.TRY:
		return p.parseTry()
	case token.RAISE:
		return p.parseRaise()
	default:
		return nil, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeExpectedToken, Phase: "parser",
			Message: fmt.Sprintf("unexpected token %s in expression position", t.Kind), Loc: &t.Loc,
		})
	}
}

func (p *parser) parseIf() (ast.Expr, error) {
	loc := p.advance().Loc // 'if'
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	conseq, err := p.parseBraceBlockExpr()
	if err != nil {
		return nil, err
	}
	var altern ast.Expr
	if p.cur().Kind == token.ELSE {
		p.advance()
		if p.cur().Kind == token.IF {
			altern, err = p.parseIf()
		} else {
			altern, err = p.parseBraceBlockExpr()
		}
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfExpr{Cond: cond, Conseq: conseq, Altern: altern, Loc: loc}, nil
}

// parseBraceBlockExpr parses `{ stmts... }` as a single expression value:
// the block's final expression statement, or Unit if empty/non-expression.
func (p *parser) parseBraceBlockExpr() (ast.Expr, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	stmts, err := p.parseStmtsUntil(token.RBRACE)
	if err != nil {
		return nil, err
	}
	loc := p.cur().Loc
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return &ast.UnitLit{Loc: loc}, nil
	}
	if es, ok := stmts[len(stmts)-1].(*ast.ExprStmt); ok {
		return es.Expr, nil
	}
	return &ast.UnitLit{Loc: loc}, nil
}

func (p *parser) parseMatch() (ast.Expr, error) {
	loc := p.advance().Loc // 'match'
	scrutinee, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.WITH); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var arms []ast.MatchArm
	for p.cur().Kind != token.RBRACE && !p.atEOF() {
		armLoc := p.cur().Loc
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		var guard ast.Expr
		if p.cur().Kind == token.IF {
			p.advance()
			guard, err = p.parseExpr(0)
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.ARROW); err != nil {
			return nil, err
		}
		body, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body, Loc: armLoc})
		if p.cur().Kind == token.COMMA {
			p.advance()
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.MatchExpr{Scrutinee: scrutinee, Arms: arms, Loc: loc}, nil
}

func (p *parser) parsePattern() (ast.Pattern, error) {
	loc := p.cur().Loc
	switch p.cur().Kind {
	case token.IDENT:
		name := p.advance().Lexeme
		if p.cur().Kind == token.LPAREN {
			p.advance()
			var fields []ast.Pattern
			for p.cur().Kind != token.RPAREN && !p.atEOF() {
				f, err := p.parsePattern()
				if err != nil {
					return nil, err
				}
				fields = append(fields, f)
				if p.cur().Kind == token.COMMA {
					p.advance()
				}
			}
			p.expect(token.RPAREN)
			return &ast.VariantPattern{Variant: name, Fields: fields, Loc: loc}, nil
		}
		if name == "_" {
			return &ast.WildcardPattern{Loc: loc}, nil
		}
		return &ast.IdentPattern{Name: name, Loc: loc}, nil
	case token.LPAREN:
		p.advance()
		var elems []ast.Pattern
		for p.cur().Kind != token.RPAREN && !p.atEOF() {
			e, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
		return &ast.TuplePattern{Elems: elems, Loc: loc}, nil
	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE:
		v, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.LiteralPattern{Value: v, Loc: loc}, nil
	default:
		return nil, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeExpectedToken, Phase: "parser",
			Message: fmt.Sprintf("unexpected token %s in pattern position", p.cur().Kind), Loc: &loc,
		})
	}
}

func (p *parser) parseTry() (ast.Expr, error) {
	loc := p.advance().Loc // 'try'
	body, err := p.parseBraceBlockExpr()
	if err != nil {
		return nil, err
	}
	var bind string
	var catchBody ast.Expr
	if p.cur().Kind == token.CATCH {
		p.advance()
		bind = p.advance().Lexeme
		catchBody, err = p.parseBraceBlockExpr()
		if err != nil {
			return nil, err
		}
	}
	return &ast.TryExpr{Body: body, CatchBind: bind, CatchBody: catchBody, Loc: loc}, nil
}

func (p *parser) parseRaise() (ast.Expr, error) {
	loc := p.advance().Loc // 'raise'
	name := p.advance().Lexeme
	var args []ast.Expr
	if p.cur().Kind == token.LPAREN {
		p.advance()
		for p.cur().Kind != token.RPAREN && !p.atEOF() {
			a, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
	}
	return &ast.RaiseExpr{ErrorName: name, Args: args, Loc: loc}, nil
}

func (p *parser) parseTypeExpr() (ast.TypeExpr, error) {
	t := p.cur()
	switch t.Kind {
	case token.STAR:
		p.advance()
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return &ast.PtrType{Elem: elem, Loc: t.Loc}, nil
	case token.AMP:
		p.advance()
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return &ast.RefType{Elem: elem, Loc: t.Loc}, nil
	case token.AMPMUT:
		p.advance()
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return &ast.RefType{Elem: elem, Mut: true, Loc: t.Loc}, nil
	case token.LPAREN:
		p.advance()
		var elems []ast.TypeExpr
		for p.cur().Kind != token.RPAREN && !p.atEOF() {
			e, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.cur().Kind == token.COMMA {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
		if p.cur().Kind == token.ARROW {
			p.advance()
			ret, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			return &ast.LambdaType{Params: elems, Ret: ret, Loc: t.Loc}, nil
		}
		return &ast.TupleType{Elems: elems, Loc: t.Loc}, nil
	case token.IDENT:
		name := p.advance().Lexeme
		switch name {
		case "List":
			p.expect(token.LBRACKET)
			elem, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			p.expect(token.RBRACKET)
			return &ast.ListType{Elem: elem, Loc: t.Loc}, nil
		case "Array":
			p.expect(token.LBRACKET)
			elem, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			length := -1
			if p.cur().Kind == token.COMMA {
				p.advance()
				fmt.Sscanf(p.advance().Lexeme, "%d", &length)
			}
			p.expect(token.RBRACKET)
			return &ast.ArrayType{Elem: elem, Length: length, Loc: t.Loc}, nil
		case "Trace":
			p.expect(token.LBRACKET)
			elem, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			p.expect(token.RBRACKET)
			return &ast.TraceType{Elem: elem, Loc: t.Loc}, nil
		}
		builtinSet := map[string]bool{
			"Int8": true, "Int16": true, "Int32": true, "Int64": true, "Isize": true,
			"Uint8": true, "Uint16": true, "Uint32": true, "Uint64": true, "Usize": true,
			"Float32": true, "Float64": true, "Bool": true, "Char": true, "CStr": true,
			"Str": true, "Bytes": true, "Unit": true, "Any": true, "Never": true,
		}
		if builtinSet[name] {
			return &ast.BuiltinType{Name: name, Loc: t.Loc}, nil
		}
		if p.cur().Kind == token.LBRACKET {
			p.advance()
			var gens []ast.TypeExpr
			for p.cur().Kind != token.RBRACKET && !p.atEOF() {
				g, err := p.parseTypeExpr()
				if err != nil {
					return nil, err
				}
				gens = append(gens, g)
				if p.cur().Kind == token.COMMA {
					p.advance()
				}
			}
			p.expect(token.RBRACKET)
			return &ast.NamedType{Name: name, Generics: gens, Loc: t.Loc}, nil
		}
		return &ast.NamedType{Name: name, Loc: t.Loc}, nil
	default:
		return nil, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeExpectedToken, Phase: "parser",
			Message: fmt.Sprintf("unexpected token %s in type position", t.Kind), Loc: &t.Loc,
		})
	}
}
