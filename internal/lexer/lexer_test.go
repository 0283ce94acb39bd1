package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sunholo/lily/internal/token"
)

func TestNextToken_Operators(t *testing.T) {
	input := `+ - * / % ** << >> & ^ | .. == not= < <= > >= |> -> <- = += **=`
	want := []token.Kind{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.POW, token.SHL, token.SHR, token.AMP, token.CARET, token.PIPE,
		token.RANGE, token.EQ, token.NOTEQ, token.LT, token.LTE, token.GT,
		token.GTE, token.PIPEGT, token.ARROW, token.LARROW, token.ASSIGN,
		token.PLUS_ASSIGN, token.POW_ASSIGN, token.EOF,
	}

	l := New([]byte(input), "test.lily")
	for i, k := range want {
		tok := l.NextToken()
		require.Equalf(t, k, tok.Kind, "token %d: got %s", i, tok.Kind)
	}
}

func TestNextToken_KeywordsAndIdents(t *testing.T) {
	input := `fun main pub import macro as let mut`
	want := []token.Kind{
		token.FUN, token.IDENT, token.PUB, token.IMPORT, token.MACRO,
		token.AS, token.LET, token.MUT, token.EOF,
	}
	l := New([]byte(input), "test.lily")
	for i, k := range want {
		tok := l.NextToken()
		require.Equalf(t, k, tok.Kind, "token %d", i)
	}
}

func TestNextToken_CommentsSkipped(t *testing.T) {
	input := "let x = 1 -- this is a comment\nlet y = 2"
	toks := All([]byte(input), "test.lily")
	var kinds []token.Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	require.Contains(t, kinds, token.LET)
	require.NotContains(t, kinds, token.COMMENT)
}

func TestNextToken_StringAndNumberLiterals(t *testing.T) {
	input := `"hi" 42 3.14 'a'`
	l := New([]byte(input), "test.lily")

	str := l.NextToken()
	require.Equal(t, token.STRING, str.Kind)
	require.Equal(t, "hi", str.Lexeme)

	n := l.NextToken()
	require.Equal(t, token.INT, n.Kind)
	require.Equal(t, "42", n.Lexeme)

	f := l.NextToken()
	require.Equal(t, token.FLOAT, f.Kind)
	require.Equal(t, "3.14", f.Lexeme)

	c := l.NextToken()
	require.Equal(t, token.CHAR, c.Kind)
	require.Equal(t, "a", c.Lexeme)
}

func TestNextToken_CRLFLineEndings(t *testing.T) {
	input := "let x = 1\r\nlet y = 2\r\n"
	toks := All([]byte(input), "test.lily")
	require.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}
