package stacky

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lexAll(input string) []Token {
	l := newLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == tokenEOF {
			return tokens
		}
	}
}

func TestLexerTokensAndPositions(t *testing.T) {
	input := "push 1 ; c\nstart: \"a\\tb\" 0x1F -0b11 1_000 2.5e-3 <= !"

	expected := []Token{
		{Type: tokenIdent, Literal: "push", Pos: Position{1, 1}},
		{Type: tokenInt, Literal: "1", Pos: Position{1, 6}},
		{Type: tokenLabel, Literal: "start", Pos: Position{2, 1}},
		{Type: tokenString, Literal: "a\tb", Pos: Position{2, 8}},
		{Type: tokenInt, Literal: "0x1F", Pos: Position{2, 15}},
		{Type: tokenInt, Literal: "-0b11", Pos: Position{2, 20}},
		{Type: tokenInt, Literal: "1000", Pos: Position{2, 26}},
		{Type: tokenFloat, Literal: "2.5e-3", Pos: Position{2, 32}},
		{Type: tokenLTE, Literal: "<=", Pos: Position{2, 39}},
		{Type: tokenBang, Literal: "!", Pos: Position{2, 42}},
		{Type: tokenEOF, Literal: "", Pos: Position{2, 43}},
	}

	require.Equal(t, expected, lexAll(input))
}

func TestLexerKeywordsAndOperators(t *testing.T) {
	tokens := lexAll("if else end loop break continue true false nil + - * / % == != < >")
	var types []TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	require.Equal(t, []TokenType{
		tokenIf, tokenElse, tokenEnd, tokenLoop, tokenBreak, tokenContinue,
		tokenTrue, tokenFalse, tokenNil,
		tokenPlus, tokenMinus, tokenAsterisk, tokenSlash, tokenPercent,
		tokenEQ, tokenNotEQ, tokenLT, tokenGT, tokenEOF,
	}, types)
}

func TestLexerMalformedLiterals(t *testing.T) {
	tokens := lexAll(`0x 12ab "oops\q" "unterminated`)
	require.Len(t, tokens, 5)

	cases := []struct {
		pos Position
		msg string
	}{
		{Position{1, 1}, "malformed hex literal '0x'"},
		{Position{1, 4}, "malformed integer literal '12ab'"},
		{Position{1, 9}, `unknown escape sequence '\q' in string literal`},
		{Position{1, 18}, "unterminated string literal"},
	}
	for i, tc := range cases {
		require.Equal(t, tokenMalformed, tokens[i].Type, "token %d", i)
		require.Equal(t, tc.pos, tokens[i].Pos, "token %d", i)
		require.Equal(t, tc.msg, tokens[i].Literal, "token %d", i)
	}
}

func TestLexerStringClosesOnItsLine(t *testing.T) {
	tokens := lexAll("\"open\n1")
	require.Equal(t, tokenMalformed, tokens[0].Type)
	require.Equal(t, tokenInt, tokens[1].Type)
	require.Equal(t, Position{2, 1}, tokens[1].Pos)
}

func TestLexerIllegalCharacter(t *testing.T) {
	tokens := lexAll("1 @ 2 = 3")
	require.Equal(t, tokenIllegal, tokens[1].Type)
	require.Equal(t, "unexpected character '@'", tokens[1].Literal)
	require.Equal(t, tokenIllegal, tokens[3].Type)
	require.Equal(t, Position{1, 7}, tokens[3].Pos)
	require.Equal(t, tokenInt, tokens[4].Type)
}

func TestLexerColumnsCountRunes(t *testing.T) {
	tokens := lexAll(`"héllo" dup`)
	require.Equal(t, "héllo", tokens[0].Literal)
	require.Equal(t, Position{1, 9}, tokens[1].Pos)
}

func TestLexerEOFPosition(t *testing.T) {
	cases := []struct {
		input string
		want  Position
	}{
		{"", Position{1, 1}},
		{"dup", Position{1, 4}},
		{"dup\n", Position{2, 1}},
		{"dup\n\n", Position{3, 1}},
		{"dup ; note\n", Position{2, 1}},
		{`"open`, Position{1, 6}},
	}
	for _, tc := range cases {
		tokens := lexAll(tc.input)
		eof := tokens[len(tokens)-1]
		require.Equal(t, tokenEOF, eof.Type, "input %q", tc.input)
		require.Equal(t, tc.want, eof.Pos, "input %q", tc.input)
	}
}
