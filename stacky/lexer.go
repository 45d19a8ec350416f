package stacky

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenMalformed marks a literal that was recognised but could not be read.
// Its Literal carries the diagnostic message.
const tokenMalformed TokenType = "MALFORMED"

type lexer struct {
	input string

	offset int
	width  int

	line   int
	column int

	ch  rune
	eof bool
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1, column: 0}
	l.readRune()
	return l
}

func (l *lexer) readRune() {
	if l.offset >= len(l.input) {
		if l.eof {
			return
		}
		// EOF sits one past the last rune, or at the start of the next
		// line after a trailing newline.
		l.eof = true
		if l.ch == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.width = 0
		l.ch = 0
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.width = w
	l.offset += w

	if l.ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	l.ch = r
}

func (l *lexer) peekRune() rune {
	if l.offset >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])
	return r
}

func (l *lexer) atEOF() bool {
	return l.ch == 0 && l.width == 0
}

// NextToken scans the next token. It never fails: unreadable input becomes
// an illegal or malformed token and scanning resumes after it.
func (l *lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := Position{Line: l.line, Column: l.column}
	tok := Token{Pos: pos}

	if l.atEOF() {
		tok.Type = tokenEOF
		return tok
	}

	switch l.ch {
	case '+':
		tok.Type, tok.Literal = tokenPlus, "+"
		l.readRune()
	case '-':
		if isDecimalDigit(l.peekRune()) {
			l.readRune()
			return l.readNumber(pos, true)
		}
		tok.Type, tok.Literal = tokenMinus, "-"
		l.readRune()
	case '*':
		tok.Type, tok.Literal = tokenAsterisk, "*"
		l.readRune()
	case '/':
		tok.Type, tok.Literal = tokenSlash, "/"
		l.readRune()
	case '%':
		tok.Type, tok.Literal = tokenPercent, "%"
		l.readRune()
	case '!':
		if l.peekRune() == '=' {
			l.readRune()
			tok.Type, tok.Literal = tokenNotEQ, "!="
		} else {
			tok.Type, tok.Literal = tokenBang, "!"
		}
		l.readRune()
	case '=':
		if l.peekRune() == '=' {
			l.readRune()
			tok.Type, tok.Literal = tokenEQ, "=="
		} else {
			tok.Type, tok.Literal = tokenIllegal, "unexpected character '='"
		}
		l.readRune()
	case '<':
		if l.peekRune() == '=' {
			l.readRune()
			tok.Type, tok.Literal = tokenLTE, "<="
		} else {
			tok.Type, tok.Literal = tokenLT, "<"
		}
		l.readRune()
	case '>':
		if l.peekRune() == '=' {
			l.readRune()
			tok.Type, tok.Literal = tokenGTE, ">="
		} else {
			tok.Type, tok.Literal = tokenGT, ">"
		}
		l.readRune()
	case '"':
		return l.readString(pos)
	default:
		switch {
		case isIdentifierStart(l.ch):
			literal := l.readWord()
			if l.ch == ':' {
				l.readRune()
				return Token{Type: tokenLabel, Literal: literal, Pos: pos}
			}
			return Token{Type: lookupIdent(literal), Literal: literal, Pos: pos}
		case isDecimalDigit(l.ch):
			return l.readNumber(pos, false)
		default:
			tok.Type = tokenIllegal
			tok.Literal = fmt.Sprintf("unexpected character %q", l.ch)
			l.readRune()
		}
	}

	return tok
}

func (l *lexer) skipWhitespaceAndComments() {
	for {
		switch l.ch {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			l.readRune()
		case ';':
			for !l.atEOF() && l.ch != '\n' {
				l.readRune()
			}
		default:
			if l.ch == 0 && !l.atEOF() {
				// A literal NUL in the source is whitespace-like noise.
				l.readRune()
				continue
			}
			return
		}
	}
}

// readWord consumes identifier runes starting at the current rune.
func (l *lexer) readWord() string {
	var sb strings.Builder
	for isIdentifierRune(l.ch) {
		sb.WriteRune(l.ch)
		l.readRune()
	}
	return sb.String()
}

// readNumber scans an integer or float literal. The literal is returned
// without digit separators; the parser converts it.
func (l *lexer) readNumber(pos Position, negative bool) Token {
	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}

	// Consume the full word so a bad literal produces exactly one token.
	var raw strings.Builder
	isFloat := false
	for {
		switch {
		case isIdentifierRune(l.ch):
			raw.WriteRune(l.ch)
			l.readRune()
			continue
		case l.ch == '.' && isDecimalDigit(l.peekRune()):
			isFloat = true
			raw.WriteRune(l.ch)
			l.readRune()
			continue
		case (l.ch == '+' || l.ch == '-') && endsWithExponent(raw.String()):
			raw.WriteRune(l.ch)
			l.readRune()
			continue
		}
		break
	}

	text := raw.String()
	display := text
	if negative {
		display = "-" + text
	}
	malformed := func(kind string) Token {
		return Token{Type: tokenMalformed, Literal: fmt.Sprintf("malformed %s literal '%s'", kind, display), Pos: pos}
	}

	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		digits, ok := stripSeparators(text[2:], isHexDigit)
		if !ok || isFloat {
			return malformed("hex")
		}
		sb.WriteString("0x")
		sb.WriteString(digits)
		return Token{Type: tokenInt, Literal: sb.String(), Pos: pos}
	}
	if strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B") {
		digits, ok := stripSeparators(text[2:], isBinaryDigit)
		if !ok || isFloat {
			return malformed("binary")
		}
		sb.WriteString("0b")
		sb.WriteString(digits)
		return Token{Type: tokenInt, Literal: sb.String(), Pos: pos}
	}

	mantissa, exponent := text, ""
	if idx := strings.IndexAny(text, "eE"); idx >= 0 {
		mantissa, exponent = text[:idx], text[idx+1:]
		isFloat = true
		if exponent == "" {
			return malformed("float")
		}
	}

	intPart, fracPart := mantissa, ""
	if idx := strings.IndexByte(mantissa, '.'); idx >= 0 {
		intPart, fracPart = mantissa[:idx], mantissa[idx+1:]
	}
	kind := "integer"
	if isFloat {
		kind = "float"
	}
	intDigits, ok := stripSeparators(intPart, isDecimalDigit)
	if !ok {
		return malformed(kind)
	}
	sb.WriteString(intDigits)
	if fracPart != "" {
		fracDigits, ok := stripSeparators(fracPart, isDecimalDigit)
		if !ok {
			return malformed(kind)
		}
		sb.WriteByte('.')
		sb.WriteString(fracDigits)
	}
	if exponent != "" {
		sign := ""
		if exponent[0] == '+' || exponent[0] == '-' {
			sign, exponent = exponent[:1], exponent[1:]
		}
		expDigits, ok := stripSeparators(exponent, isDecimalDigit)
		if !ok {
			return malformed(kind)
		}
		sb.WriteByte('e')
		sb.WriteString(sign)
		sb.WriteString(expDigits)
	}

	if isFloat {
		return Token{Type: tokenFloat, Literal: sb.String(), Pos: pos}
	}
	return Token{Type: tokenInt, Literal: sb.String(), Pos: pos}
}

func endsWithExponent(raw string) bool {
	if raw == "" || strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		return false
	}
	last := raw[len(raw)-1]
	return last == 'e' || last == 'E'
}

// stripSeparators removes '_' between digits and reports whether every
// remaining rune satisfies valid. Separators must sit between two digits.
func stripSeparators(s string, valid func(rune) bool) (string, bool) {
	if s == "" {
		return "", false
	}
	var sb strings.Builder
	prevDigit := false
	for i, r := range s {
		if r == '_' {
			if !prevDigit || i == len(s)-1 {
				return "", false
			}
			prevDigit = false
			continue
		}
		if !valid(r) {
			return "", false
		}
		sb.WriteRune(r)
		prevDigit = true
	}
	return sb.String(), prevDigit
}

func (l *lexer) readString(pos Position) Token {
	var sb strings.Builder
	badEscape := ""

	l.readRune() // opening quote
	for {
		switch {
		case l.atEOF() || l.ch == '\n':
			return Token{Type: tokenMalformed, Literal: "unterminated string literal", Pos: pos}
		case l.ch == '"':
			l.readRune()
			if badEscape != "" {
				return Token{Type: tokenMalformed, Literal: fmt.Sprintf("unknown escape sequence '\\%s' in string literal", badEscape), Pos: pos}
			}
			return Token{Type: tokenString, Literal: sb.String(), Pos: pos}
		case l.ch == '\\':
			l.readRune()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '"', '\\':
				sb.WriteRune(l.ch)
			case '\n':
				return Token{Type: tokenMalformed, Literal: "unterminated string literal", Pos: pos}
			default:
				if l.atEOF() {
					return Token{Type: tokenMalformed, Literal: "unterminated string literal", Pos: pos}
				}
				if badEscape == "" {
					badEscape = string(l.ch)
				}
			}
			l.readRune()
		default:
			sb.WriteRune(l.ch)
			l.readRune()
		}
	}
}

func isIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isDecimalDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDecimalDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isBinaryDigit(r rune) bool {
	return r == '0' || r == '1'
}

func lookupIdent(ident string) TokenType {
	switch ident {
	case "if":
		return tokenIf
	case "else":
		return tokenElse
	case "end":
		return tokenEnd
	case "loop":
		return tokenLoop
	case "break":
		return tokenBreak
	case "continue":
		return tokenContinue
	case "true":
		return tokenTrue
	case "false":
		return tokenFalse
	case "nil":
		return tokenNil
	}
	return tokenIdent
}
