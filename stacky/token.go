package stacky

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	tokenIllegal TokenType = "ILLEGAL"
	tokenEOF     TokenType = "EOF"

	tokenIdent  TokenType = "IDENT"
	tokenLabel  TokenType = "LABEL"
	tokenInt    TokenType = "INT"
	tokenFloat  TokenType = "FLOAT"
	tokenString TokenType = "STRING"

	tokenPlus     TokenType = "+"
	tokenMinus    TokenType = "-"
	tokenAsterisk TokenType = "*"
	tokenSlash    TokenType = "/"
	tokenPercent  TokenType = "%"
	tokenBang     TokenType = "!"
	tokenLT       TokenType = "<"
	tokenGT       TokenType = ">"
	tokenLTE      TokenType = "<="
	tokenGTE      TokenType = ">="
	tokenEQ       TokenType = "=="
	tokenNotEQ    TokenType = "!="

	tokenIf       TokenType = "IF"
	tokenElse     TokenType = "ELSE"
	tokenEnd      TokenType = "END"
	tokenLoop     TokenType = "LOOP"
	tokenBreak    TokenType = "BREAK"
	tokenContinue TokenType = "CONTINUE"
	tokenTrue     TokenType = "TRUE"
	tokenFalse    TokenType = "FALSE"
	tokenNil      TokenType = "NIL"
)

// Token captures lexical information for the parser.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// Position identifies a line and column in the source file. Both are 1-based
// and columns count runes.
type Position struct {
	Line   int
	Column int
}

func (p Position) before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// operatorAliases maps symbolic operators onto instruction mnemonics.
var operatorAliases = map[TokenType]string{
	tokenPlus:     "add",
	tokenMinus:    "sub",
	tokenAsterisk: "mul",
	tokenSlash:    "div",
	tokenPercent:  "mod",
	tokenBang:     "not",
	tokenLT:       "lt",
	tokenGT:       "gt",
	tokenLTE:      "le",
	tokenGTE:      "ge",
	tokenEQ:       "eq",
	tokenNotEQ:    "ne",
}
