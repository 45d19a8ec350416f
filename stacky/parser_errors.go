package stacky

import (
	"fmt"
	"sort"
	"strings"
)

// ParseErrorKind classifies a parse diagnostic.
type ParseErrorKind uint8

const (
	ParseUnknownToken ParseErrorKind = iota
	ParseUnknownInstruction
	ParseMalformedLiteral
	ParseMissingOperand
	ParseInvalidOperand
	ParseUnbalancedBlock
	ParseUndefinedLabel
	ParseDuplicateLabel
	ParseUndefinedVariable
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseUnknownToken:
		return "unknown token"
	case ParseUnknownInstruction:
		return "unknown instruction"
	case ParseMalformedLiteral:
		return "malformed literal"
	case ParseMissingOperand:
		return "missing operand"
	case ParseInvalidOperand:
		return "invalid operand"
	case ParseUnbalancedBlock:
		return "unbalanced block"
	case ParseUndefinedLabel:
		return "undefined label"
	case ParseDuplicateLabel:
		return "duplicate label"
	case ParseUndefinedVariable:
		return "undefined variable"
	default:
		return "parse error"
	}
}

// ParseError is one defect found while compiling source.
type ParseError struct {
	Kind ParseErrorKind
	Pos  Position
	Msg  string

	source string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Detail renders the error followed by a caret frame pointing into the
// source.
func (e *ParseError) Detail() string {
	var b strings.Builder
	b.WriteString(e.Error())
	if frame := formatCodeFrame(e.source, e.Pos); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}

// ParseErrors holds every diagnostic from one compilation, ordered by
// position.
type ParseErrors []*ParseError

func (errs ParseErrors) Error() string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "\n")
}

// Detail renders every error with its code frame, separated by blank lines.
func (errs ParseErrors) Detail() string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Detail()
	}
	return strings.Join(parts, "\n\n")
}

func (errs ParseErrors) sort() {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Pos.before(errs[j].Pos)
	})
}

func (p *parser) addError(kind ParseErrorKind, pos Position, format string, args ...any) {
	p.errors = append(p.errors, &ParseError{
		Kind:   kind,
		Pos:    pos,
		Msg:    fmt.Sprintf(format, args...),
		source: p.l.input,
	})
}

func tokenDescription(tok Token) string {
	switch tok.Type {
	case tokenIllegal, tokenMalformed:
		return "invalid token"
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return fmt.Sprintf("identifier '%s'", tok.Literal)
	case tokenLabel:
		return fmt.Sprintf("label '%s:'", tok.Literal)
	case tokenInt:
		return "integer"
	case tokenFloat:
		return "float"
	case tokenString:
		return "string"
	default:
		return fmt.Sprintf("'%s'", tok.Literal)
	}
}
