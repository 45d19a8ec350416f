package stacky

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type blockKind uint8

const (
	blockIf blockKind = iota
	blockLoop
)

func (k blockKind) String() string {
	if k == blockLoop {
		return "loop"
	}
	return "if"
}

// block tracks an open if or loop until its end is seen.
type block struct {
	kind blockKind
	pos  Position

	// jump is the pending brf (or the else goto) of an if block.
	jump    int
	hasElse bool

	// start and breaks belong to loop blocks.
	start  int
	breaks []int
}

type labelRef struct {
	instr int
	name  string
	pos   Position
}

type varRef struct {
	slot int
	pos  Position
}

type parser struct {
	l *lexer

	curToken  Token
	peekToken Token

	errors ParseErrors

	instructions []Instruction
	constants    []Value
	constIndex   map[Value]int

	locals     []string
	localIndex map[string]int
	stored     []bool
	loads      []varRef

	labels     []Label
	labelIndex map[string]int
	labelRefs  []labelRef

	blocks []*block
}

func newParser(input string) *parser {
	p := &parser{
		l:          newLexer(input),
		constIndex: make(map[Value]int),
		localIndex: make(map[string]int),
		labelIndex: make(map[string]int),
	}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Compile parses source into a Program. On failure the error is a
// ParseErrors holding every defect found, ordered by position.
func Compile(source string) (*Program, error) {
	program, errs := newParser(source).parseProgram()
	if len(errs) > 0 {
		return nil, errs
	}
	return program, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(source string) *Program {
	program, err := Compile(source)
	if err != nil {
		panic(fmt.Sprintf("stacky: compile: %v", err))
	}
	return program
}

func (p *parser) parseProgram() (*Program, ParseErrors) {
	for p.curToken.Type != tokenEOF {
		p.parseToken()
		p.nextToken()
	}

	for _, b := range p.blocks {
		p.addError(ParseUnbalancedBlock, b.pos, "'%s' is never closed with 'end'", b.kind)
	}
	p.emit(OpHalt, 0, p.curToken.Pos)

	p.resolveLabels()
	p.checkLoads()

	if len(p.errors) > 0 {
		p.errors.sort()
		return nil, p.errors
	}

	return &Program{
		instructions: p.instructions,
		constants:    p.constants,
		locals:       p.locals,
		labels:       p.labels,
		source:       p.l.input,
	}, nil
}

func (p *parser) parseToken() {
	tok := p.curToken
	switch tok.Type {
	case tokenInt, tokenFloat, tokenString, tokenTrue, tokenFalse, tokenNil:
		if value, ok := p.literalValue(tok); ok {
			p.emit(OpPush, p.constant(value), tok.Pos)
		}
	case tokenMalformed, tokenIllegal:
		p.reportBadToken(tok)
	case tokenLabel:
		p.defineLabel(tok)
	case tokenIf, tokenElse, tokenEnd, tokenLoop, tokenBreak, tokenContinue:
		p.parseBlockKeyword(tok)
	case tokenIdent:
		op, ok := LookupOpcode(tok.Literal)
		if !ok {
			p.addError(ParseUnknownInstruction, tok.Pos, "unknown instruction '%s'", tok.Literal)
			return
		}
		p.parseInstruction(op, tok)
	default:
		if name, ok := operatorAliases[tok.Type]; ok {
			op, _ := LookupOpcode(name)
			p.parseInstruction(op, tok)
			return
		}
		p.addError(ParseUnknownToken, tok.Pos, "unexpected %s", tokenDescription(tok))
	}
}

// reportBadToken records the lexer's diagnostic for an unreadable token.
func (p *parser) reportBadToken(tok Token) bool {
	switch tok.Type {
	case tokenMalformed:
		p.addError(ParseMalformedLiteral, tok.Pos, "%s", tok.Literal)
		return true
	case tokenIllegal:
		p.addError(ParseUnknownToken, tok.Pos, "%s", tok.Literal)
		return true
	}
	return false
}

func (p *parser) emit(op Opcode, operand int, pos Position) int {
	p.instructions = append(p.instructions, Instruction{Op: op, Operand: operand, Pos: pos})
	return len(p.instructions) - 1
}

func (p *parser) patch(instr, target int) {
	p.instructions[instr].Operand = target
}

func (p *parser) constant(v Value) int {
	if idx, ok := p.constIndex[v]; ok {
		return idx
	}
	p.constants = append(p.constants, v)
	idx := len(p.constants) - 1
	p.constIndex[v] = idx
	return idx
}

func (p *parser) slot(name string) int {
	if idx, ok := p.localIndex[name]; ok {
		return idx
	}
	p.locals = append(p.locals, name)
	p.stored = append(p.stored, false)
	idx := len(p.locals) - 1
	p.localIndex[name] = idx
	return idx
}

// takeOperand consumes the next token when it sits on the mnemonic's line.
func (p *parser) takeOperand(mnemonic Token) (Token, bool) {
	if p.peekToken.Type == tokenEOF || p.peekToken.Pos.Line != mnemonic.Pos.Line {
		return Token{}, false
	}
	p.nextToken()
	return p.curToken, true
}

func (p *parser) parseInstruction(op Opcode, tok Token) {
	info := op.Info()
	if info.Operand == OperandNone {
		p.emit(op, 0, tok.Pos)
		return
	}

	operand, ok := p.takeOperand(tok)
	if !ok {
		p.addError(ParseMissingOperand, tok.Pos, "'%s' expects %s", info.Name, operandDescription(info.Operand))
		return
	}
	if p.reportBadToken(operand) {
		return
	}

	switch info.Operand {
	case OperandConst:
		switch operand.Type {
		case tokenInt, tokenFloat, tokenString, tokenTrue, tokenFalse, tokenNil:
			if value, ok := p.literalValue(operand); ok {
				p.emit(op, p.constant(value), tok.Pos)
			}
		default:
			p.addError(ParseInvalidOperand, operand.Pos, "'%s' expects a literal, got %s", info.Name, tokenDescription(operand))
		}
	case OperandTarget:
		if operand.Type != tokenIdent {
			p.addError(ParseInvalidOperand, operand.Pos, "'%s' expects a label name, got %s", info.Name, tokenDescription(operand))
			return
		}
		idx := p.emit(op, 0, tok.Pos)
		p.labelRefs = append(p.labelRefs, labelRef{instr: idx, name: operand.Literal, pos: operand.Pos})
	case OperandSlot:
		if operand.Type != tokenIdent {
			p.addError(ParseInvalidOperand, operand.Pos, "'%s' expects a variable name, got %s", info.Name, tokenDescription(operand))
			return
		}
		slot := p.slot(operand.Literal)
		if op == OpStore {
			p.stored[slot] = true
		} else {
			p.loads = append(p.loads, varRef{slot: slot, pos: operand.Pos})
		}
		p.emit(op, slot, tok.Pos)
	case OperandType:
		kind, ok := lookupKind(operand.Literal)
		if !ok || (operand.Type != tokenIdent && operand.Type != tokenNil) {
			p.addError(ParseInvalidOperand, operand.Pos, "unknown type %s for '%s', expected one of %s",
				tokenDescription(operand), info.Name, strings.Join(TypeNames(), ", "))
			return
		}
		p.emit(op, int(kind), tok.Pos)
	}
}

func operandDescription(kind OperandKind) string {
	switch kind {
	case OperandConst:
		return "a literal"
	case OperandTarget:
		return "a label name"
	case OperandSlot:
		return "a variable name"
	case OperandType:
		return "a type name"
	default:
		return "no operand"
	}
}

func (p *parser) literalValue(tok Token) (Value, bool) {
	switch tok.Type {
	case tokenInt:
		n, err := parseIntLiteral(tok.Literal)
		if err != nil {
			p.addError(ParseMalformedLiteral, tok.Pos, "integer literal '%s' out of range", tok.Literal)
			return Value{}, false
		}
		return NewInt(n), true
	case tokenFloat:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addError(ParseMalformedLiteral, tok.Pos, "float literal '%s' out of range", tok.Literal)
			return Value{}, false
		}
		return NewFloat(f), true
	case tokenString:
		return NewString(tok.Literal), true
	case tokenTrue:
		return NewBool(true), true
	case tokenFalse:
		return NewBool(false), true
	case tokenNil:
		return NewNil(), true
	}
	return Value{}, false
}

// parseIntLiteral converts a normalized integer literal. Decimal literals
// never use octal; a leading minus may reach math.MinInt64.
func parseIntLiteral(lit string) (int64, error) {
	negative := strings.HasPrefix(lit, "-")
	digits := strings.TrimPrefix(lit, "-")
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0b"):
		base, digits = 2, digits[2:]
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, err
	}
	if negative {
		if u > 1<<63 {
			return 0, strconv.ErrRange
		}
		return -int64(u), nil
	}
	if u > math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	return int64(u), nil
}

func (p *parser) defineLabel(tok Token) {
	if lookupIdent(tok.Literal) != tokenIdent {
		p.addError(ParseInvalidOperand, tok.Pos, "'%s' is a reserved word and cannot name a label", tok.Literal)
		return
	}
	if idx, exists := p.labelIndex[tok.Literal]; exists {
		prev := p.labels[idx].Pos
		p.addError(ParseDuplicateLabel, tok.Pos, "duplicate label '%s' (first defined at %d:%d)", tok.Literal, prev.Line, prev.Column)
		return
	}
	p.labelIndex[tok.Literal] = len(p.labels)
	p.labels = append(p.labels, Label{Name: tok.Literal, Target: len(p.instructions), Pos: tok.Pos})
}

func (p *parser) parseBlockKeyword(tok Token) {
	switch tok.Type {
	case tokenIf:
		jump := p.emit(OpBrf, 0, tok.Pos)
		p.blocks = append(p.blocks, &block{kind: blockIf, pos: tok.Pos, jump: jump})
	case tokenLoop:
		p.blocks = append(p.blocks, &block{kind: blockLoop, pos: tok.Pos, start: len(p.instructions)})
	case tokenElse:
		top := p.innermost()
		if top == nil || top.kind != blockIf {
			p.addError(ParseUnbalancedBlock, tok.Pos, "'else' without matching 'if'")
			return
		}
		if top.hasElse {
			p.addError(ParseUnbalancedBlock, tok.Pos, "duplicate 'else' for 'if' at %d:%d", top.pos.Line, top.pos.Column)
			return
		}
		skip := p.emit(OpGoto, 0, tok.Pos)
		p.patch(top.jump, len(p.instructions))
		top.jump = skip
		top.hasElse = true
	case tokenEnd:
		top := p.innermost()
		if top == nil {
			p.addError(ParseUnbalancedBlock, tok.Pos, "'end' without matching 'if' or 'loop'")
			return
		}
		p.blocks = p.blocks[:len(p.blocks)-1]
		if top.kind == blockIf {
			p.patch(top.jump, len(p.instructions))
			return
		}
		p.emit(OpGoto, top.start, tok.Pos)
		for _, br := range top.breaks {
			p.patch(br, len(p.instructions))
		}
	case tokenBreak, tokenContinue:
		loop := p.innermostLoop()
		if loop == nil {
			p.addError(ParseUnbalancedBlock, tok.Pos, "'%s' outside of 'loop'", tok.Literal)
			return
		}
		if tok.Type == tokenContinue {
			p.emit(OpGoto, loop.start, tok.Pos)
			return
		}
		loop.breaks = append(loop.breaks, p.emit(OpGoto, 0, tok.Pos))
	}
}

func (p *parser) innermost() *block {
	if len(p.blocks) == 0 {
		return nil
	}
	return p.blocks[len(p.blocks)-1]
}

func (p *parser) innermostLoop() *block {
	for i := len(p.blocks) - 1; i >= 0; i-- {
		if p.blocks[i].kind == blockLoop {
			return p.blocks[i]
		}
	}
	return nil
}

func (p *parser) resolveLabels() {
	for _, ref := range p.labelRefs {
		idx, ok := p.labelIndex[ref.name]
		if !ok {
			p.addError(ParseUndefinedLabel, ref.pos, "undefined label '%s'", ref.name)
			continue
		}
		p.patch(ref.instr, p.labels[idx].Target)
		p.labels[idx].Refs++
	}
}

func (p *parser) checkLoads() {
	reported := make(map[int]bool)
	for _, load := range p.loads {
		if p.stored[load.slot] || reported[load.slot] {
			continue
		}
		reported[load.slot] = true
		p.addError(ParseUndefinedVariable, load.pos, "variable '%s' is loaded but never stored", p.locals[load.slot])
	}
}
