package stacky

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// programFormatVersion is bumped whenever the encoded layout or the opcode
// numbering changes.
const programFormatVersion = 2

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("stacky: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireProgram struct {
	Version      int               `cbor:"1,keyasint"`
	Instructions []wireInstruction `cbor:"2,keyasint"`
	Constants    []wireValue       `cbor:"3,keyasint"`
	Locals       []string          `cbor:"4,keyasint"`
	Labels       []wireLabel       `cbor:"5,keyasint"`
	Source       string            `cbor:"6,keyasint"`
}

type wireInstruction struct {
	_       struct{} `cbor:",toarray"`
	Op      uint8
	Operand int
	Line    int
	Column  int
}

type wireValue struct {
	_    struct{} `cbor:",toarray"`
	Kind uint8
	Bits uint64
	Str  string
}

type wireLabel struct {
	_      struct{} `cbor:",toarray"`
	Name   string
	Target int
	Line   int
	Column int
	Refs   int
}

// MarshalBinary encodes the program as canonical CBOR, so equal programs
// always encode to identical bytes.
func (p *Program) MarshalBinary() ([]byte, error) {
	w := wireProgram{
		Version:      programFormatVersion,
		Instructions: make([]wireInstruction, len(p.instructions)),
		Constants:    make([]wireValue, len(p.constants)),
		Locals:       p.locals,
		Labels:       make([]wireLabel, len(p.labels)),
		Source:       p.source,
	}
	for i, ins := range p.instructions {
		w.Instructions[i] = wireInstruction{Op: uint8(ins.Op), Operand: ins.Operand, Line: ins.Pos.Line, Column: ins.Pos.Column}
	}
	for i, c := range p.constants {
		w.Constants[i] = wireValue{Kind: uint8(c.kind), Bits: c.bits, Str: c.str}
	}
	for i, l := range p.labels {
		w.Labels[i] = wireLabel{Name: l.Name, Target: l.Target, Line: l.Pos.Line, Column: l.Pos.Column, Refs: l.Refs}
	}
	data, err := cborEncMode.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("stacky: marshal program: %w", err)
	}
	return data, nil
}

// UnmarshalProgram decodes a program written by MarshalBinary and
// validates it, so a corrupted or hand-edited file never yields a program
// with an out-of-range jump, constant or slot.
func UnmarshalProgram(data []byte) (*Program, error) {
	var w wireProgram
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("stacky: unmarshal program: %w", err)
	}
	if w.Version != programFormatVersion {
		return nil, fmt.Errorf("stacky: unmarshal program: %w: format version %d, want %d", ErrInvalidProgram, w.Version, programFormatVersion)
	}

	p := &Program{
		instructions: make([]Instruction, len(w.Instructions)),
		constants:    make([]Value, len(w.Constants)),
		locals:       append([]string{}, w.Locals...),
		labels:       make([]Label, len(w.Labels)),
		source:       w.Source,
	}
	for i, ins := range w.Instructions {
		p.instructions[i] = Instruction{Op: Opcode(ins.Op), Operand: ins.Operand, Pos: Position{Line: ins.Line, Column: ins.Column}}
	}
	for i, c := range w.Constants {
		v := Value{kind: ValueKind(c.Kind), bits: c.Bits, str: c.Str}
		switch v.kind {
		case KindNil, KindString:
			v.bits = 0
		case KindBool:
			v.bits &= 1
		}
		if v.kind != KindString {
			v.str = ""
		}
		p.constants[i] = v
	}
	for i, l := range w.Labels {
		p.labels[i] = Label{Name: l.Name, Target: l.Target, Pos: Position{Line: l.Line, Column: l.Column}, Refs: l.Refs}
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("stacky: unmarshal program: %w", err)
	}
	return p, nil
}
