package stacky

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProgram is returned by Validate and UnmarshalProgram for a
// program that could not have come from Compile.
var ErrInvalidProgram = errors.New("invalid program")

// Instruction is one opcode with at most one immediate operand. The meaning
// of Operand depends on the opcode's OperandKind.
type Instruction struct {
	Op      Opcode
	Operand int
	Pos     Position
}

// Label is a named jump target declared in source. Refs counts the jump
// instructions that name it.
type Label struct {
	Name   string
	Target int
	Pos    Position
	Refs   int
}

// Program is a compiled, validated script. It is never mutated after
// construction and may be shared by concurrent interpreters.
type Program struct {
	instructions []Instruction
	constants    []Value
	locals       []string
	labels       []Label
	source       string
}

func (p *Program) Len() int { return len(p.instructions) }

func (p *Program) Instruction(i int) Instruction { return p.instructions[i] }

func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.instructions))
	copy(out, p.instructions)
	return out
}

func (p *Program) Constants() []Value {
	out := make([]Value, len(p.constants))
	copy(out, p.constants)
	return out
}

// Locals returns variable names indexed by slot.
func (p *Program) Locals() []string {
	out := make([]string, len(p.locals))
	copy(out, p.locals)
	return out
}

// Labels returns the declared labels in source order.
func (p *Program) Labels() []Label {
	out := make([]Label, len(p.labels))
	copy(out, p.labels)
	return out
}

func (p *Program) Source() string { return p.source }

// Equal reports whether two programs are structurally identical.
func (p *Program) Equal(other *Program) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.source != other.source ||
		len(p.instructions) != len(other.instructions) ||
		len(p.constants) != len(other.constants) ||
		len(p.locals) != len(other.locals) ||
		len(p.labels) != len(other.labels) {
		return false
	}
	for i := range p.instructions {
		if p.instructions[i] != other.instructions[i] {
			return false
		}
	}
	for i := range p.constants {
		if !p.constants[i].identical(other.constants[i]) {
			return false
		}
	}
	for i := range p.locals {
		if p.locals[i] != other.locals[i] {
			return false
		}
	}
	for i := range p.labels {
		if p.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants the interpreter relies on:
// known opcodes, operands in range and a terminating exit.
func (p *Program) Validate() error {
	n := len(p.instructions)
	if n == 0 {
		return fmt.Errorf("%w: no instructions", ErrInvalidProgram)
	}
	if last := p.instructions[n-1]; last.Op != OpHalt {
		return fmt.Errorf("%w: last instruction is %s, want exit", ErrInvalidProgram, last.Op)
	}
	for i, ins := range p.instructions {
		if !ins.Op.Valid() {
			return fmt.Errorf("%w: instruction %d has unknown opcode %d", ErrInvalidProgram, i, uint8(ins.Op))
		}
		var limit int
		switch ins.Op.Info().Operand {
		case OperandNone:
			if ins.Operand != 0 {
				return fmt.Errorf("%w: instruction %d (%s) takes no operand", ErrInvalidProgram, i, ins.Op)
			}
			continue
		case OperandConst:
			limit = len(p.constants)
		case OperandTarget:
			limit = n
		case OperandSlot:
			limit = len(p.locals)
		case OperandType:
			limit = int(KindString) + 1
		}
		if ins.Operand < 0 || ins.Operand >= limit {
			return fmt.Errorf("%w: instruction %d (%s) operand %d out of range [0,%d)", ErrInvalidProgram, i, ins.Op, ins.Operand, limit)
		}
	}
	for _, c := range p.constants {
		if c.kind > KindString {
			return fmt.Errorf("%w: constant of unknown kind %d", ErrInvalidProgram, uint8(c.kind))
		}
	}
	for _, l := range p.labels {
		if l.Target < 0 || l.Target >= n {
			return fmt.Errorf("%w: label %s targets %d", ErrInvalidProgram, l.Name, l.Target)
		}
		if l.Refs < 0 {
			return fmt.Errorf("%w: label %s has %d references", ErrInvalidProgram, l.Name, l.Refs)
		}
	}
	return nil
}

// String renders a disassembly listing with labels and source positions.
func (p *Program) String() string {
	labelsAt := make(map[int][]string)
	for _, l := range p.labels {
		labelsAt[l.Target] = append(labelsAt[l.Target], l.Name)
	}

	var b strings.Builder
	for i, ins := range p.instructions {
		for _, name := range labelsAt[i] {
			fmt.Fprintf(&b, "%s:\n", name)
		}
		text := ins.Op.String()
		if operand := p.operandText(ins); operand != "" {
			text += " " + operand
		}
		fmt.Fprintf(&b, "%04d  %-24s ; %d:%d\n", i, text, ins.Pos.Line, ins.Pos.Column)
	}
	return b.String()
}

func (p *Program) operandText(ins Instruction) string {
	switch ins.Op.Info().Operand {
	case OperandConst:
		if ins.Operand < len(p.constants) {
			return p.constants[ins.Operand].Inspect()
		}
	case OperandTarget:
		for _, l := range p.labels {
			if l.Target == ins.Operand {
				return fmt.Sprintf("%s (@%04d)", l.Name, ins.Operand)
			}
		}
		return fmt.Sprintf("@%04d", ins.Operand)
	case OperandSlot:
		if ins.Operand < len(p.locals) {
			return p.locals[ins.Operand]
		}
	case OperandType:
		return ValueKind(ins.Operand).String()
	}
	return ""
}
