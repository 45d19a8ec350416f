package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/mgomes/stacky/stacky"
)

type lintWarning struct {
	Pos     stacky.Position
	Message string
}

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("stacky analyze: script path required")
	}

	scriptPath, err := filepath.Abs(remaining[0])
	if err != nil {
		return fmt.Errorf("resolve script path: %w", err)
	}
	input, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	program, err := stacky.Compile(string(input))
	if err != nil {
		return &fileError{Path: scriptPath, Err: err}
	}

	warnings := analyzeProgram(program)
	if len(warnings) == 0 {
		fmt.Println("No issues found")
		return nil
	}

	for _, warning := range warnings {
		fmt.Printf("%s:%d:%d: %s\n", scriptPath, warning.Pos.Line, warning.Pos.Column, warning.Message)
	}

	return fmt.Errorf("analysis found %d issue(s)", len(warnings))
}

func analyzeProgram(program *stacky.Program) []lintWarning {
	lines := strings.Split(program.Source(), "\n")
	warnings := make([]lintWarning, 0)
	warnings = append(warnings, lintUnreachable(program, lines)...)
	warnings = append(warnings, lintUnusedLabels(program)...)
	warnings = append(warnings, lintUnusedVariables(program)...)

	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].Pos.Line != warnings[j].Pos.Line {
			return warnings[i].Pos.Line < warnings[j].Pos.Line
		}
		return warnings[i].Pos.Column < warnings[j].Pos.Column
	})
	return warnings
}

// lintUnreachable reports each run of instructions that no path from the
// entry point reaches. Jumps the compiler emits for else and end are
// skipped since they are dead whenever a branch ends in exit or break.
func lintUnreachable(program *stacky.Program, lines []string) []lintWarning {
	n := program.Len()
	reached := make([]bool, n)
	work := []int{0}
	for len(work) > 0 {
		ip := work[len(work)-1]
		work = work[:len(work)-1]
		if ip < 0 || ip >= n || reached[ip] {
			continue
		}
		reached[ip] = true
		work = append(work, successors(program.Instruction(ip), ip)...)
	}

	var warnings []lintWarning
	inRun := false
	for ip := 0; ip < n-1; ip++ {
		if reached[ip] {
			inRun = false
			continue
		}
		ins := program.Instruction(ip)
		if ins.Op == stacky.OpGoto {
			if word := wordAt(lines, ins.Pos); word == "else" || word == "end" {
				continue
			}
		}
		if !inRun {
			warnings = append(warnings, lintWarning{Pos: ins.Pos, Message: "unreachable instruction"})
			inRun = true
		}
	}
	return warnings
}

func successors(ins stacky.Instruction, ip int) []int {
	switch ins.Op {
	case stacky.OpHalt, stacky.OpError:
		return nil
	case stacky.OpGoto:
		return []int{ins.Operand}
	case stacky.OpBr, stacky.OpBrf:
		return []int{ip + 1, ins.Operand}
	default:
		return []int{ip + 1}
	}
}

func lintUnusedLabels(program *stacky.Program) []lintWarning {
	var warnings []lintWarning
	for _, label := range program.Labels() {
		if label.Refs == 0 {
			warnings = append(warnings, lintWarning{
				Pos:     label.Pos,
				Message: fmt.Sprintf("label '%s' is never used", label.Name),
			})
		}
	}
	return warnings
}

func lintUnusedVariables(program *stacky.Program) []lintWarning {
	locals := program.Locals()
	loaded := make([]bool, len(locals))
	firstStore := make([]*stacky.Position, len(locals))
	for _, ins := range program.Instructions() {
		switch ins.Op {
		case stacky.OpLoad:
			loaded[ins.Operand] = true
		case stacky.OpStore:
			if firstStore[ins.Operand] == nil {
				pos := ins.Pos
				firstStore[ins.Operand] = &pos
			}
		}
	}

	var warnings []lintWarning
	for slot, name := range locals {
		if loaded[slot] || firstStore[slot] == nil {
			continue
		}
		warnings = append(warnings, lintWarning{
			Pos:     *firstStore[slot],
			Message: fmt.Sprintf("variable '%s' is stored but never loaded", name),
		})
	}
	return warnings
}

// wordAt returns the word starting at pos. Words end at whitespace or a
// comment marker, as in the lexer.
func wordAt(lines []string, pos stacky.Position) string {
	if pos.Line < 1 || pos.Line > len(lines) {
		return ""
	}
	runes := []rune(lines[pos.Line-1])
	if pos.Column < 1 || pos.Column > len(runes) {
		return ""
	}
	end := pos.Column - 1
	for end < len(runes) && runes[end] != ';' && !unicode.IsSpace(runes[end]) {
		end++
	}
	return string(runes[pos.Column-1 : end])
}
