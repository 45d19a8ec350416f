// Package stacky implements a sandboxed interpreter for a small stack-based
// scripting language. Source is compiled once into an immutable Program and
// executed by a single-use Interpreter:
//   - Literals for ints (decimal, 0x, 0b), floats, strings, true, false and
//     nil. A bare literal pushes itself.
//   - Instruction mnemonics such as dup, swap, add, print and convert, with
//     the aliases + - * / % == != < > <= >= !.
//   - Labels (`name:`) with goto, br and brf, plus structured
//     `if ... else ... end` and `loop ... end` blocks with break/continue.
//   - Named local variables via store and load.
//
// Comments beginning with `;` run to the end of the line. Every run is bounded
// by a maximum stack depth, a step budget and a memory quota; exceeding one
// ends the run with a typed diagnostic instead of a crash or a hang.
package stacky
