package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mgomes/stacky/stacky"
)

func TestAnalyzeProgramWarnings(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "code after an endless loop",
			source: "loop end 1 print",
			want:   []string{"1:10: unreachable instruction"},
		},
		{
			name:   "code after error",
			source: `"x" error 1 pop`,
			want:   []string{"1:11: unreachable instruction"},
		},
		{
			name:   "unused label",
			source: "start: 1 pop",
			want:   []string{"1:1: label 'start' is never used"},
		},
		{
			name:   "stored but never loaded",
			source: "1 store x\n2 store x",
			want:   []string{"1:3: variable 'x' is stored but never loaded"},
		},
		{
			name:   "exit inside if",
			source: "1 if exit else 2 pop end",
			want:   nil,
		},
		{
			name:   "counting loop",
			source: "3 store n\ntop:\n  load n 1 - store n\n  load n br top",
			want:   nil,
		},
		{
			name:   "comment directly after a jump target",
			source: "top: 1 print goto top;again",
			want:   nil,
		},
		{
			name:   "comment directly after a loop end",
			source: "loop break end;done",
			want:   nil,
		},
		{
			name:   "several findings are sorted",
			source: "unused: exit\n1 store y",
			want: []string{
				"1:1: label 'unused' is never used",
				"2:1: unreachable instruction",
				"2:3: variable 'y' is stored but never loaded",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := stacky.Compile(tt.source)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			var got []string
			for _, w := range analyzeProgram(program) {
				got = append(got, formatWarning(w))
			}
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Fatalf("warnings mismatch\nwant:\n%s\ngot:\n%s", strings.Join(tt.want, "\n"), strings.Join(got, "\n"))
			}
		})
	}
}

func TestAnalyzeCommandReportsIssues(t *testing.T) {
	path := writeScript(t, "start: 1 pop")
	out, err := captureStdout(t, func() error {
		return analyzeCommand([]string{path})
	})
	if err == nil || err.Error() != "analysis found 1 issue(s)" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, path+":1:1: label 'start' is never used") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAnalyzeCommandCleanScript(t *testing.T) {
	path := writeScript(t, "1 2 + println")
	out, err := captureStdout(t, func() error {
		return analyzeCommand([]string{path})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "No issues found\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func formatWarning(w lintWarning) string {
	return fmt.Sprintf("%d:%d: %s", w.Pos.Line, w.Pos.Column, w.Message)
}
