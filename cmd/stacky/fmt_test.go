package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFmtCommandRequiresPath(t *testing.T) {
	err := fmtCommand(nil)
	if err == nil {
		t.Fatalf("expected path required error")
	}
	if !strings.Contains(err.Error(), "path required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFmtCommandCheckDetectsUnformattedFiles(t *testing.T) {
	path := writeSourceFile(t, "loop  \nbreak\t \nend")
	_, err := captureStdout(t, func() error {
		return fmtCommand([]string{"-check", path})
	})
	if err == nil {
		t.Fatalf("expected formatting check failure")
	}
	if !strings.Contains(err.Error(), "need formatting") {
		t.Fatalf("unexpected check error: %v", err)
	}
}

func TestFmtCommandWriteFormatsFileInPlace(t *testing.T) {
	path := writeSourceFile(t, "loop  \nbreak\t \nend")
	if err := fmtCommand([]string{"-w", path}); err != nil {
		t.Fatalf("fmt -w failed: %v", err)
	}

	updated, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read formatted file: %v", err)
	}
	want := "loop\n  break\nend\n"
	if string(updated) != want {
		t.Fatalf("unexpected formatted output: %q", string(updated))
	}

	if err := fmtCommand([]string{"-check", path}); err != nil {
		t.Fatalf("formatted file should pass check: %v", err)
	}
}

func TestFmtCommandWalksDirectoriesForSourceFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.stk"), "loop\nend\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "  untouched  ")
	nested := filepath.Join(dir, "nested")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(nested, "b.stk"), "1 if\n2\nend")

	files, err := collectSourceFiles([]string{dir})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 source files, got %v", files)
	}

	out, err := captureStdout(t, func() error {
		return fmtCommand([]string{dir})
	})
	if err != nil {
		t.Fatalf("fmt failed: %v", err)
	}
	if out != "loop\nend\n1 if\n  2\nend\n" {
		t.Fatalf("unexpected stdout %q", out)
	}
}

func TestFormatSourceIndentsBlocks(t *testing.T) {
	input := strings.Join([]string{
		"; countdown",
		"start:",
		"loop",
		"load i 3 >= if",
		"break",
		"else",
		"\"if loop\" println ; if loop",
		"   again: 1 pop",
		"end",
		"",
		"",
		"",
		"    end",
		"",
	}, "\r\n")

	want := strings.Join([]string{
		"; countdown",
		"start:",
		"loop",
		"  load i 3 >= if",
		"    break",
		"  else",
		"    \"if loop\" println ; if loop",
		"again: 1 pop",
		"  end",
		"",
		"end",
	}, "\n") + "\n"

	if got := formatSource(input); got != want {
		t.Fatalf("unexpected formatting:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatSourceKeepsSingleLineBlocks(t *testing.T) {
	input := "1 if 2 else 3 end\nloop break end\n"
	if got := formatSource(input); got != input {
		t.Fatalf("single line blocks changed: %q", got)
	}
}

func TestFormatSourceToleratesStrayEnd(t *testing.T) {
	if got := formatSource("end\n  1"); got != "end\n1\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func writeSourceFile(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.stk")
	writeFile(t, path, source)
	return path
}
