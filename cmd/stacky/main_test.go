package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/mgomes/stacky/stacky"
)

func TestRunCLIHelp(t *testing.T) {
	if err := runCLI([]string{"stacky", "help"}); err != nil {
		t.Fatalf("help returned error: %v", err)
	}
}

func TestRunCLIUnknownCommand(t *testing.T) {
	err := runCLI([]string{"stacky", "frobnicate"})
	if err == nil || err.Error() != "invalid command" {
		t.Fatalf("expected invalid command error, got %v", err)
	}
	if code := exitCode(err); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}

func TestRunCommandRequiresScriptPath(t *testing.T) {
	err := runCommand(nil)
	if err == nil || !strings.Contains(err.Error(), "script path required") {
		t.Fatalf("expected script path error, got %v", err)
	}
}

func TestRunCommandPrintsOutput(t *testing.T) {
	path := writeScript(t, `"hi" println 1 2 + println`)
	out, err := captureStdout(t, func() error {
		return runCommand([]string{path})
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "hi\n3\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunCommandPassesArgumentsAsStrings(t *testing.T) {
	path := writeScript(t, "argc println 0 getarg println 1 getarg len println")
	out, err := captureStdout(t, func() error {
		return runCommand([]string{path, "x", "héllo"})
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "2\nx\n5\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunCommandExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		flags  []string
		code   int
	}{
		{"parse error", "1 frob", nil, exitUsage},
		{"runtime error", "1 0 /", nil, exitRuntime},
		{"step budget", "loop end", []string{"-max-steps", "10"}, exitLimit},
		{"stack cap", "loop 1 end", []string{"-max-stack", "5"}, exitRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, tt.source)
			_, err := captureStdout(t, func() error {
				return runCommand(append(tt.flags, path))
			})
			if err == nil {
				t.Fatalf("expected an error")
			}
			if code := exitCode(err); code != tt.code {
				t.Fatalf("expected exit code %d, got %d (%v)", tt.code, code, err)
			}
		})
	}
}

func TestRunCommandParseErrorsNameTheFile(t *testing.T) {
	path := writeScript(t, "1 frob\ngoto nowhere")
	_, err := captureStdout(t, func() error {
		return runCommand([]string{path})
	})
	var parseErrs stacky.ParseErrors
	if !errors.As(err, &parseErrs) {
		t.Fatalf("expected ParseErrors, got %T: %v", err, err)
	}
	if len(parseErrs) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(parseErrs))
	}
	if !strings.HasPrefix(err.Error(), path+":\nparse error at 1:3: unknown instruction 'frob'") {
		t.Fatalf("unexpected message:\n%s", err)
	}
}

func TestRunCommandReadsConfigBesideScript(t *testing.T) {
	path := writeScript(t, "loop end")
	writeFile(t, filepath.Join(filepath.Dir(path), configFileName), "[limits]\nmax_execution_time = 5\n")

	_, err := captureStdout(t, func() error {
		return runCommand([]string{path})
	})
	var limitErr *stacky.LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LimitError, got %T: %v", err, err)
	}
	if limitErr.Max != 5 {
		t.Fatalf("expected budget from stacky.toml, got %d", limitErr.Max)
	}

	_, err = captureStdout(t, func() error {
		return runCommand([]string{"-max-steps", "7", path})
	})
	if !errors.As(err, &limitErr) || limitErr.Max != 7 {
		t.Fatalf("expected flag to override the file budget, got %v", err)
	}
}

func TestRunCommandExplicitConfigFlag(t *testing.T) {
	path := writeScript(t, "loop 1 end")
	cfgPath := filepath.Join(t.TempDir(), "limits.toml")
	writeFile(t, cfgPath, "[limits]\nmax_stack_size = 3\n")

	_, err := captureStdout(t, func() error {
		return runCommand([]string{"-config", cfgPath, path})
	})
	if !errors.Is(err, stacky.ErrStackOverflow) {
		t.Fatalf("expected stack overflow, got %v", err)
	}
	if !strings.Contains(err.Error(), "maximum stack size of 3") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestCheckCommandAggregatesEveryFile(t *testing.T) {
	good := writeScript(t, "1 2 +")
	bad1 := writeScript(t, "frob")
	bad2 := writeScript(t, "1 if")

	if err := checkCommand([]string{good}); err != nil {
		t.Fatalf("clean file should pass: %v", err)
	}

	err := checkCommand([]string{bad1, good, bad2})
	if err == nil {
		t.Fatalf("expected check failure")
	}
	msg := err.Error()
	for _, want := range []string{
		bad1 + ":\nparse error at 1:1: unknown instruction 'frob'",
		bad2 + ":\nparse error at 1:3: 'if' is never closed with 'end'",
		"2 file(s) failed to compile",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing %q in:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, good) {
		t.Fatalf("clean file reported:\n%s", msg)
	}
	if code := exitCode(err); code != exitUsage {
		t.Fatalf("expected exit code %d, got %d", exitUsage, code)
	}
}

func TestBuildThenRunCompiledProgram(t *testing.T) {
	path := writeScript(t, `"built" println argc println`)
	out := filepath.Join(t.TempDir(), "prog.stkc")

	if _, err := captureStdout(t, func() error {
		return buildCommand([]string{"-o", out, path})
	}); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	got, err := captureStdout(t, func() error {
		return runCommand([]string{out, "a"})
	})
	if err != nil {
		t.Fatalf("run compiled failed: %v", err)
	}
	if got != "built\n1\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestBuildDefaultOutputPath(t *testing.T) {
	path := writeScript(t, "1 pop")
	if _, err := captureStdout(t, func() error {
		return buildCommand([]string{path})
	}); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	want := strings.TrimSuffix(path, ".stk") + ".stkc"
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected %s: %v", want, err)
	}
}

func TestDisCommandListsInstructions(t *testing.T) {
	path := writeScript(t, "start: 1 goto start")
	out, err := captureStdout(t, func() error {
		return disCommand([]string{path})
	})
	if err != nil {
		t.Fatalf("dis failed: %v", err)
	}
	for _, want := range []string{"start:\n", "0000  push 1", "0001  goto start (@0000)", "0002  exit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in listing:\n%s", want, out)
		}
	}
}

func TestReportErrorWritesMessage(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	reportError(&buf, errors.New("boom"))
	if buf.String() != "boom\n" {
		t.Fatalf("unexpected report %q", buf.String())
	}
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.stk")
	writeFile(t, path, source)
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()
	_ = w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("read stdout: %v", copyErr)
	}
	_ = r.Close()
	return buf.String(), runErr
}
