package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/mgomes/stacky/stacky"
)

const (
	exitUsage   = 1
	exitRuntime = 2
	exitLimit   = 3
)

func main() {
	if err := runCLI(os.Args); err != nil {
		reportError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "check":
		return checkCommand(args[2:])
	case "build":
		return buildCommand(args[2:])
	case "dis":
		return disCommand(args[2:])
	case "analyze":
		return analyzeCommand(args[2:])
	case "fmt":
		return fmtCommand(args[2:])
	case "repl":
		return runREPL()
	case "lsp":
		return runLSP()
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	configPath := fs.String("config", "", "path to a stacky.toml file")
	maxStack := fs.Int("max-stack", 0, "maximum operand stack depth")
	maxSteps := fs.Int("max-steps", 0, "maximum number of executed instructions")
	memory := fs.Int("memory", 0, "memory quota in bytes")
	verbose := fs.Bool("v", false, "log run statistics to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("stacky run: script path required")
	}

	scriptPath, err := filepath.Abs(remaining[0])
	if err != nil {
		return fmt.Errorf("resolve script path: %w", err)
	}
	cfg, err := resolveConfig(*configPath, scriptPath)
	if err != nil {
		return err
	}
	cfg.override(*maxStack, *maxSteps, *memory)
	if *verbose {
		cfg.Log.Level = zerolog.DebugLevel.String()
	}

	program, err := loadProgram(scriptPath)
	if err != nil {
		return err
	}

	inputs := make([]stacky.Value, len(remaining)-1)
	for i, raw := range remaining[1:] {
		inputs[i] = stacky.NewString(raw)
	}

	logger, err := newLogger(os.Stderr, cfg.Log.Level)
	if err != nil {
		return err
	}
	interpCfg := cfg.interpreterConfig()
	interpCfg.Output = os.Stdout
	interpCfg.Input = os.Stdin
	interpCfg.Logger = &logger
	return stacky.New(interpCfg).Run(program, inputs)
}

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("stacky check: script path required")
	}
	paths, err := collectSourceFiles(fs.Args())
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, path := range paths {
		input, err := os.ReadFile(path)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("read script: %w", err))
			continue
		}
		if _, err := stacky.Compile(string(input)); err != nil {
			result = multierror.Append(result, &fileError{Path: path, Err: err})
		}
	}
	if result != nil {
		result.ErrorFormat = formatFileErrors
	}
	return result.ErrorOrNil()
}

func buildCommand(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	out := fs.String("o", "", "output path (default: script name with .stkc extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("stacky build: script path required")
	}

	scriptPath := remaining[0]
	input, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	program, err := stacky.Compile(string(input))
	if err != nil {
		return &fileError{Path: scriptPath, Err: err}
	}
	data, err := program.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode program: %w", err)
	}

	target := *out
	if target == "" {
		target = strings.TrimSuffix(scriptPath, filepath.Ext(scriptPath)) + compiledExt
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Printf("wrote %s (%d instructions)\n", target, program.Len())
	return nil
}

func disCommand(args []string) error {
	fs := flag.NewFlagSet("dis", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("stacky dis: script path required")
	}
	program, err := loadProgram(remaining[0])
	if err != nil {
		return err
	}
	fmt.Print(program.String())
	return nil
}

const compiledExt = ".stkc"

// loadProgram compiles a source file or decodes a program written by build.
func loadProgram(path string) (*stacky.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	if filepath.Ext(path) == compiledExt {
		return stacky.UnmarshalProgram(data)
	}
	program, err := stacky.Compile(string(data))
	if err != nil {
		return nil, &fileError{Path: path, Err: err}
	}
	return program, nil
}

// fileError attaches the offending path to a compile failure.
type fileError struct {
	Path string
	Err  error
}

func (e *fileError) Error() string {
	var parseErrs stacky.ParseErrors
	if errors.As(e.Err, &parseErrs) {
		return e.Path + ":\n" + parseErrs.Detail()
	}
	return e.Path + ": " + e.Err.Error()
}

func (e *fileError) Unwrap() error { return e.Err }

func formatFileErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%s\n\n%d file(s) failed to compile", strings.Join(parts, "\n\n"), len(errs))
}

func exitCode(err error) int {
	var limitErr *stacky.LimitError
	if errors.As(err, &limitErr) {
		return exitLimit
	}
	var runtimeErr *stacky.RuntimeError
	if errors.As(err, &runtimeErr) {
		return exitRuntime
	}
	return exitUsage
}

func reportError(w io.Writer, err error) {
	color.New(color.FgRed).Fprintln(w, err)
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] [args...]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [flags] <script> [args...]   compile and execute a script (.stk or .stkc)")
	fmt.Fprintln(os.Stderr, "  check <paths...>                 report every compile diagnostic")
	fmt.Fprintln(os.Stderr, "  build [-o out] <script>          write a compiled .stkc program")
	fmt.Fprintln(os.Stderr, "  dis <script>                     print the instruction listing")
	fmt.Fprintln(os.Stderr, "  analyze <script>                 report unreachable code and unused names")
	fmt.Fprintln(os.Stderr, "  fmt [-w] [-check] <paths...>     indent .stk sources")
	fmt.Fprintln(os.Stderr, "  repl                             interactive session")
	fmt.Fprintln(os.Stderr, "  lsp                              language server on stdio")
	fmt.Fprintln(os.Stderr, "Run flags:")
	fmt.Fprintln(os.Stderr, "  -config <file>")
	fmt.Fprintln(os.Stderr, "    limits file (default: stacky.toml next to the script)")
	fmt.Fprintln(os.Stderr, "  -max-stack n, -max-steps n, -memory n")
	fmt.Fprintln(os.Stderr, "    override the configured limits")
	fmt.Fprintln(os.Stderr, "  -v")
	fmt.Fprintln(os.Stderr, "    log run statistics to stderr")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
