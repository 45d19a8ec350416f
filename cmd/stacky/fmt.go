package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	sourceExt    = ".stk"
	indentString = "  "
)

func fmtCommand(args []string) error {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	write := fs.Bool("w", false, "rewrite files in place")
	check := fs.Bool("check", false, "list files whose formatting differs and fail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("stacky fmt: path required")
	}

	files, err := collectSourceFiles(fs.Args())
	if err != nil {
		return err
	}

	var stale []string
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		formatted := formatSource(string(src))
		if !*write && !*check {
			fmt.Print(formatted)
			continue
		}
		if formatted == string(src) {
			continue
		}
		stale = append(stale, path)
		if *write {
			if err := rewriteFile(path, formatted); err != nil {
				return err
			}
		}
	}

	if *check && len(stale) > 0 {
		if !*write {
			fmt.Println(strings.Join(stale, "\n"))
		}
		return fmt.Errorf("stacky fmt: %d file(s) need formatting", len(stale))
	}
	return nil
}

// rewriteFile replaces path's contents, keeping its permissions.
func rewriteFile(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// collectSourceFiles expands targets into a sorted, de-duplicated list of
// absolute .stk paths. Named files are taken as given whatever their
// extension; directories are walked for .stk files.
func collectSourceFiles(targets []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
		return nil
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", target, err)
		}
		if !info.IsDir() {
			if err := add(target); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() || filepath.Ext(path) != sourceExt {
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", target, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// formatSource indents each line by its block depth. Lines that start with
// a label definition sit at column zero; else and end line up with their
// opener. Runs of blank lines collapse to one.
func formatSource(source string) string {
	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var out []string
	depth := 0
	blank := false
	for _, raw := range strings.Split(normalized, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false

		words := codeWords(line)
		indent := depth
		if len(words) > 0 && (words[0] == "end" || words[0] == "else") {
			indent--
		}
		if len(words) > 0 && isLabelWord(words[0]) {
			indent = 0
		}
		if indent < 0 {
			indent = 0
		}
		out = append(out, strings.Repeat(indentString, indent)+line)

		for _, word := range words {
			switch word {
			case "if", "loop":
				depth++
			case "end":
				if depth > 0 {
					depth--
				}
			}
		}
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

// codeWords returns the whitespace separated words of a line, skipping
// string literals and anything after a comment marker.
func codeWords(line string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	inString := false
	escaped := false
	for _, r := range line {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch {
		case r == ';':
			flush()
			return words
		case r == '"':
			flush()
			inString = true
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

func isLabelWord(word string) bool {
	return len(word) > 1 && strings.HasSuffix(word, ":")
}
