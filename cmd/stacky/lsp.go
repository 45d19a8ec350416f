package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/mgomes/stacky/stacky"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "stacky-lsp"

var keywordDocs = map[string]string{
	"if":       "Pop a condition and run the following block when it is truthy.",
	"else":     "Start the branch that runs when the `if` condition is falsy.",
	"end":      "Close the innermost `if` or `loop` block.",
	"loop":     "Repeat the block until `break`, `exit` or a fault.",
	"break":    "Leave the innermost `loop`.",
	"continue": "Jump back to the start of the innermost `loop`.",
	"true":     "Push the boolean true.",
	"false":    "Push the boolean false.",
	"nil":      "Push nil.",
}

type lspServer struct {
	mu   sync.Mutex
	docs map[string]string

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

func newLSPServer() *lspServer {
	s := &lspServer{
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

func runLSP() error {
	commonlog.Configure(0, nil)
	return newLSPServer().server.RunStdio()
}

func (s *lspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{" "},
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *lspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *lspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *lspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (s *lspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *lspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync: the last change carries the whole document.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.docs[string(uri)] = whole.Text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, whole.Text)
	return nil
}

func (s *lspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *lspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return completionItems(text, params.Position), nil
}

func (s *lspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return hoverFor(extractWord(text, params.Position)), nil
}

func (s *lspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

func (s *lspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnosticsFor(text),
	})
}

// diagnosticsFor compiles text and converts every parse error into an LSP
// diagnostic spanning the offending word.
func diagnosticsFor(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	_, err := stacky.Compile(text)
	if err == nil {
		return diagnostics
	}
	var parseErrs stacky.ParseErrors
	if !errors.As(err, &parseErrs) {
		return diagnostics
	}

	lines := strings.Split(text, "\n")
	severity := protocol.DiagnosticSeverityError
	source := lspName
	for _, pe := range parseErrs {
		start := toProtocolPosition(lines, pe.Pos)
		endPos := pe.Pos
		endPos.Column += max(len([]rune(wordAt(lines, pe.Pos))), 1)
		end := toProtocolPosition(lines, endPos)
		code := protocol.IntegerOrString{Value: pe.Kind.String()}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: &severity,
			Code:     &code,
			Source:   &source,
			Message:  pe.Msg,
		})
	}
	return diagnostics
}

// toProtocolPosition converts a rune-based source position into the UTF-16
// offsets LSP clients count in.
func toProtocolPosition(lines []string, pos stacky.Position) protocol.Position {
	line := max(pos.Line-1, 0)
	column := max(pos.Column-1, 0)
	if line < len(lines) {
		column = utf16Units([]rune(lines[line]), column)
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(column)}
}

// utf16Units is the UTF-16 length of the first n runes of line. Runes past
// the end of the line count as one unit each.
func utf16Units(line []rune, n int) int {
	units := 0
	for i := 0; i < n; i++ {
		if i < len(line) && utf16.RuneLen(line[i]) == 2 {
			units += 2
			continue
		}
		units++
	}
	return units
}

// runeIndex maps a UTF-16 offset within line back to a rune index, clamped
// to the line.
func runeIndex(line []rune, units int) int {
	for i, r := range line {
		n := 1
		if utf16.RuneLen(r) == 2 {
			n = 2
		}
		if units < n {
			return i
		}
		units -= n
	}
	return len(line)
}

// completionItems offers names that fit the cursor: labels after a jump,
// variables after load or store, type names after convert and instruction
// mnemonics everywhere else.
func completionItems(text string, pos protocol.Position) []protocol.CompletionItem {
	prefix, previous := completionContext(text, pos)

	var (
		names  []string
		kind   protocol.CompletionItemKind
		detail string
	)
	switch previous {
	case "goto", "br", "brf":
		names, kind, detail = documentLabels(text), protocol.CompletionItemKindReference, "label"
	case "load", "store":
		names, kind, detail = documentVariables(text), protocol.CompletionItemKindVariable, "variable"
	case "convert":
		names, kind, detail = stacky.TypeNames(), protocol.CompletionItemKindTypeParameter, "type"
	default:
		if prefix == "" {
			return nil
		}
		var items []protocol.CompletionItem
		for _, name := range stacky.Mnemonics() {
			if strings.HasPrefix(name, prefix) {
				op, _ := stacky.LookupOpcode(name)
				items = append(items, completionItem(name, protocol.CompletionItemKindFunction, opcodeSignature(op.Info())))
			}
		}
		for _, name := range stacky.Keywords() {
			if strings.HasPrefix(name, prefix) {
				items = append(items, completionItem(name, protocol.CompletionItemKindKeyword, "keyword"))
			}
		}
		return items
	}

	var items []protocol.CompletionItem
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			items = append(items, completionItem(name, kind, detail))
		}
	}
	return items
}

func completionItem(label string, kind protocol.CompletionItemKind, detail string) protocol.CompletionItem {
	insert := label
	return protocol.CompletionItem{
		Label:      label,
		Kind:       &kind,
		Detail:     &detail,
		InsertText: &insert,
	}
}

// completionContext returns the partial word under the cursor and the word
// before it on the same line.
func completionContext(text string, pos protocol.Position) (prefix, previous string) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", ""
	}
	line := []rune(lines[pos.Line])
	col := runeIndex(line, int(pos.Character))
	before := string(line[:col])

	words := codeWords(before)
	if strings.HasSuffix(before, " ") || strings.HasSuffix(before, "\t") || len(words) == 0 {
		if len(words) > 0 {
			previous = words[len(words)-1]
		}
		return "", previous
	}
	prefix = words[len(words)-1]
	if len(words) > 1 {
		previous = words[len(words)-2]
	}
	return prefix, previous
}

func documentLabels(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, line := range strings.Split(text, "\n") {
		for _, word := range codeWords(line) {
			if !isLabelWord(word) {
				continue
			}
			name := strings.TrimSuffix(word, ":")
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func documentVariables(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, line := range strings.Split(text, "\n") {
		words := codeWords(line)
		for i := 0; i+1 < len(words); i++ {
			if words[i] != "load" && words[i] != "store" {
				continue
			}
			name := words[i+1]
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func hoverFor(word string) *protocol.Hover {
	if word == "" {
		return nil
	}

	var b strings.Builder
	if op, ok := stacky.LookupOpcode(word); ok {
		info := op.Info()
		fmt.Fprintf(&b, "**%s** `%s`\n\n%s", info.Name, opcodeSignature(info), info.Doc)
	} else if doc, ok := keywordDocs[word]; ok {
		fmt.Fprintf(&b, "**%s** keyword\n\n%s", word, doc)
	} else {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func opcodeSignature(info stacky.OpInfo) string {
	operand := ""
	switch info.Operand {
	case stacky.OperandConst:
		operand = " <literal>"
	case stacky.OperandTarget:
		operand = " <label>"
	case stacky.OperandSlot:
		operand = " <variable>"
	case stacky.OperandType:
		operand = " <type>"
	}
	return fmt.Sprintf("%s%s (%d -> %d)", info.Name, operand, info.Arity, info.Results)
}

func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := []rune(lines[pos.Line])
	col := runeIndex(line, int(pos.Character))

	start := col
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordRune(line[end]) {
		end++
	}
	if start == end {
		return ""
	}
	return string(line[start:end])
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func boolPtr(b bool) *bool {
	return &b
}
