package main

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func completionLabels(items []protocol.CompletionItem) []string {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	return labels
}

func TestDiagnosticsForParseErrors(t *testing.T) {
	diagnostics := diagnosticsFor("1 frob\ngoto nowhere")
	if len(diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(diagnostics))
	}

	first := diagnostics[0]
	if first.Message != "unknown instruction 'frob'" {
		t.Fatalf("unexpected message %q", first.Message)
	}
	if first.Range.Start != (protocol.Position{Line: 0, Character: 2}) || first.Range.End != (protocol.Position{Line: 0, Character: 6}) {
		t.Fatalf("unexpected range %+v", first.Range)
	}
	if first.Severity == nil || *first.Severity != protocol.DiagnosticSeverityError {
		t.Fatalf("expected error severity")
	}

	second := diagnostics[1]
	if second.Range.Start != (protocol.Position{Line: 1, Character: 5}) {
		t.Fatalf("unexpected range %+v", second.Range)
	}
}

func TestDiagnosticsForValidSource(t *testing.T) {
	diagnostics := diagnosticsFor("1 2 + println")
	if diagnostics == nil || len(diagnostics) != 0 {
		t.Fatalf("expected an empty, non-nil diagnostic list, got %v", diagnostics)
	}
}

func TestCompletionMnemonicsByPrefix(t *testing.T) {
	items := completionItems("1 du", protocol.Position{Line: 0, Character: 4})
	labels := completionLabels(items)
	if strings.Join(labels, ",") != "dup" {
		t.Fatalf("unexpected completions %v", labels)
	}
	if items[0].Detail == nil || *items[0].Detail != "dup (1 -> 2)" {
		t.Fatalf("unexpected detail %v", items[0].Detail)
	}
}

func TestCompletionIncludesKeywords(t *testing.T) {
	labels := completionLabels(completionItems("lo", protocol.Position{Line: 0, Character: 2}))
	if strings.Join(labels, ",") != "load,log,loop" {
		t.Fatalf("unexpected completions %v", labels)
	}
}

func TestCompletionLabelsAfterJump(t *testing.T) {
	text := "top:\n1 pop\ndone: exit\ngoto "
	labels := completionLabels(completionItems(text, protocol.Position{Line: 3, Character: 5}))
	if strings.Join(labels, ",") != "done,top" {
		t.Fatalf("unexpected label completions %v", labels)
	}

	labels = completionLabels(completionItems("top: 1 br t", protocol.Position{Line: 0, Character: 11}))
	if strings.Join(labels, ",") != "top" {
		t.Fatalf("unexpected filtered completions %v", labels)
	}
}

func TestCompletionVariablesAfterLoadStore(t *testing.T) {
	text := "1 store count\n2 store total\nload "
	labels := completionLabels(completionItems(text, protocol.Position{Line: 2, Character: 5}))
	if strings.Join(labels, ",") != "count,total" {
		t.Fatalf("unexpected variable completions %v", labels)
	}
}

func TestCompletionTypesAfterConvert(t *testing.T) {
	labels := completionLabels(completionItems("1 convert ", protocol.Position{Line: 0, Character: 10}))
	if strings.Join(labels, ",") != "string,int,float,bool,nil" {
		t.Fatalf("unexpected type completions %v", labels)
	}
}

func TestCompletionEmptyPrefixOffersNothing(t *testing.T) {
	if items := completionItems("1 ", protocol.Position{Line: 0, Character: 2}); len(items) != 0 {
		t.Fatalf("expected no completions, got %v", completionLabels(items))
	}
}

func TestHoverDescribesOpcodes(t *testing.T) {
	text := "1 dup +"
	hover := hoverFor(extractWord(text, protocol.Position{Line: 0, Character: 3}))
	if hover == nil {
		t.Fatalf("expected hover for dup")
	}
	content, ok := hover.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatalf("unexpected hover contents %T", hover.Contents)
	}
	if !strings.Contains(content.Value, "**dup** `dup (1 -> 2)`") || !strings.Contains(content.Value, "Duplicate the top value.") {
		t.Fatalf("unexpected hover %q", content.Value)
	}

	hover = hoverFor("goto")
	content = hover.Contents.(protocol.MarkupContent)
	if !strings.Contains(content.Value, "goto <label> (0 -> 0)") {
		t.Fatalf("unexpected hover %q", content.Value)
	}
}

func TestHoverDescribesKeywords(t *testing.T) {
	hover := hoverFor("loop")
	if hover == nil {
		t.Fatalf("expected hover for loop")
	}
	if content := hover.Contents.(protocol.MarkupContent); !strings.Contains(content.Value, "**loop** keyword") {
		t.Fatalf("unexpected hover %q", content.Value)
	}
}

func TestHoverUnknownWord(t *testing.T) {
	if hover := hoverFor("frob"); hover != nil {
		t.Fatalf("expected no hover, got %+v", hover)
	}
	if hover := hoverFor(""); hover != nil {
		t.Fatalf("expected no hover for empty word")
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"load counter", protocol.Position{Line: 0, Character: 7}, "counter"},
		{"load counter", protocol.Position{Line: 0, Character: 12}, "counter"},
		{"a\nswap", protocol.Position{Line: 1, Character: 0}, "swap"},
		{"1 + 2", protocol.Position{Line: 0, Character: 2}, ""},
		{"x", protocol.Position{Line: 4, Character: 0}, ""},
	}
	for _, tt := range tests {
		if got := extractWord(tt.text, tt.pos); got != tt.want {
			t.Fatalf("extractWord(%q, %+v) = %q, want %q", tt.text, tt.pos, got, tt.want)
		}
	}
}

func TestPositionsCountUTF16Units(t *testing.T) {
	diagnostics := diagnosticsFor(`"😀" print frob`)
	if len(diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diagnostics))
	}
	got := diagnostics[0].Range
	if got.Start != (protocol.Position{Line: 0, Character: 11}) || got.End != (protocol.Position{Line: 0, Character: 15}) {
		t.Fatalf("unexpected range %+v", got)
	}

	// UTF-16 offset 9 is just after "load"; as a rune index it would fall
	// inside "counter".
	text := `"😀" load counter`
	if word := extractWord(text, protocol.Position{Line: 0, Character: 9}); word != "load" {
		t.Fatalf("unexpected word %q", word)
	}
	// Offset 8 sits between "d" and "u".
	labels := completionLabels(completionItems("\"😀\" 1 du", protocol.Position{Line: 0, Character: 8}))
	if len(labels) < 2 || !strings.Contains(strings.Join(labels, " "), "div") {
		t.Fatalf("expected completions for prefix d, got %v", labels)
	}
}
