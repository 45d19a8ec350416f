package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mgomes/stacky/stacky"
)

// REPL entries run under tighter limits than scripts.
const (
	replMaxStackSize     = 256
	replMaxExecutionTime = 10000
	replInputLimit       = 500
)

type replTheme struct {
	prompt lipgloss.Style
	ok     lipgloss.Style
	fault  lipgloss.Style
	muted  lipgloss.Style
	title  lipgloss.Style
	index  lipgloss.Style
	panel  lipgloss.Style
}

func newReplTheme() replTheme {
	accent := lipgloss.Color("#8B5CF6")
	return replTheme{
		prompt: lipgloss.NewStyle().Foreground(accent).Bold(true),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")),
		fault:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F43F5E")),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#71717A")),
		title:  lipgloss.NewStyle().Foreground(accent).Bold(true),
		index:  lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
	}
}

// replEntry is one submitted line and what running it produced.
type replEntry struct {
	input  string
	output string
	failed bool
}

type replKeys struct {
	Run      key.Binding
	Previous key.Binding
	Next     key.Binding
	Complete key.Binding
	Stack    key.Binding
	Help     key.Binding
	Clear    key.Binding
	Quit     key.Binding
}

func (k replKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Stack, k.Clear, k.Quit}
}

func (k replKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Previous, k.Next, k.Complete},
		{k.Stack, k.Help, k.Clear, k.Quit},
	}
}

var replKeyMap = replKeys{
	Run:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run entry")),
	Previous: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous entry")),
	Next:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next entry")),
	Complete: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
	Stack:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "stack")),
	Help:     key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "help")),
	Clear:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
}

type replModel struct {
	textInput textinput.Model
	help      help.Model
	theme     replTheme
	config    stacky.Config

	// stack is the final stack of the most recent run.
	stack   []stacky.Value
	entries []replEntry

	submitted []string
	recallIdx int

	width, height int
	showStack     bool
	quitting      bool
	initialized   bool
}

func newREPLModel() replModel {
	theme := newReplTheme()

	ti := textinput.New()
	ti.Placeholder = "instructions, e.g. 1 2 + println"
	ti.Focus()
	ti.CharLimit = replInputLimit
	ti.Width = 60
	ti.PromptStyle = theme.prompt
	ti.Prompt = "stacky> "

	return replModel{
		textInput: ti,
		help:      help.New(),
		theme:     theme,
		config: stacky.Config{
			MaxStackSize:     replMaxStackSize,
			MaxExecutionTime: replMaxExecutionTime,
		},
		recallIdx: -1,
		showStack: true,
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textInput.Width = max(msg.Width-10, 10)
		m.help.Width = msg.Width
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, replKeyMap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, replKeyMap.Clear):
			m.entries = nil
			return m, nil
		case key.Matches(msg, replKeyMap.Stack):
			m.showStack = !m.showStack
			return m, nil
		case key.Matches(msg, replKeyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, replKeyMap.Previous):
			return m.recall(-1), nil
		case key.Matches(msg, replKeyMap.Next):
			return m.recall(1), nil
		case key.Matches(msg, replKeyMap.Complete):
			return m.handleAutocomplete(), nil
		case key.Matches(msg, replKeyMap.Run):
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textInput.Value())
	m.textInput.SetValue("")
	m.recallIdx = -1
	if input == "" {
		return m, nil
	}
	if strings.HasPrefix(input, ":") {
		return m.handleCommand(input)
	}

	var entry replEntry
	m, entry = m.evaluate(input)
	m.entries = append(m.entries, entry)
	m.submitted = append(m.submitted, input)
	return m, nil
}

// recall walks the submitted entries; moving past the newest clears the
// input line.
func (m replModel) recall(step int) replModel {
	if len(m.submitted) == 0 {
		return m
	}
	switch {
	case m.recallIdx == -1 && step < 0:
		m.recallIdx = len(m.submitted) - 1
	case m.recallIdx == -1:
		return m
	default:
		m.recallIdx += step
	}
	switch {
	case m.recallIdx < 0:
		m.recallIdx = 0
	case m.recallIdx >= len(m.submitted):
		m.recallIdx = -1
		m.textInput.SetValue("")
		return m
	}
	m.textInput.SetValue(m.submitted[m.recallIdx])
	m.textInput.CursorEnd()
	return m
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case ":help", ":h":
		m.help.ShowAll = !m.help.ShowAll
	case ":clear", ":c":
		m.entries = nil
	case ":stack", ":s":
		m.showStack = !m.showStack
	case ":dis", ":d":
		m.entries = append(m.entries, disassembleEntry(input, rest))
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.entries = append(m.entries, replEntry{
			input:  input,
			output: fmt.Sprintf("unknown command %s (try :help)", name),
			failed: true,
		})
	}
	return m, nil
}

func disassembleEntry(input, source string) replEntry {
	if source == "" {
		return replEntry{input: input, output: "usage: :dis <instructions>", failed: true}
	}
	program, err := stacky.Compile(source)
	if err != nil {
		return replEntry{input: input, output: err.Error(), failed: true}
	}
	return replEntry{input: input, output: strings.TrimRight(program.String(), "\n")}
}

// handleAutocomplete completes the word before the cursor from the
// instruction mnemonics and keywords, or type names after convert. An
// ambiguous word lists its candidates instead.
func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	words := strings.Fields(input)
	if len(words) == 0 || strings.HasSuffix(input, " ") {
		return m
	}
	word := words[len(words)-1]

	candidates := append(stacky.Mnemonics(), stacky.Keywords()...)
	if len(words) > 1 && words[len(words)-2] == "convert" {
		candidates = stacky.TypeNames()
	}
	var matches []string
	for _, c := range candidates {
		if strings.HasPrefix(c, word) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
	case 1:
		m.textInput.SetValue(strings.TrimSuffix(input, word) + matches[0])
		m.textInput.CursorEnd()
	default:
		m.entries = append(m.entries, replEntry{output: "Completions: " + strings.Join(matches, ", ")})
	}
	return m
}

// evaluate compiles and runs input as an independent program. The final
// stack replaces the one shown in the stack panel, even after a fault.
func (m replModel) evaluate(input string) (replModel, replEntry) {
	entry := replEntry{input: input}
	program, err := stacky.Compile(input)
	if err != nil {
		entry.output, entry.failed = err.Error(), true
		return m, entry
	}

	var out bytes.Buffer
	cfg := m.config
	cfg.Output = &out
	interp := stacky.New(cfg)
	runErr := interp.Run(program, nil)
	m.stack = interp.Stack()

	var lines []string
	if printed := strings.TrimRight(out.String(), "\n"); printed != "" {
		lines = append(lines, printed)
	}
	if runErr != nil {
		lines = append(lines, firstLine(runErr.Error()))
		entry.failed = true
	} else {
		lines = append(lines, formatStack(m.stack))
	}
	entry.output = strings.Join(lines, "\n")
	return m, entry
}

func formatStack(stack []stacky.Value) string {
	parts := make([]string, len(stack))
	for i, v := range stack {
		parts[i] = v.Inspect()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (m replModel) View() string {
	switch {
	case m.quitting:
		return m.theme.muted.Render("bye\n")
	case !m.initialized:
		return "starting..."
	}

	t := m.theme
	var b strings.Builder
	b.WriteString(t.title.Render("stacky") + " " + t.muted.Render("every entry runs as a fresh program") + "\n\n")

	panel := ""
	if m.showStack {
		panel = m.renderStackPanel()
	}
	// Keep the newest entries that fit above the panel, prompt and help.
	room := m.height - 6 - lipgloss.Height(panel)
	if m.help.ShowAll {
		room -= 4
	}
	start := 0
	for used, i := 0, len(m.entries)-1; i >= 0; i-- {
		used += strings.Count(m.entries[i].output, "\n") + 2
		if used > room {
			start = i + 1
			break
		}
	}
	for _, entry := range m.entries[start:] {
		if entry.input != "" {
			b.WriteString(t.muted.Render("› ") + entry.input + "\n")
		}
		style, mark := t.ok, "→ "
		if entry.failed {
			style, mark = t.fault, "✗ "
		}
		b.WriteString(style.Render(mark+entry.output) + "\n")
	}

	if panel != "" {
		b.WriteString(panel + "\n")
	}
	b.WriteString(m.textInput.View() + "\n\n")
	b.WriteString(m.help.View(replKeyMap))
	return b.String()
}

func (m replModel) renderStackPanel() string {
	t := m.theme
	if len(m.stack) == 0 {
		return t.panel.Render(t.muted.Render("stack is empty"))
	}
	lines := []string{t.title.Render("Stack (top first)")}
	for i := len(m.stack) - 1; i >= 0; i-- {
		v := m.stack[i]
		lines = append(lines, fmt.Sprintf("%s %s %s", t.index.Render(fmt.Sprintf("%3d", i)), v.Inspect(), t.muted.Render(v.Kind().String())))
	}
	return t.panel.Render(strings.Join(lines, "\n"))
}

func runREPL() error {
	_, err := tea.NewProgram(newREPLModel(), tea.WithAltScreen()).Run()
	return err
}
