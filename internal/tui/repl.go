// Package tui implements the interactive assistant session.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aversine/adjutant/internal/plugin"
	"github.com/aversine/adjutant/internal/router"
	"github.com/aversine/adjutant/internal/task"
	"github.com/aversine/adjutant/internal/workspace"
)

const maxHistory = 200

// Model is the BubbleTea model for the interactive session.
type Model struct {
	registry  *plugin.Registry
	commands  *router.Router
	tracker   *task.Tracker
	project   *workspace.Context
	sessionID string

	input   textinput.Model
	lines   []string
	theme   Theme
	width   int
	busy    bool
}

// resultMsg carries a finished dispatch back into the update loop.
type resultMsg struct {
	command string
	result  plugin.Result
}

// New creates the interactive session model. tracker and project may be nil.
func New(registry *plugin.Registry, commands *router.Router, tracker *task.Tracker, project *workspace.Context, sessionID string) *Model {
	ti := textinput.New()
	ti.Placeholder = "plugin:command args... (help for usage)"
	ti.Prompt = "> "
	ti.Focus()

	m := &Model{
		registry:  registry,
		commands:  commands,
		tracker:   tracker,
		project:   project,
		sessionID: sessionID,
		input:     ti,
		theme:     NewDefaultTheme(),
	}
	m.pushBanner()
	return m
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "enter":
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			return m.execute(line)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case resultMsg:
		m.busy = false
		m.pushResult(msg.command, msg.result)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// execute handles one entered line: session keywords inline, everything
// else dispatched through the command router.
func (m *Model) execute(line string) (tea.Model, tea.Cmd) {
	m.push(m.theme.Prompt.Render("> ") + line)

	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "quit", "exit":
		return m, tea.Quit
	case "help":
		m.pushHelp()
		return m, nil
	case "plugins":
		m.pushPlugins()
		return m, nil
	case "commands":
		m.pushCommands()
		return m, nil
	case "status", "tasks":
		m.pushTasks()
		return m, nil
	}

	m.busy = true
	m.push(m.theme.Dim.Render("running " + command + " ..."))
	return m, func() tea.Msg {
		return resultMsg{
			command: command,
			result:  m.commands.Route(context.Background(), command, args),
		}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	start := 0
	if len(m.lines) > maxHistory {
		start = len(m.lines) - maxHistory
	}
	for _, line := range m.lines[start:] {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("help  plugins  commands  status  quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) push(lines ...string) {
	m.lines = append(m.lines, lines...)
}

func (m *Model) pushBanner() {
	var b strings.Builder
	fmt.Fprintf(&b, "adjutant  session %s", m.sessionID)
	if m.project != nil {
		fmt.Fprintf(&b, "\n%s", m.project.Path)
		var traits []string
		if m.project.Language != "" {
			traits = append(traits, m.project.Language)
		}
		if m.project.Framework != "" {
			traits = append(traits, m.project.Framework)
		}
		if m.project.GitRepo {
			traits = append(traits, "git")
		}
		if len(traits) > 0 {
			fmt.Fprintf(&b, "  (%s)", strings.Join(traits, ", "))
		}
	}
	m.push(m.theme.Banner.Render(b.String()), "")
}

func (m *Model) pushHelp() {
	m.push(
		m.theme.Header.Render("Usage"),
		"  plugin:command [args] [--key=value]   run a plugin command",
		"  anything else                         forwarded to the primary tool",
		"",
		m.theme.Header.Render("Session"),
		"  plugins    list loaded plugins",
		"  commands   list available commands",
		"  status     show this session's tasks",
		"  quit       leave",
		"",
	)
}

func (m *Model) pushPlugins() {
	for _, d := range m.registry.Plugins() {
		m.push(fmt.Sprintf("  %s %s  %s",
			m.theme.Header.Render(d.Name),
			m.theme.Dim.Render("v"+d.Version),
			d.Description))
	}
	m.push("")
}

func (m *Model) pushCommands() {
	for _, name := range m.registry.Commands() {
		m.push("  " + name)
	}
	m.push("")
}

func (m *Model) pushTasks() {
	if m.tracker == nil {
		m.push(m.theme.Dim.Render("  task tracking disabled"), "")
		return
	}
	tasks := m.tracker.List()
	if len(tasks) == 0 {
		m.push(m.theme.Dim.Render("  no tasks yet"), "")
		return
	}
	for _, t := range tasks {
		style := m.theme.Dim
		switch t.Status {
		case task.StatusCompleted:
			style = m.theme.Success
		case task.StatusFailed:
			style = m.theme.Failure
		}
		m.push(fmt.Sprintf("  %s  %s  %s",
			style.Render(string(t.Status)), t.ID[:8], t.Description))
	}
	m.push("")
}

func (m *Model) pushResult(command string, res plugin.Result) {
	if res.Success {
		m.push(m.theme.Success.Render("ok ") + command)
		if res.Output != nil {
			m.push(indentOutput(res.Output)...)
		}
	} else {
		m.push(m.theme.Failure.Render("error ") + command + ": " + res.Error)
		for _, s := range res.Suggestions {
			m.push(m.theme.Dim.Render("  hint: " + s))
		}
	}
	m.push("")
}

func indentOutput(output any) []string {
	var rendered string
	switch v := output.(type) {
	case string:
		rendered = v
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			rendered = fmt.Sprintf("%v", v)
		} else {
			rendered = string(b)
		}
	}
	rendered = strings.TrimRight(rendered, "\n")
	if rendered == "" {
		return nil
	}
	lines := strings.Split(rendered, "\n")
	for i := range lines {
		lines[i] = "  " + lines[i]
	}
	return lines
}

// Run starts the interactive session and blocks until it exits.
func Run(m *Model) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
