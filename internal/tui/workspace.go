// Package tui provides Bubble Tea models for edugit.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chazuruo/edugit/internal/config"
	"github.com/chazuruo/edugit/internal/history"
	"github.com/chazuruo/edugit/internal/shell"
	"github.com/chazuruo/edugit/internal/workspace"
)

// pane identifies the focused workspace panel.
type pane int

const (
	paneTerminal pane = iota
	paneFiles
	paneRemotes
)

// WorkspaceModel is the Bubble Tea model for the whole teaching workspace:
// the terminal, the file/gutter pane, and the remotes browser.
type WorkspaceModel struct {
	// Session is the engine-facing terminal session.
	Session *shell.Session

	// Config is the application config.
	Config *config.Config

	// UI is the persisted view state (selected file, open tabs).
	UI *workspace.UIState

	// Pane is the focused panel.
	Pane pane

	// Input is the terminal command line.
	Input textinput.Model

	// Output is the terminal scrollback viewport.
	Output viewport.Model

	// Scrollback accumulates terminal lines.
	Scrollback []string

	// History is the command recall buffer.
	History *history.History

	// Branch is the branch shown in the status bar.
	Branch string

	// RefreshToken mirrors the session's change counter.
	RefreshToken uint64

	// Files state.
	Files      *filesModel
	Remotes    *remotesModel

	// Help is the keybindings help.
	Help     help.Model
	ShowHelp bool

	// styles
	titleStyle  lipgloss.Style
	branchStyle lipgloss.Style
	errorStyle  lipgloss.Style
	dimStyle    lipgloss.Style
	addStyle    lipgloss.Style
	modStyle    lipgloss.Style
	delStyle    lipgloss.Style

	width  int
	height int

	keyMap workspaceKeyMap
}

// workspaceKeyMap defines key bindings for the workspace.
type workspaceKeyMap struct {
	NextPane key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newWorkspaceKeyMap() workspaceKeyMap {
	return workspaceKeyMap{
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k workspaceKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPane, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k workspaceKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.NextPane, k.Help, k.Quit}}
}

// sessionEventMsg carries a state-change event from the session.
type sessionEventMsg shell.Event

// NewWorkspaceModel builds the workspace model.
func NewWorkspaceModel(session *shell.Session, cfg *config.Config, ui *workspace.UIState) *WorkspaceModel {
	input := textinput.New()
	input.Prompt = cfg.Terminal.Prompt + " "
	input.Placeholder = "git status"
	input.Focus()

	m := &WorkspaceModel{
		Session: session,
		Config:  cfg,
		UI:      ui,
		Input:   input,
		History: history.New(),
		Output:  viewport.New(80, 20),
		Help:    help.New(),
		keyMap:  newWorkspaceKeyMap(),

		titleStyle:  lipgloss.NewStyle().Bold(true),
		branchStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		errorStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		dimStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		addStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		modStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("179")),
		delStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
	m.Files = newFilesModel(m)
	m.Remotes = newRemotesModel(m)
	return m
}

// Init implements tea.Model.
func (m *WorkspaceModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *WorkspaceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.Output.Width = msg.Width
		m.Output.Height = msg.Height - 4
		return m, nil

	case sessionEventMsg:
		m.Branch = msg.BranchName
		m.RefreshToken = msg.RefreshToken
		m.Files.refresh()
		m.Remotes.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keyMap.Help):
			m.ShowHelp = !m.ShowHelp
			return m, nil
		case key.Matches(msg, m.keyMap.NextPane):
			m.Pane = (m.Pane + 1) % 3
			if m.Pane == paneTerminal {
				m.Input.Focus()
			} else {
				m.Input.Blur()
			}
			return m, nil
		}
		switch m.Pane {
		case paneTerminal:
			switch msg.String() {
			case "enter":
				return m, m.runCommand()
			case "up":
				if cmd, ok := m.History.Prev(m.Input.Value()); ok {
					m.Input.SetValue(cmd)
					m.Input.CursorEnd()
				}
				return m, nil
			case "down":
				if cmd, ok := m.History.Next(); ok {
					m.Input.SetValue(cmd)
					m.Input.CursorEnd()
				}
				return m, nil
			}
		case paneFiles:
			return m, m.Files.update(msg)
		case paneRemotes:
			return m, m.Remotes.update(msg)
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	m.Output, cmd = m.Output.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// runCommand executes the current input line through the session and
// appends its output to the scrollback.
func (m *WorkspaceModel) runCommand() tea.Cmd {
	line := strings.TrimSpace(m.Input.Value())
	m.Input.SetValue("")
	if line == "" {
		return nil
	}
	m.History.Append(line)

	m.Scrollback = append(m.Scrollback,
		m.dimStyle.Render(m.Session.Cwd()+" "+m.Config.Terminal.Prompt+" ")+line)
	res := m.Session.Run(context.Background(), line)
	if res.ClearScreen {
		m.Scrollback = nil
	}
	for _, out := range res.Lines {
		if strings.HasPrefix(out, "fatal:") || strings.HasPrefix(out, "error:") {
			out = m.errorStyle.Render(out)
		}
		m.Scrollback = append(m.Scrollback, out)
	}
	m.Output.SetContent(strings.Join(m.Scrollback, "\n"))
	m.Output.GotoBottom()

	// The session listener already queued a refresh; keep pane models
	// current even when events are dropped.
	m.Branch = currentBranch(m.Session)
	m.Files.refresh()
	m.Remotes.refresh()
	return nil
}

// View implements tea.Model.
func (m *WorkspaceModel) View() string {
	var b strings.Builder

	branch := m.Branch
	if branch == "" {
		branch = "(no branch)"
	}
	title := m.titleStyle.Render("edugit") + "  " +
		m.branchStyle.Render(branch) + "  " +
		m.dimStyle.Render(m.Session.Cwd())
	b.WriteString(title + "\n")

	switch m.Pane {
	case paneTerminal:
		b.WriteString(m.Output.View() + "\n")
		b.WriteString(m.Input.View() + "\n")
	case paneFiles:
		b.WriteString(m.Files.view())
	case paneRemotes:
		b.WriteString(m.Remotes.view())
	}

	if m.ShowHelp {
		b.WriteString(m.Help.View(m.keyMap))
	}
	return b.String()
}

// currentBranch reads the branch for display, tolerating missing repos.
func currentBranch(s *shell.Session) string {
	ev := captureEvent(s)
	return ev.BranchName
}

// captureEvent recomputes the display event outside the listener path.
func captureEvent(s *shell.Session) shell.Event {
	return shell.Event{RefreshToken: s.RefreshToken(), BranchName: s.BranchName()}
}

// RunWorkspace runs the workspace TUI until the user quits.
func RunWorkspace(session *shell.Session, cfg *config.Config, ui *workspace.UIState) error {
	m := NewWorkspaceModel(session, cfg, ui)

	p := tea.NewProgram(m, tea.WithAltScreen())
	session.OnEvent(func(ev shell.Event) {
		go p.Send(sessionEventMsg(ev))
	})
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("workspace TUI: %w", err)
	}
	return nil
}
