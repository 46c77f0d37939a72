package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chazuruo/edugit/internal/diff"
	"github.com/chazuruo/edugit/internal/gutter"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/repo"
)

// filesModel is the file pane: the working-tree listing on the left and the
// selected file with gutter decorations on the right.
type filesModel struct {
	ws *WorkspaceModel

	files    []string
	cursor   int
	content  string
	marks    *diff.GutterResult
	tracker  gutter.Tracker
	errLine  string
}

func newFilesModel(ws *WorkspaceModel) *filesModel {
	m := &filesModel{ws: ws}
	m.refresh()
	return m
}

// repoAt opens the repository enclosing the session cwd, or nil.
func (m *filesModel) repoAt() *repo.Repository {
	r, err := repo.Discover(m.ws.Session.FS(), m.ws.Session.Cwd(), m.ws.Session.RepoOptions())
	if err != nil {
		return nil
	}
	return r
}

// refresh recomputes the file list and the gutter projection. It runs on
// buffer edits, selection changes, and every refresh-token bump; a stale
// in-flight projection is cancelled rather than published.
func (m *filesModel) refresh() {
	m.errLine = ""
	r := m.repoAt()
	if r == nil {
		m.files = nil
		m.content = ""
		m.marks = nil
		return
	}
	files, err := index.ListWorkFiles(r)
	if err != nil {
		m.errLine = err.Error()
		return
	}
	m.files = files
	if m.cursor >= len(files) {
		m.cursor = 0
	}
	if len(files) == 0 {
		m.content = ""
		m.marks = nil
		return
	}

	sel := files[m.cursor]
	m.ws.UI.SelectedFilePath = "/" + sel
	data, err := r.FS().ReadFile(r.WorkPath(sel))
	if err != nil {
		m.errLine = err.Error()
		return
	}
	buffer := string(data)

	if !m.tracker.Stale(sel, m.ws.RefreshToken, buffer) {
		return
	}
	m.tracker.Cancel()
	m.tracker.Begin(sel, m.ws.RefreshToken, buffer)
	marks, err := gutter.Compute(r, sel, buffer)
	if err != nil {
		m.errLine = err.Error()
		return
	}
	if m.tracker.Cancelled() {
		return
	}
	m.content = buffer
	m.marks = marks
}

func (m *filesModel) update(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
		if m.cursor > 0 {
			m.cursor--
			m.refresh()
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
		if m.cursor < len(m.files)-1 {
			m.cursor++
			m.refresh()
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("u"))):
		m.revertFirstChange()
	}
	return nil
}

// revertFirstChange undoes the first gutter change of the selected file and
// writes the buffer back to the working tree.
func (m *filesModel) revertFirstChange() {
	r := m.repoAt()
	if r == nil || m.marks == nil || len(m.marks.All) == 0 || len(m.files) == 0 {
		return
	}
	sel := m.files[m.cursor]
	reverted := gutter.Revert(m.content, m.marks.All[0])
	if err := r.FS().WriteFile(r.WorkPath(sel), []byte(reverted)); err != nil {
		m.errLine = err.Error()
		return
	}
	m.refresh()
}

func (m *filesModel) view() string {
	var b strings.Builder
	if m.errLine != "" {
		b.WriteString(m.ws.errorStyle.Render(m.errLine) + "\n")
	}
	if len(m.files) == 0 {
		b.WriteString(m.ws.dimStyle.Render("no files in the working tree") + "\n")
		return b.String()
	}

	for i, f := range m.files {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		b.WriteString(marker + f + "\n")
	}
	b.WriteString("\n")

	lines := strings.Split(m.content, "\n")
	for i, line := range lines {
		n := i + 1
		mark := " "
		style := m.ws.dimStyle
		if m.marks != nil {
			switch {
			case m.marks.AddedLines[n]:
				mark, style = "+", m.ws.addStyle
			case m.marks.ModifiedLines[n]:
				mark, style = "~", m.ws.modStyle
			case m.marks.RemovedMarkers[n]:
				mark, style = "-", m.ws.delStyle
			}
		}
		b.WriteString(fmt.Sprintf("%s %3d %s\n", style.Render(mark), n, line))
	}
	b.WriteString(m.ws.dimStyle.Render("u: revert first change") + "\n")
	return b.String()
}
