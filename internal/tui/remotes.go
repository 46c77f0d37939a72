package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chazuruo/edugit/internal/remote"
)

// remotesModel is the remotes pane: the repository listing, each remote's
// merge requests, and the confirm-merge action.
type remotesModel struct {
	ws *WorkspaceModel

	names   []string
	cursor  int
	mrs     []remote.MergeRequest
	mrIdx   int
	errLine string
	notice  string
}

func newRemotesModel(ws *WorkspaceModel) *remotesModel {
	m := &remotesModel{ws: ws}
	m.refresh()
	return m
}

// refresh reloads the remote listing and the selected remote's requests.
func (m *remotesModel) refresh() {
	m.errLine = ""
	names, err := m.ws.Session.Remotes().List()
	if err != nil {
		m.errLine = err.Error()
		return
	}
	m.names = names
	if m.cursor >= len(names) {
		m.cursor = 0
	}
	m.mrs = nil
	if len(names) == 0 {
		return
	}
	rem, err := m.ws.Session.Remotes().Open(names[m.cursor])
	if err != nil {
		m.errLine = err.Error()
		return
	}
	mrs, err := remote.LoadMergeRequests(rem)
	if err != nil {
		m.errLine = err.Error()
		return
	}
	m.mrs = mrs
	if m.mrIdx >= len(mrs) {
		m.mrIdx = 0
	}
}

func (m *remotesModel) update(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
		if m.cursor > 0 {
			m.cursor--
			m.mrIdx = 0
			m.refresh()
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
		if m.cursor < len(m.names)-1 {
			m.cursor++
			m.mrIdx = 0
			m.refresh()
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("left", "h"))):
		if m.mrIdx > 0 {
			m.mrIdx--
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("right", "l"))):
		if m.mrIdx < len(m.mrs)-1 {
			m.mrIdx++
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("o"))):
		m.openSelected()
	case key.Matches(msg, key.NewBinding(key.WithKeys("m"))):
		m.mergeSelected()
	}
	return nil
}

// openSelected refreshes the selected request's derived fields (relation,
// diffs, dry-run verdict).
func (m *remotesModel) openSelected() {
	m.notice = ""
	if len(m.names) == 0 || len(m.mrs) == 0 {
		return
	}
	rem, err := m.ws.Session.Remotes().Open(m.names[m.cursor])
	if err != nil {
		m.errLine = err.Error()
		return
	}
	detail, err := remote.OpenMergeRequest(rem, m.mrs[m.mrIdx].ID)
	if err != nil {
		m.errLine = err.Error()
		return
	}
	m.notice = fmt.Sprintf("%s: relation %s, merge %s", detail.Slug, detail.MergeRelation, detail.MergeStatus)
	m.refresh()
}

// mergeSelected confirm-merges the selected open request.
func (m *remotesModel) mergeSelected() {
	m.notice = ""
	if len(m.names) == 0 || len(m.mrs) == 0 {
		return
	}
	rem, err := m.ws.Session.Remotes().Open(m.names[m.cursor])
	if err != nil {
		m.errLine = err.Error()
		return
	}
	merged, err := remote.ConfirmMerge(rem, m.mrs[m.mrIdx].ID, remote.ConfirmMergeOptions{
		DeleteBranchOnMerge: m.ws.Config.Remote.DeleteBranchOnMerge,
	})
	if err != nil {
		m.errLine = err.Error()
		return
	}
	m.notice = fmt.Sprintf("merged %s into %s", merged.Compare, merged.Base)
	m.refresh()
}

func (m *remotesModel) view() string {
	var b strings.Builder
	if m.errLine != "" {
		b.WriteString(m.ws.errorStyle.Render(m.errLine) + "\n")
	}
	if m.notice != "" {
		b.WriteString(m.ws.branchStyle.Render(m.notice) + "\n")
	}
	if len(m.names) == 0 {
		b.WriteString(m.ws.dimStyle.Render("no remote repositories") + "\n")
		return b.String()
	}
	for i, name := range m.names {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		b.WriteString(marker + name + "\n")
	}
	b.WriteString("\n")
	if len(m.mrs) == 0 {
		b.WriteString(m.ws.dimStyle.Render("no merge requests") + "\n")
	}
	for i, mr := range m.mrs {
		marker := "  "
		if i == m.mrIdx {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s  %s <- %s  [%s]", marker, mr.Title, mr.Base, mr.Compare, mr.Status)
		if mr.MergeRelation != "" {
			line += "  " + string(mr.MergeRelation)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(m.ws.dimStyle.Render("o: open  m: merge") + "\n")
	return b.String()
}
