package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/texpm/texpm/pkg/mirror"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// MirrorListModel - Interactive mirror selection
// =============================================================================

// MirrorListModel is the bubbletea model for interactive mirror selection.
type MirrorListModel struct {
	Mirrors  []mirror.Mirror
	Cursor   int
	Selected *mirror.Mirror
}

// NewMirrorListModel creates a new mirror list model.
func NewMirrorListModel(mirrors []mirror.Mirror) MirrorListModel {
	return MirrorListModel{Mirrors: mirrors}
}

func (m MirrorListModel) Init() tea.Cmd {
	return nil
}

func (m MirrorListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Mirrors)-1 {
				m.Cursor++
			}
		case "enter":
			selected := m.Mirrors[m.Cursor]
			m.Selected = &selected
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m MirrorListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Mirror"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	for i, mir := range m.Mirrors {
		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		line := fmt.Sprintf("%s%-10s %-14s %s", cursor, mir.Name, mir.Country, listDimStyle.Render(mir.URL))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

// pickMirror runs the interactive mirror picker and returns the choice,
// or nil when the user quits without selecting.
func pickMirror(mirrors []mirror.Mirror) (*mirror.Mirror, error) {
	p := tea.NewProgram(NewMirrorListModel(mirrors))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	model, ok := final.(MirrorListModel)
	if !ok {
		return nil, nil
	}
	return model.Selected, nil
}
