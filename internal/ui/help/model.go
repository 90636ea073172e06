package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/grievance-desk/internal/keys"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/theme"
)

// section is one titled group of bindings in the overlay.
type section struct {
	title    string
	bindings []key.Binding
}

// sectionTitles name the groups of keys.KeyMap.FullHelp in order. The
// last group is only shown to roles that can manage complaints.
var sectionTitles = []string{"Navigation", "Complaints", "Notifications", "Managing"}

// commandVerbs lists what the ":" palette accepts.
var commandVerbs = []string{
	"open <id>", "#<id>", "refresh", "read", "clear", "filter <status|all>", "quit",
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	role   model.Role
	help   help.Model
	width  int
	height int
}

// New creates the help overlay for a session with the given role.
func New(k *keys.KeyMap, role model.Role, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   k,
		role:   role,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) sections() []section {
	groups := m.keys.FullHelp()
	if !m.role.CanManage() {
		groups = groups[:len(groups)-1]
	}
	out := make([]section, 0, len(groups))
	for i, g := range groups {
		title := ""
		if i < len(sectionTitles) {
			title = sectionTitles[i]
		}
		out = append(out, section{title: title, bindings: g})
	}
	return out
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)
	headingStyle := lipgloss.NewStyle().
		Bold(true).
		MarginTop(1)

	lines := []string{titleStyle.Render("Grievance Desk: keys")}
	if m.role != "" {
		lines = append(lines, "Signed in as "+theme.RoleStyle(m.role).Render(string(m.role)))
	}

	m.help.Width = m.width - 4
	for _, s := range m.sections() {
		lines = append(lines,
			headingStyle.Render(s.title),
			m.help.ShortHelpView(s.bindings),
		)
	}

	lines = append(lines,
		headingStyle.Render("Commands"),
		theme.HelpStyle.Render(strings.Join(commandVerbs, " · ")),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
