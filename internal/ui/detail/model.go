package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/grievance-desk/internal/crossref"
	"github.com/nhle/grievance-desk/internal/keys"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// DetailLoadedMsg carries the loaded complaint.
type DetailLoadedMsg struct {
	Complaint *model.Complaint
	Err       error
}

// UpdateStatusMsg asks the parent to open the status form for a complaint.
type UpdateStatusMsg struct {
	Complaint model.Complaint
}

// Model is the complaint detail view component.
type Model struct {
	complaint *model.Complaint
	related   []model.Notification
	canManage bool
	loadErr   error
	viewport  viewport.Model
	keys      *keys.KeyMap
	width     int
	height    int
	loading   bool
}

// New creates a new detail view model. canManage enables the status
// update action.
func New(k *keys.KeyMap, canManage bool, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport:  vp,
		keys:      k,
		canManage: canManage,
		width:     width,
		height:    height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		m.complaint = msg.Complaint
		m.loadErr = msg.Err
		m.loading = false
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.UpdateStatus):
			if m.complaint != nil && m.canManage {
				c := *m.complaint
				return m, func() tea.Msg {
					return UpdateStatusMsg{Complaint: c}
				}
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	centered := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return centered.Render("Loading complaint...")
	}

	if m.loadErr != nil {
		return centered.Render("Could not load complaint.\n" + m.loadErr.Error())
	}

	if m.complaint == nil {
		return centered.Render("No complaint selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.complaint == nil {
		return ""
	}

	c := m.complaint
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(
		fmt.Sprintf("%s  %s", crossref.FormatRef(c.ID), c.Title),
	))

	sections = append(sections, theme.StatusStyle(c.Status).Render(c.Status))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(11)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	field := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, metaStyle.Render(label+":")+" "+valStyle.Render(value))
	}

	field("Employee", c.EmployeeName)
	field("Department", c.DepartmentName)
	if !c.CreatedAt.IsZero() {
		field("Filed", c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if c.ResolvedAt != nil && !c.ResolvedAt.IsZero() {
		field("Closed", c.ResolvedAt.Local().Format("2006-01-02 15:04"))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	placeholder := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)

	sections = append(sections, "", separator, "")
	sections = append(sections, headerStyle.Render("Description"), "")
	if c.Description != "" {
		sections = append(sections, c.Description)
	} else {
		sections = append(sections, placeholder.Render("No description"))
	}

	if c.ManagerRemarks != "" {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render("Manager remarks"), "")
		sections = append(sections, c.ManagerRemarks)
	}

	if len(m.related) > 0 {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render(
			fmt.Sprintf("Activity (%d)", len(m.related)),
		), "")
		for _, n := range m.related {
			sections = append(sections, fmt.Sprintf("%s  %s",
				theme.DimmedStyle.Render(n.TimeOfDay()), n.Message))
		}
	}

	if m.canManage {
		sections = append(sections, "", theme.HelpStyle.Render("u update status  esc back"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetComplaint updates the complaint being displayed and re-renders.
func (m *Model) SetComplaint(c *model.Complaint) {
	m.complaint = c
	m.loadErr = nil
	m.loading = false
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetRelated replaces the notifications shown under Activity.
func (m *Model) SetRelated(ns []model.Notification) {
	m.related = ns
	m.viewport.SetContent(m.renderContent())
}

// Complaint returns the complaint on screen, or nil.
func (m Model) Complaint() *model.Complaint {
	return m.complaint
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
