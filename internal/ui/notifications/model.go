package notifications

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/grievance-desk/internal/crossref"
	"github.com/nhle/grievance-desk/internal/keys"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/theme"
)

// CloseMsg signals the parent to close the panel.
type CloseMsg struct{}

// ClearAllMsg asks the parent to discard every notification.
type ClearAllMsg struct{}

// OpenComplaintMsg asks the parent to open the complaint a notification
// refers to.
type OpenComplaintMsg struct {
	ID int64
}

// Model is the notification panel. It renders a snapshot handed in by
// the parent and never mutates the store itself.
type Model struct {
	keys        *keys.KeyMap
	items       []model.Notification
	selectedIdx int
	width       int
	height      int
}

// New creates a new notification panel.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetNotifications replaces the rendered list. ns is expected newest first.
func (m *Model) SetNotifications(ns []model.Notification) {
	m.items = ns
	if m.selectedIdx >= len(m.items) {
		m.selectedIdx = max(len(m.items)-1, 0)
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key input for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(kmsg, m.keys.Back), key.Matches(kmsg, m.keys.Notifications):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(kmsg, m.keys.Down):
		if len(m.items) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.items)
		}

	case key.Matches(kmsg, m.keys.Up):
		if len(m.items) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.items) - 1
			}
		}

	case key.Matches(kmsg, m.keys.ClearAll):
		if len(m.items) == 0 {
			return m, nil
		}
		m.selectedIdx = 0
		return m, func() tea.Msg { return ClearAllMsg{} }

	case key.Matches(kmsg, m.keys.Select):
		if len(m.items) == 0 {
			return m, nil
		}
		if id, ok := complaintRef(m.items[m.selectedIdx]); ok {
			return m, func() tea.Msg { return OpenComplaintMsg{ID: id} }
		}
	}
	return m, nil
}

// complaintRef picks the complaint a notification points at: the explicit
// entity id when present, else the first "#<id>" in the message.
func complaintRef(n model.Notification) (int64, bool) {
	candidates := crossref.ExtractComplaintRefs(n.Message)
	if crossref.IsEntityID(n.EntityID) {
		candidates = append([]string{n.EntityID}, candidates...)
	}
	for _, c := range candidates {
		if id, err := strconv.ParseInt(c, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// View renders the panel.
func (m Model) View() string {
	var b strings.Builder

	unread := 0
	for _, n := range m.items {
		if !n.Read {
			unread++
		}
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render(fmt.Sprintf("Notifications (%d, %d unread)", len(m.items), unread)))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No notifications."))
	} else {
		for i, n := range m.visible() {
			text := n.Message
			if !n.Read {
				text = theme.UnreadItemStyle.Render(text)
			}
			label := theme.DimmedStyle.Render(n.TimeOfDay()) + "  " + text

			if i+m.offset() == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"enter open complaint | x clear all | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

// rows is how many notifications fit between the title and the hints.
func (m Model) rows() int {
	return max(m.height-8, 1)
}

// offset scrolls the window so the selection stays visible.
func (m Model) offset() int {
	return max(m.selectedIdx-m.rows()+1, 0)
}

func (m Model) visible() []model.Notification {
	start := m.offset()
	end := min(start+m.rows(), len(m.items))
	return m.items[start:end]
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
