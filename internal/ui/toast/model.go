// Package toast renders the stack of transient messages shown in the
// corner of the screen. Expiry is owned by the notification store; this
// view only draws whatever toasts it was last given.
package toast

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/theme"
)

// maxVisible bounds how many toasts are drawn at once.
const maxVisible = 3

// Model is the toast strip.
type Model struct {
	toasts []model.Toast
	width  int
}

// New creates an empty toast strip.
func New(width int) Model {
	return Model{width: width}
}

// SetToasts replaces the rendered toasts. ts is expected newest first.
func (m *Model) SetToasts(ts []model.Toast) {
	m.toasts = ts
}

// Newest returns the most recent toast, if any.
func (m Model) Newest() (model.Toast, bool) {
	if len(m.toasts) == 0 {
		return model.Toast{}, false
	}
	return m.toasts[0], true
}

// Empty reports whether there is nothing to draw.
func (m Model) Empty() bool {
	return len(m.toasts) == 0
}

// View renders up to maxVisible toasts, newest on top, right aligned.
func (m Model) View() string {
	if len(m.toasts) == 0 {
		return ""
	}

	boxWidth := min(max(m.width/3, 24), m.width)
	style := theme.ToastStyle.Width(max(boxWidth-2, 1))

	rows := make([]string, 0, maxVisible+1)
	for i, t := range m.toasts {
		if i == maxVisible {
			rows = append(rows, theme.DimmedStyle.Render(
				fmt.Sprintf("+%d more", len(m.toasts)-maxVisible)))
			break
		}
		rows = append(rows, style.Render(
			theme.DimmedStyle.Render(t.TimeOfDay())+" "+t.Message))
	}

	stack := lipgloss.JoinVertical(lipgloss.Right, rows...)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, stack)
}

// SetSize updates the strip width.
func (m *Model) SetSize(width int) {
	m.width = width
}
