package complaintlist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/grievance-desk/internal/crossref"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/theme"
)

// activityMarker is drawn next to complaints with unread notifications.
const activityMarker = "●"

// ComplaintItem wraps a model.Complaint so it can be used in a bubbles/list.
type ComplaintItem struct {
	Complaint model.Complaint
}

// FilterValue returns the string used for fuzzy filtering.
func (i ComplaintItem) FilterValue() string { return i.Complaint.Title }

// Title returns the complaint title for the list.
func (i ComplaintItem) Title() string { return i.Complaint.Title }

// Description returns a short summary line for the list.
func (i ComplaintItem) Description() string {
	return fmt.Sprintf("%s | %s | %s",
		i.Complaint.Status,
		i.Complaint.DepartmentName,
		relativeTime(i.Complaint.CreatedAt),
	)
}

// activity holds the set of complaint ids with unread notifications. The
// list model and its delegate share one instance, so a refresh is visible
// to the next render without rebuilding the list.
type activity struct {
	marks map[string]bool
}

func (a *activity) has(entityID string) bool {
	return a != nil && a.marks[entityID]
}

// ItemDelegate implements list.ItemDelegate for rendering complaints.
type ItemDelegate struct {
	activity *activity
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single complaint line:
//
//	● #101 Pending  Broken chair in lab  Facilities  2d ago
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(ComplaintItem)
	if !ok {
		return
	}
	c := ci.Complaint

	marker := " "
	if d.activity.has(c.EntityID()) {
		marker = theme.ActivityMarkerStyle.Render(activityMarker)
	}

	ref := theme.DimmedStyle.Render(fmt.Sprintf("%-5s", crossref.FormatRef(c.ID)))
	status := theme.StatusStyle(c.Status).Render(fmt.Sprintf("%-11s", c.Status))

	dept := ""
	if c.DepartmentName != "" {
		dept = "  " + lipgloss.NewStyle().
			Foreground(theme.ColorBlue).
			Render(c.DepartmentName)
	}

	age := theme.DimmedStyle.Render(relativeTime(c.CreatedAt))

	line := fmt.Sprintf("%s %s %s %s%s  %s", marker, ref, status, c.Title, dept, age)

	if c.IsClosed() {
		line = theme.DimmedStyle.Render(line)
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
