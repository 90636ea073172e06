package statusform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/grievance-desk/internal/crossref"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/theme"
)

// maxRemarksLen matches the server-side column size.
const maxRemarksLen = 1000

// SubmitMsg is dispatched when the user confirms a status change.
type SubmitMsg struct {
	ComplaintID int64
	Status      string
	Remarks     string
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	status  string
	remarks string
}

// Model is the Bubble Tea model for the status update form.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	complaint model.Complaint
	width     int
	height    int
}

// New creates a new status form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form for the given complaint, preselecting its
// current status and remarks.
func (m *Model) Start(c model.Complaint) tea.Cmd {
	m.complaint = c
	m.fb.status = canonicalStatus(c.Status)
	m.fb.remarks = c.ManagerRemarks
	m.form = m.buildForm()
	return m.form.Init()
}

// Active reports whether a form is open.
func (m Model) Active() bool {
	return m.form != nil
}

// Update handles messages for the status form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		submit := SubmitMsg{
			ComplaintID: m.complaint.ID,
			Status:      m.fb.status,
			Remarks:     strings.TrimSpace(m.fb.remarks),
		}
		m.form = nil
		return m, func() tea.Msg { return submit }

	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the status form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := fmt.Sprintf("Update %s  %s", crossref.FormatRef(m.complaint.ID), m.complaint.Title)
	content := titleStyle.Render(title) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[string], len(model.Statuses))
	for i, s := range model.Statuses {
		opts[i] = huh.NewOption(s, s)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Status").
				Options(opts...).
				Value(&m.fb.status),
			huh.NewText().
				Title("Remarks").
				Placeholder("Visible to the employee...").
				CharLimit(maxRemarksLen).
				Value(&m.fb.remarks).
				Validate(m.validateRemarks),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// validateRemarks requires a remark when a complaint is rejected.
func (m *Model) validateRemarks(s string) error {
	if m.fb.status == model.StatusRejected && strings.TrimSpace(s) == "" {
		return fmt.Errorf("remarks are required when rejecting")
	}
	return nil
}

// canonicalStatus maps a loosely formatted status onto one of the
// known statuses, defaulting to Pending.
func canonicalStatus(status string) string {
	key := model.NormalizeStatus(status)
	for _, s := range model.Statuses {
		if model.NormalizeStatus(s) == key {
			return s
		}
	}
	return model.StatusPending
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}
