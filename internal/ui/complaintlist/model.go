package complaintlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/grievance-desk/internal/keys"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/store"
	"github.com/nhle/grievance-desk/internal/theme"
)

// ComplaintsLoadedMsg is sent when complaints have been loaded from the cache.
type ComplaintsLoadedMsg struct {
	Complaints []model.Complaint
	Err        error
}

// SelectedComplaintMsg is sent when the user opens a complaint.
type SelectedComplaintMsg struct {
	ID int64
}

// ActivitySource reports which complaints have unread notifications.
type ActivitySource interface {
	ActiveEntities(ids []string) map[string]bool
}

// sortMode is one step of the Tab cycle.
type sortMode struct {
	label  string
	column string
	desc   bool
}

// sortModes defines the available sort modes cycled by Tab.
var sortModes = []sortMode{
	{label: "newest", column: "created_at", desc: true},
	{label: "oldest", column: "created_at"},
	{label: "id", column: "id"},
	{label: "title", column: "title"},
	{label: "status", column: "status"},
}

// statusFilters is the status cycle; "" shows every status.
var statusFilters = append([]string{""}, model.Statuses...)

// Model is the complaint list view component.
type Model struct {
	list        list.Model
	title       string
	store       store.Store
	activitySrc ActivitySource
	activity    *activity
	keys        *keys.KeyMap
	filter      store.ComplaintFilter
	statusIndex int
	sortIndex   int
	searchMode  bool
	searchInput textinput.Model
	loadErr     error
	width       int
	height      int
}

// New creates a new complaint list model. src may be nil, in which case
// no activity markers are drawn.
func New(s store.Store, src ActivitySource, k *keys.KeyMap, title string, width, height int) Model {
	act := &activity{marks: map[string]bool{}}

	l := list.New([]list.Item{}, ItemDelegate{activity: act}, width, height-2)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.SetStatusBarItemName("complaint", "complaints")

	si := textinput.New()
	si.Placeholder = "title, description or #id..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		title:       title,
		store:       s,
		activitySrc: src,
		activity:    act,
		keys:        k,
		filter: store.ComplaintFilter{
			SortBy:   sortModes[0].column,
			SortDesc: sortModes[0].desc,
		},
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the initial set of complaints.
func (m Model) Init() tea.Cmd {
	return m.LoadComplaints()
}

// Update handles messages for the complaint list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ComplaintsLoadedMsg:
		m.loadErr = msg.Err
		items := make([]list.Item, len(msg.Complaints))
		for i, c := range msg.Complaints {
			items[i] = ComplaintItem{Complaint: c}
		}
		cmd := m.list.SetItems(items)
		m.RefreshActivity()
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	// Delegate to list model for other messages
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.filter.Query = strings.TrimPrefix(strings.TrimSpace(m.searchInput.Value()), "#")
		return m, m.LoadComplaints()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Query = ""
		return m, m.LoadComplaints()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(ComplaintItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedComplaintMsg{ID: item.Complaint.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleStatus):
		m.statusIndex = (m.statusIndex + 1) % len(statusFilters)
		m.filter.Status = statusFilters[m.statusIndex]
		return m, m.LoadComplaints()

	case key.Matches(msg, m.keys.CycleSort):
		m.sortIndex = (m.sortIndex + 1) % len(sortModes)
		m.filter.SortBy = sortModes[m.sortIndex].column
		m.filter.SortDesc = sortModes[m.sortIndex].desc
		return m, m.LoadComplaints()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetStatusFilter narrows the list to one status; "" shows all. Unknown
// statuses are ignored.
func (m *Model) SetStatusFilter(status string) tea.Cmd {
	for i, s := range statusFilters {
		if s == status {
			m.statusIndex = i
			m.filter.Status = s
			return m.LoadComplaints()
		}
	}
	return nil
}

// SetCounts shows per-status totals next to the list title. Statuses
// with no complaints are left out.
func (m *Model) SetCounts(counts map[string]int) {
	var parts []string
	for _, s := range model.Statuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(s)))
		}
	}
	if len(parts) == 0 {
		m.list.Title = m.title
		return
	}
	m.list.Title = m.title + " (" + strings.Join(parts, ", ") + ")"
}

// RefreshActivity recomputes the activity markers for the loaded
// complaints. Call it whenever the notification store changes.
func (m *Model) RefreshActivity() {
	if m.activitySrc == nil {
		return
	}

	items := m.list.Items()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if ci, ok := it.(ComplaintItem); ok {
			ids = append(ids, ci.Complaint.EntityID())
		}
	}
	m.activity.marks = m.activitySrc.ActiveEntities(ids)
}

// HasActivity reports whether the complaint is currently marked.
func (m Model) HasActivity(id int64) bool {
	return m.activity.has(model.Complaint{ID: id}.EntityID())
}

// Filter returns the active query, status and sort settings.
func (m Model) Filter() store.ComplaintFilter {
	return m.filter
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// SelectedComplaint returns the highlighted complaint, if any.
func (m Model) SelectedComplaint() (model.Complaint, bool) {
	item, ok := m.list.SelectedItem().(ComplaintItem)
	if !ok {
		return model.Complaint{}, false
	}
	return item.Complaint, true
}

// FilterSummary describes the active filters for the status bar. It is
// empty when nothing narrows the list.
func (m Model) FilterSummary() string {
	var parts []string
	if m.filter.Query != "" {
		parts = append(parts, fmt.Sprintf("search %q", m.filter.Query))
	}
	if m.filter.Status != "" {
		parts = append(parts, "status "+m.filter.Status)
	}
	if m.sortIndex != 0 {
		parts = append(parts, "sort "+sortModes[m.sortIndex].label)
	}
	return strings.Join(parts, " | ")
}

// View renders the complaint list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no complaints are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loadErr != nil {
		return style.Render("Could not read the complaint cache.\n" + m.loadErr.Error())
	}

	if m.filter.Query != "" || m.filter.Status != "" {
		return style.Render("No matching complaints.\nPress s to change the status filter or / to search again.")
	}

	return style.Render("No complaints yet.\n\nPress r to refresh.")
}

// LoadComplaints returns a tea.Cmd that queries the cache with the
// current filter.
func (m Model) LoadComplaints() tea.Cmd {
	filter := m.filter
	s := m.store
	return func() tea.Msg {
		complaints, err := s.GetComplaints(context.Background(), filter)
		return ComplaintsLoadedMsg{Complaints: complaints, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
