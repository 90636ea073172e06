package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/grievance-desk/internal/api"
	"github.com/nhle/grievance-desk/internal/keys"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/notify"
	"github.com/nhle/grievance-desk/internal/push"
	"github.com/nhle/grievance-desk/internal/store"
	appsync "github.com/nhle/grievance-desk/internal/sync"
	"github.com/nhle/grievance-desk/internal/theme"
	"github.com/nhle/grievance-desk/internal/ui"
	"github.com/nhle/grievance-desk/internal/ui/command"
	"github.com/nhle/grievance-desk/internal/ui/complaintlist"
	"github.com/nhle/grievance-desk/internal/ui/detail"
	helpview "github.com/nhle/grievance-desk/internal/ui/help"
	"github.com/nhle/grievance-desk/internal/ui/notifications"
	"github.com/nhle/grievance-desk/internal/ui/statusform"
	"github.com/nhle/grievance-desk/internal/ui/toast"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewNotifications
	ViewHelp
	ViewCommand
	ViewStatusForm
)

// ListenerStatus reports the push channel state for the header.
type ListenerStatus interface {
	Status() push.Status
}

// Deps are the collaborators the root model drives. Every field except
// Listener and Logger is required.
type Deps struct {
	Session  *model.Session
	Cache    store.Store
	Notify   *notify.Store
	API      *api.Client
	Poller   *appsync.Poller
	Listener ListenerStatus
	Logger   *zap.Logger
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the notification feed.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout

	session  *model.Session
	cache    store.Store
	notify   *notify.Store
	api      *api.Client
	poller   *appsync.Poller
	listener ListenerStatus
	logger   *zap.Logger

	changes     <-chan notify.Change
	unsubscribe func()
	feed        notify.State

	keys             *keys.KeyMap
	complaintList    complaintlist.Model
	detail           detail.Model
	panel            notifications.Model
	toasts           toast.Model
	helpView         helpview.Model
	commandView      command.Model
	statusForm       statusform.Model
	ready            bool
	authErrorMessage string
	statusMessage    string
}

// New creates a new root application model and subscribes to the
// notification store.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	changes, unsubscribe := d.Notify.Subscribe()

	m := Model{
		currentView: ViewList,
		session:     d.Session,
		cache:       d.Cache,
		notify:      d.Notify,
		api:         d.API,
		poller:      d.Poller,
		listener:    d.Listener,
		logger:      logger,
		changes:     changes,
		unsubscribe: unsubscribe,
		keys:        k,
		complaintList: complaintlist.New(
			d.Cache, d.Notify, k, listTitle(d.Session), 80, 24,
		),
		detail:      detail.New(k, d.Session.Role.CanManage(), 80, 24),
		panel:       notifications.New(k, 80, 24),
		toasts:      toast.New(80),
		helpView:    helpview.New(k, d.Session.Role, 80, 24),
		commandView: command.New(80, 24),
		statusForm:  statusform.New(80, 24),
	}
	m.applyFeed(d.Notify.Snapshot())
	return m
}

// listTitle names the list after what the session's role sees.
func listTitle(s *model.Session) string {
	switch s.Role {
	case model.RoleAdmin:
		return "All complaints"
	case model.RoleManager:
		return "Department complaints"
	default:
		return "My complaints"
	}
}

// Init loads the cached complaints, starts polling and begins listening
// for notification changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.complaintList.Init(),
		m.loadCounts(),
		m.poller.Start(),
		waitForChange(m.changes),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.complaintList.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.panel.SetSize(contentWidth, contentHeight)
		m.toasts.SetSize(contentWidth)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.statusForm.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case feedChangedMsg:
		m.applyFeed(m.notify.Snapshot())
		return m, waitForChange(m.changes)

	case appsync.RefreshResultMsg:
		return m, tea.Batch(m.handleRefresh(msg), m.poller.WaitForNextResult())

	case complaintlist.ComplaintsLoadedMsg:
		var cmd tea.Cmd
		m.complaintList, cmd = m.complaintList.Update(msg)
		return m, cmd

	case countsLoadedMsg:
		m.complaintList.SetCounts(msg.counts)
		return m, nil

	case complaintlist.SelectedComplaintMsg:
		return m, m.openComplaint(msg.ID)

	case notifications.OpenComplaintMsg:
		return m, m.openComplaint(msg.ID)

	case notifications.ClearAllMsg:
		m.notify.ClearAll()
		return m, nil

	case notifications.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	case detail.DetailLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		if msg.Err != nil {
			m.noteError(msg.Err)
		}
		m.refreshRelated()
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.UpdateStatusMsg:
		m.previousView = m.currentView
		m.currentView = ViewStatusForm
		return m, m.statusForm.Start(msg.Complaint)

	case statusform.SubmitMsg:
		m.currentView = ViewDetail
		m.statusMessage = fmt.Sprintf("Updating #%d...", msg.ComplaintID)
		return m, m.submitStatus(msg)

	case statusform.CancelMsg:
		m.currentView = ViewDetail
		return m, nil

	case statusUpdatedMsg:
		return m, m.handleStatusUpdated(msg)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case command.ErrorMsg:
		m.statusMessage = msg.Err.Error()
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturesText reports whether the active view owns free text input, in
// which case single-letter global keys must pass through.
func (m Model) capturesText() bool {
	switch m.currentView {
	case ViewCommand, ViewStatusForm:
		return true
	case ViewList:
		return m.complaintList.Searching()
	}
	return false
}

// handleGlobalKey processes keys that work across views. It returns
// handled=false when the key should reach the active view.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m.quit(), true
	}

	if m.capturesText() {
		if m.currentView == ViewCommand && key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			return m.quit(), true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Notifications):
		if m.currentView == ViewNotifications {
			m.currentView = m.previousView
			return nil, true
		}
		m.openPanel()
		return nil, true

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewList || m.currentView == ViewDetail {
			m.statusMessage = ""
			return m.poller.Refresh(), true
		}

	case key.Matches(msg, m.keys.DismissToast):
		if newest, ok := m.toasts.Newest(); ok {
			m.notify.RemoveToast(newest.ID)
			return nil, true
		}
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.complaintList, cmd = m.complaintList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewNotifications:
		m.panel, cmd = m.panel.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewStatusForm:
		m.statusForm, cmd = m.statusForm.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Grievance Desk", m.feed.UnreadCount, m.syncStatus())
	content := m.renderContent()
	if !m.toasts.Empty() {
		content = m.toasts.View() + "\n" + content
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.complaintList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewNotifications:
		return m.panel.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewStatusForm:
		return m.statusForm.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the refresh and push
// channel state.
func (m Model) syncStatus() string {
	var parts []string

	if m.listener != nil {
		if m.listener.Status().Connected {
			parts = append(parts, "live")
		} else {
			parts = append(parts, "push offline")
		}
	}

	st := m.poller.Status()
	switch {
	case st.State == appsync.RefreshRunning:
		parts = append(parts, "refreshing")
	case st.State == appsync.RefreshError:
		parts = append(parts, "⚠ unreachable")
	case !st.LastSync.IsZero():
		parts = append(parts, "synced "+st.LastSync.Local().Format("15:04"))
	}

	return strings.Join(parts, " | ")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show auth error prominently when present.
	if m.authErrorMessage != "" && m.currentView == ViewList {
		return theme.ErrorStyle.Render(m.authErrorMessage)
	}
	if m.statusMessage != "" && (m.currentView == ViewList || m.currentView == ViewDetail) {
		return m.statusMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		if m.session.Role.CanManage() {
			return "esc back | u update status | r refresh | j/k scroll"
		}
		return "esc back | r refresh | j/k scroll"
	case ViewNotifications:
		return "enter open | x clear all | esc back"
	case ViewStatusForm:
		return "enter submit | esc cancel"
	default:
		hints := "q quit | ? help | / search | s status | tab sort | b notifications"
		if !m.toasts.Empty() {
			hints += " | d dismiss"
		}
		if summary := m.complaintList.FilterSummary(); summary != "" {
			return summary + " | " + hints
		}
		return hints
	}
}

// quit stops background work owned by the UI and exits.
func (m *Model) quit() tea.Cmd {
	m.poller.Stop()
	m.unsubscribe()
	return tea.Quit
}

// noteError surfaces an error in the status bar, routing auth failures
// to the persistent banner.
func (m *Model) noteError(err error) {
	if api.IsAuthError(err) {
		m.authErrorMessage = err.Error()
		return
	}
	m.statusMessage = "Error: " + err.Error()
}

// executeCommand handles a parsed command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Verb {
	case command.VerbOpen:
		return m.openComplaint(c.ComplaintID)
	case command.VerbRefresh:
		return m.poller.Refresh()
	case command.VerbRead:
		m.notify.MarkAllRead()
		return nil
	case command.VerbClear:
		m.notify.ClearAll()
		return nil
	case command.VerbFilter:
		m.currentView = ViewList
		return m.complaintList.SetStatusFilter(c.Status)
	case command.VerbQuit:
		return m.quit()
	default:
		return nil
	}
}
