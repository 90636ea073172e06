package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/grievance-desk/internal/crossref"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/notify"
	appsync "github.com/nhle/grievance-desk/internal/sync"
)

// feedChangedMsg is sent when the notification store reports a change.
type feedChangedMsg struct {
	kind notify.ChangeKind
}

// waitForChange returns a tea.Cmd that blocks until the store signals a
// change. It returns nil once the subscription is closed, which ends the
// listen loop.
func waitForChange(ch <-chan notify.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return feedChangedMsg{kind: c.Kind}
	}
}

// applyFeed copies a store snapshot into every view that renders it.
func (m *Model) applyFeed(st notify.State) {
	m.feed = st
	m.panel.SetNotifications(st.Notifications)
	m.toasts.SetToasts(st.Toasts)
	m.complaintList.RefreshActivity()
	m.refreshRelated()
}

// refreshRelated shows the notifications correlated with the open
// complaint in the detail view.
func (m *Model) refreshRelated() {
	c := m.detail.Complaint()
	if c == nil {
		return
	}
	id := c.EntityID()

	var related []model.Notification
	for _, n := range m.feed.Notifications {
		if notify.Matches(n, id) {
			related = append(related, n)
		}
	}
	m.detail.SetRelated(related)
}

// openPanel shows the notification panel. Opening it acknowledges every
// unread notification.
func (m *Model) openPanel() {
	m.previousView = m.currentView
	m.currentView = ViewNotifications
	m.panel.SetNotifications(m.feed.Notifications)
	if m.feed.UnreadCount > 0 {
		m.notify.MarkAllRead()
	}
}

// handleRefresh reacts to a finished poll: it surfaces errors, reloads the
// list and announces new or changed complaints as toasts.
func (m *Model) handleRefresh(msg appsync.RefreshResultMsg) tea.Cmd {
	if msg.AuthError != nil {
		m.authErrorMessage = msg.AuthError.Message
		return nil
	}
	if msg.Error != nil {
		m.statusMessage = "Refresh failed: " + msg.Error.Error()
		return nil
	}

	m.authErrorMessage = ""
	if strings.HasPrefix(m.statusMessage, "Refresh failed") {
		m.statusMessage = ""
	}

	if msg.NewCount == 1 {
		m.notify.AddToast("1 new complaint")
	} else if msg.NewCount > 1 {
		m.notify.AddToast(fmt.Sprintf("%d new complaints", msg.NewCount))
	}
	for _, c := range msg.Changed {
		m.notify.AddToast(fmt.Sprintf("%s is now %s", crossref.FormatRef(c.ID), c.Status))
	}

	m.logger.Debug("refresh applied",
		zap.Int("count", msg.Count),
		zap.Int("new", msg.NewCount),
		zap.Int("changed", len(msg.Changed)),
	)

	cmds := []tea.Cmd{m.complaintList.LoadComplaints(), m.loadCounts()}
	if c := m.detail.Complaint(); c != nil && m.currentView == ViewDetail {
		cmds = append(cmds, m.loadComplaint(c.ID, true))
	}
	return tea.Batch(cmds...)
}
