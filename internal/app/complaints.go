package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/grievance-desk/internal/crossref"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/store"
	"github.com/nhle/grievance-desk/internal/ui/detail"
	"github.com/nhle/grievance-desk/internal/ui/statusform"
)

// statusUpdatedMsg is sent after a status change round-trips to the API.
type statusUpdatedMsg struct {
	id     int64
	status string
	err    error
}

// countsLoadedMsg carries per-status totals from the cache.
type countsLoadedMsg struct {
	counts map[string]int
}

// openComplaint switches to the detail view. Opening a complaint
// acknowledges the notifications that refer to it.
func (m *Model) openComplaint(id int64) tea.Cmd {
	if n := m.notify.MarkEntityRead(model.Complaint{ID: id}.EntityID()); n > 0 {
		m.logger.Debug("acknowledged notifications",
			zap.Int64("complaint_id", id), zap.Int("count", n))
	}

	m.currentView = ViewDetail
	m.detail.SetLoading(true)
	return m.loadComplaint(id, true)
}

// loadComplaint returns a command that loads a complaint for the detail
// view. With preferCache the local copy is used when present; otherwise
// the API is asked and the cache updated with the answer.
func (m Model) loadComplaint(id int64, preferCache bool) tea.Cmd {
	cache := m.cache
	client := m.api
	logger := m.logger

	return func() tea.Msg {
		ctx := context.Background()

		if preferCache {
			c, err := cache.GetComplaintByID(ctx, id)
			if err == nil {
				return detail.DetailLoadedMsg{Complaint: c}
			}
			if !errors.Is(err, store.ErrNotFound) {
				return detail.DetailLoadedMsg{Err: err}
			}
		}

		c, err := client.GetComplaint(ctx, id)
		if err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		if err := cache.UpsertComplaints(ctx, []model.Complaint{*c}); err != nil {
			logger.Warn("caching complaint failed", zap.Int64("complaint_id", id), zap.Error(err))
		}
		return detail.DetailLoadedMsg{Complaint: c}
	}
}

// loadCounts returns a command that reads per-status totals.
func (m Model) loadCounts() tea.Cmd {
	cache := m.cache
	logger := m.logger
	return func() tea.Msg {
		counts, err := cache.CountByStatus(context.Background())
		if err != nil {
			logger.Warn("counting complaints failed", zap.Error(err))
			return nil
		}
		return countsLoadedMsg{counts: counts}
	}
}

// submitStatus sends a status change to the API.
func (m Model) submitStatus(s statusform.SubmitMsg) tea.Cmd {
	client := m.api
	return func() tea.Msg {
		err := client.UpdateStatus(context.Background(), s.ComplaintID, s.Status, s.Remarks)
		return statusUpdatedMsg{id: s.ComplaintID, status: s.Status, err: err}
	}
}

// handleStatusUpdated confirms a status change, then reloads the
// complaint from the API and schedules a list refresh.
func (m *Model) handleStatusUpdated(msg statusUpdatedMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Warn("status update failed",
			zap.Int64("complaint_id", msg.id), zap.Error(msg.err))
		m.noteError(msg.err)
		return nil
	}

	m.statusMessage = ""
	m.notify.AddToast(fmt.Sprintf("%s marked %s", crossref.FormatRef(msg.id), msg.status))
	m.logger.Info("status updated",
		zap.Int64("complaint_id", msg.id), zap.String("status", msg.status))

	return tea.Batch(
		m.loadComplaint(msg.id, false),
		m.poller.Refresh(),
	)
}
