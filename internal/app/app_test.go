package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/grievance-desk/internal/api"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/notify"
	"github.com/nhle/grievance-desk/internal/store"
	appsync "github.com/nhle/grievance-desk/internal/sync"
	"github.com/nhle/grievance-desk/internal/testutil"
	"github.com/nhle/grievance-desk/internal/ui/command"
	"github.com/nhle/grievance-desk/internal/ui/complaintlist"
	"github.com/nhle/grievance-desk/internal/ui/detail"
	"github.com/nhle/grievance-desk/internal/ui/statusform"
)

type harness struct {
	model  Model
	notify *notify.Store
	cache  *store.SQLiteStore
}

func newHarness(t *testing.T, role model.Role, handler http.Handler) *harness {
	t.Helper()

	if handler == nil {
		handler = http.NotFoundHandler()
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)
	cache := testutil.NewTestStore(t)
	feed := notify.New(notify.WithLogger(logger), notify.WithToastTTL(time.Hour))
	t.Cleanup(feed.Close)

	poller := appsync.New(cache, appsync.FetchFunc(func(context.Context) ([]model.Complaint, error) {
		return nil, nil
	}), time.Minute, appsync.WithLogger(logger))
	t.Cleanup(poller.Stop)

	m := New(Deps{
		Session: &model.Session{Token: "tok", Name: "Dana", Role: role},
		Cache:   cache,
		Notify:  feed,
		API:     api.NewClient(srv.URL+"/api", "tok"),
		Poller:  poller,
		Logger:  logger,
	})
	return &harness{model: m, notify: feed, cache: cache}
}

func (h *harness) update(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := h.model.Update(msg)
	m, ok := next.(Model)
	require.True(t, ok)
	h.model = m
	return cmd
}

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func commandMsg(input string) command.CommandMsg {
	c, err := command.Parse(input)
	if err != nil {
		panic(err)
	}
	return c
}

func TestNew_SeedsFeedFromSnapshot(t *testing.T) {
	feed := notify.New()
	defer feed.Close()
	_, err := feed.Receive("Complaint #1 filed", "")
	require.NoError(t, err)

	cache := testutil.NewTestStore(t)
	poller := appsync.New(cache, appsync.FetchFunc(func(context.Context) ([]model.Complaint, error) {
		return nil, nil
	}), time.Minute)
	defer poller.Stop()

	m := New(Deps{
		Session: &model.Session{Token: "tok", Role: model.RoleEmployee},
		Cache:   cache,
		Notify:  feed,
		API:     api.NewClient("http://localhost/api", "tok"),
		Poller:  poller,
	})
	assert.Equal(t, 1, m.feed.UnreadCount)
	assert.Len(t, m.feed.Toasts, 1)
}

func TestFeedChanged_AppliesSnapshot(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)

	_, err := h.notify.Receive("Complaint #3 resolved", "")
	require.NoError(t, err)

	cmd := h.update(t, feedChangedMsg{kind: notify.ChangeAppended})
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, 1, h.model.feed.UnreadCount)
	assert.False(t, h.model.toasts.Empty())
}

func TestOpenPanel_MarksAllRead(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)
	for _, msg := range []string{"Complaint #1 filed", "Complaint #2 filed"} {
		_, err := h.notify.Receive(msg, "")
		require.NoError(t, err)
	}
	h.update(t, feedChangedMsg{})

	h.update(t, press("b"))
	assert.Equal(t, ViewNotifications, h.model.currentView)
	assert.Zero(t, h.notify.UnreadCount())
	assert.Len(t, h.notify.Notifications(), 2, "reading keeps the records")

	h.update(t, press("b"))
	assert.Equal(t, ViewList, h.model.currentView)
}

func TestOpenComplaint_MarksEntityReadAndLoadsFromCache(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)
	require.NoError(t, h.cache.UpsertComplaints(context.Background(), []model.Complaint{
		testutil.Complaint(5, "Broken heater", model.StatusPending),
	}))
	_, err := h.notify.Receive("Complaint #5 updated", "")
	require.NoError(t, err)
	_, err = h.notify.Receive("Complaint #50 updated", "")
	require.NoError(t, err)

	cmd := h.update(t, complaintlist.SelectedComplaintMsg{ID: 5})
	assert.Equal(t, ViewDetail, h.model.currentView)
	assert.Equal(t, 1, h.notify.UnreadCount(), "only #5 is acknowledged")

	require.NotNil(t, cmd)
	loaded, ok := cmd().(detail.DetailLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Equal(t, "Broken heater", loaded.Complaint.Title)
}

func TestOpenComplaint_FallsBackToAPI(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Complaint/9", r.URL.Path)
		io.WriteString(w, `{"complaintId":9,"title":"Parking","status":"Resolved","createdAt":"2024-02-01T10:00:00"}`)
	}))

	cmd := h.update(t, complaintlist.SelectedComplaintMsg{ID: 9})
	loaded, ok := cmd().(detail.DetailLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Equal(t, "Parking", loaded.Complaint.Title)

	cached, err := h.cache.GetComplaintByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, cached.Status)
}

func TestDetailLoaded_ShowsRelatedNotifications(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)
	_, err := h.notify.Receive("Remark added", "7")
	require.NoError(t, err)
	_, err = h.notify.Receive("Complaint #8 closed", "")
	require.NoError(t, err)
	h.update(t, feedChangedMsg{})

	c := testutil.Complaint(7, "Lift", model.StatusPending)
	h.update(t, detail.DetailLoadedMsg{Complaint: &c})

	h.update(t, tea.WindowSizeMsg{Width: 120, Height: 40})
	out := h.model.detail.View()
	assert.Contains(t, out, "Remark added")
	assert.NotContains(t, out, "Complaint #8 closed")
}

func TestRefreshResult_AnnouncesNewAndChanged(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)

	h.update(t, appsync.RefreshResultMsg{
		Count:    4,
		NewCount: 2,
		Changed:  []model.Complaint{testutil.Complaint(3, "Lift", model.StatusResolved)},
	})

	var messages []string
	for _, ts := range h.notify.Toasts() {
		messages = append(messages, ts.Message)
	}
	assert.ElementsMatch(t, []string{"2 new complaints", "#3 is now Resolved"}, messages)
	assert.Empty(t, h.notify.Notifications(), "refresh toasts are not notifications")
}

func TestRefreshResult_AuthErrorShownInStatusBar(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)

	h.update(t, appsync.RefreshResultMsg{
		Error:     &api.AuthError{Message: "expired"},
		AuthError: &appsync.AuthErrorMsg{Message: "Session expired. Run `grievance-desk login`."},
	})
	assert.Contains(t, h.model.keyHints(), "grievance-desk login")

	h.update(t, appsync.RefreshResultMsg{Count: 0})
	assert.NotContains(t, h.model.keyHints(), "grievance-desk login")
}

func TestDismissToast(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)
	h.notify.AddToast("first")
	h.notify.AddToast("second")
	h.update(t, feedChangedMsg{})

	h.update(t, press("d"))
	toasts := h.notify.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "first", toasts[0].Message)
}

func TestSearchModeSwallowsGlobalKeys(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)
	_, err := h.notify.Receive("Complaint #1 filed", "")
	require.NoError(t, err)
	h.update(t, feedChangedMsg{})

	h.update(t, press("/"))
	require.True(t, h.model.complaintList.Searching())

	h.update(t, press("b"))
	assert.Equal(t, ViewList, h.model.currentView)
	assert.Equal(t, 1, h.notify.UnreadCount())
}

func TestStatusUpdate_ManagerFlow(t *testing.T) {
	var gotPath, gotMethod string
	h := newHarness(t, model.RoleManager, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))

	cmd := h.update(t, statusform.SubmitMsg{ComplaintID: 5, Status: model.StatusResolved, Remarks: "fixed"})
	assert.Equal(t, ViewDetail, h.model.currentView)
	require.NotNil(t, cmd)

	result, ok := cmd().(statusUpdatedMsg)
	require.True(t, ok)
	require.NoError(t, result.err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/Complaint/5/status", gotPath)

	h.update(t, result)
	toasts := h.notify.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "#5 marked Resolved", toasts[0].Message)
}

func TestStatusUpdate_ForbiddenShowsError(t *testing.T) {
	h := newHarness(t, model.RoleManager, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"message":"not your department"}`)
	}))

	cmd := h.update(t, statusform.SubmitMsg{ComplaintID: 5, Status: model.StatusRejected, Remarks: "dup"})
	h.update(t, cmd())

	assert.Contains(t, h.model.statusMessage, "not your department")
	assert.Empty(t, h.notify.Toasts())
}

func TestEmployeeCannotOpenStatusForm(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)
	c := testutil.Complaint(2, "Desk", model.StatusPending)
	h.update(t, detail.DetailLoadedMsg{Complaint: &c})
	h.model.currentView = ViewDetail

	cmd := h.update(t, press("u"))
	assert.Nil(t, cmd)
	assert.Equal(t, ViewDetail, h.model.currentView)
}

func TestCommandPalette(t *testing.T) {
	h := newHarness(t, model.RoleEmployee, nil)
	_, err := h.notify.Receive("Complaint #1 filed", "")
	require.NoError(t, err)

	h.update(t, press(":"))
	require.Equal(t, ViewCommand, h.model.currentView)

	h.update(t, commandMsg("read"))
	assert.Equal(t, ViewList, h.model.currentView)
	assert.Zero(t, h.notify.UnreadCount())

	h.update(t, commandMsg("clear"))
	assert.Empty(t, h.notify.Notifications())
}
