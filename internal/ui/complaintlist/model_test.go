package complaintlist

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/grievance-desk/internal/keys"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/testutil"
)

type staticActivity map[string]bool

func (a staticActivity) ActiveEntities(ids []string) map[string]bool {
	out := map[string]bool{}
	for _, id := range ids {
		if a[id] {
			out[id] = true
		}
	}
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// load runs the list's pending load command and feeds the result back.
func load(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ComplaintsLoadedMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	m, _ = m.Update(msg)
	return m
}

func seeded(t *testing.T) *Model {
	t.Helper()
	s := testutil.NewTestStore(t)
	require.NoError(t, s.UpsertComplaints(context.Background(), []model.Complaint{
		testutil.Complaint(1, "Leaking tap", model.StatusPending),
		testutil.Complaint(2, "Broken badge reader", "inprogress"),
		testutil.Complaint(3, "Cafeteria hygiene", model.StatusResolved),
	}))

	m := New(s, staticActivity{"2": true}, keys.DefaultKeyMap(), "My complaints", 100, 30)
	m = load(t, m, m.Init())
	return &m
}

func ids(m Model) []int64 {
	var out []int64
	for _, it := range m.list.Items() {
		out = append(out, it.(ComplaintItem).Complaint.ID)
	}
	return out
}

func TestModel_DefaultsToNewestFirst(t *testing.T) {
	m := seeded(t)
	assert.Equal(t, []int64{3, 2, 1}, ids(*m))
	assert.Empty(t, m.FilterSummary())
}

func TestModel_ActivityMarkers(t *testing.T) {
	m := seeded(t)
	assert.True(t, m.HasActivity(2))
	assert.False(t, m.HasActivity(1))
}

func TestModel_CycleStatusFilter(t *testing.T) {
	m := *seeded(t)

	m, cmd := m.Update(runes("s"))
	m = load(t, m, cmd)
	assert.Equal(t, model.StatusPending, m.Filter().Status)
	assert.Equal(t, []int64{1}, ids(m))

	m, cmd = m.Update(runes("s"))
	m = load(t, m, cmd)
	assert.Equal(t, []int64{2}, ids(m), "status match ignores spacing and case")
	assert.Contains(t, m.FilterSummary(), "status In Progress")
}

func TestModel_CycleSort(t *testing.T) {
	m := *seeded(t)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = load(t, m, cmd)
	assert.Equal(t, []int64{1, 2, 3}, ids(m))
	assert.Contains(t, m.FilterSummary(), "sort oldest")
}

func TestModel_Search(t *testing.T) {
	m := *seeded(t)

	m, _ = m.Update(runes("/"))
	require.True(t, m.Searching())
	m, _ = m.Update(runes("badge"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = load(t, m, cmd)

	assert.False(t, m.Searching())
	assert.Equal(t, []int64{2}, ids(m))

	m, _ = m.Update(runes("/"))
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = load(t, m, cmd)
	assert.Len(t, ids(m), 3)
}

func TestModel_SearchByReference(t *testing.T) {
	m := *seeded(t)

	m, _ = m.Update(runes("/"))
	m, _ = m.Update(runes("#3"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = load(t, m, cmd)
	assert.Equal(t, []int64{3}, ids(m))
}

func TestModel_SelectEmitsID(t *testing.T) {
	m := *seeded(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectedComplaintMsg{ID: 3}, cmd())
}

func TestModel_SetCounts(t *testing.T) {
	m := seeded(t)

	m.SetCounts(map[string]int{model.StatusPending: 2, model.StatusResolved: 1})
	assert.Equal(t, "My complaints (2 pending, 1 resolved)", m.list.Title)

	m.SetCounts(nil)
	assert.Equal(t, "My complaints", m.list.Title)
}

func TestModel_SetStatusFilter(t *testing.T) {
	m := *seeded(t)

	assert.Nil(t, m.SetStatusFilter("Escalated"))

	cmd := m.SetStatusFilter(model.StatusResolved)
	m = load(t, m, cmd)
	assert.Equal(t, []int64{3}, ids(m))
}

func TestModel_EmptyState(t *testing.T) {
	s := testutil.NewTestStore(t)
	m := New(s, nil, keys.DefaultKeyMap(), "My complaints", 80, 20)
	m = load(t, m, m.Init())

	assert.Contains(t, m.View(), "No complaints yet.")
}
