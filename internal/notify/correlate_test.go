package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/grievance-desk/internal/model"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		n        model.Notification
		entityID string
		want     bool
	}{
		{"message reference", model.Notification{Message: "New comment on complaint #101"}, "101", true},
		{"no reference", model.Notification{Message: "System maintenance tonight"}, "101", false},
		{"numeric prefix of longer id", model.Notification{Message: "Complaint #70 escalated"}, "7", false},
		{"suffix of longer id", model.Notification{Message: "Complaint #17 escalated"}, "7", false},
		{"bare number without hash", model.Notification{Message: "Complaint 101 escalated"}, "101", false},
		{"explicit entity id", model.Notification{Message: "Status changed", EntityID: "9"}, "9", true},
		{"explicit id differs but text matches", model.Notification{Message: "See #9", EntityID: "8"}, "9", true},
		{"empty message", model.Notification{}, "1", false},
		{"non numeric id", model.Notification{Message: "#abc", EntityID: "abc"}, "abc", false},
		{"empty id", model.Notification{Message: "#1"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.n, tt.entityID))
		})
	}
}

func TestHasActivity(t *testing.T) {
	s, _ := newTestStore(t)

	assert.False(t, s.HasActivity("101"))

	appendMessage(t, s, "New comment on complaint #101")
	appendMessage(t, s, "Complaint #70 escalated")

	assert.True(t, s.HasActivity("101"))
	assert.True(t, s.HasActivity("70"))
	assert.False(t, s.HasActivity("7"))

	s.MarkEntityRead("101")
	assert.False(t, s.HasActivity("101"), "read notifications are not activity")
	assert.True(t, s.HasActivity("70"))

	before := s.Snapshot()
	s.HasActivity("70")
	assert.Equal(t, before, s.Snapshot(), "query must not mutate")
}

func TestActiveEntities(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Empty(t, s.ActiveEntities([]string{"1", "2"}))

	appendMessage(t, s, "#1 updated")
	_, err := s.Append(model.Notification{Message: "assigned", EntityID: "3"})
	require.NoError(t, err)

	got := s.ActiveEntities([]string{"1", "2", "3", "x"})
	assert.Equal(t, map[string]bool{"1": true, "3": true}, got)

	s.MarkAllRead()
	assert.Empty(t, s.ActiveEntities([]string{"1", "3"}))
}
