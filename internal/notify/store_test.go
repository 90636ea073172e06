package notify

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/grievance-desk/internal/model"
)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	s := New(WithClock(clock))
	t.Cleanup(s.Close)
	return s, clock
}

func appendMessage(t *testing.T, s *Store, msg string) model.Notification {
	t.Helper()

	n, err := s.Append(model.Notification{Message: msg})
	require.NoError(t, err)
	return n
}

// requireUnreadInvariant checks that the derived count equals the number
// of unread records.
func requireUnreadInvariant(t *testing.T, s *Store) {
	t.Helper()

	state := s.Snapshot()
	unread := 0
	for _, n := range state.Notifications {
		if !n.Read {
			unread++
		}
	}
	require.Equal(t, unread, state.UnreadCount)
}

func TestAppend_HeadInsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)

	for i := 0; i < 5; i++ {
		appendMessage(t, s, fmt.Sprintf("event %d", i))
		requireUnreadInvariant(t, s)
	}

	got := s.Notifications()
	require.Len(t, got, 5)
	for i, n := range got {
		assert.Equal(t, fmt.Sprintf("event %d", 4-i), n.Message)
	}
	assert.Equal(t, 5, s.UnreadCount())
}

func TestAppend_AssignsUniqueIDsAndTimestamp(t *testing.T) {
	s, clock := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := appendMessage(t, s, "x")
		require.NotEmpty(t, n.ID)
		require.False(t, seen[n.ID], "id %s reused", n.ID)
		seen[n.ID] = true
		assert.Equal(t, clock.Now(), n.ReceivedAt)
		assert.False(t, n.Read)
	}
}

func TestAppend_ReadRecordDoesNotCountAsUnread(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Append(model.Notification{Message: "old", Read: true})
	require.NoError(t, err)

	assert.Equal(t, 0, s.UnreadCount())
	requireUnreadInvariant(t, s)
}

func TestAppend_RejectsDuplicateID(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Append(model.Notification{ID: "n-1", Message: "a"})
	require.NoError(t, err)

	_, err = s.Append(model.Notification{ID: "n-1", Message: "b"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Len(t, s.Notifications(), 1)
}

func TestAppend_AfterCloseFails(t *testing.T) {
	s, _ := newTestStore(t)
	s.Close()

	_, err := s.Append(model.Notification{Message: "late"})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Receive("late", "")
	assert.ErrorIs(t, err, ErrClosed)

	assert.Empty(t, s.Notifications())
	assert.Empty(t, s.Toasts())
}

func TestReceive_CreatesNotificationAndToast(t *testing.T) {
	s, _ := newTestStore(t)

	n, err := s.Receive("Complaint #12 resolved", "12")
	require.NoError(t, err)

	state := s.Snapshot()
	require.Len(t, state.Notifications, 1)
	require.Len(t, state.Toasts, 1)
	assert.Equal(t, n, state.Notifications[0])
	assert.Equal(t, "12", state.Notifications[0].EntityID)
	assert.Equal(t, "Complaint #12 resolved", state.Toasts[0].Message)
	assert.NotEqual(t, n.ID, state.Toasts[0].ID)
	assert.Equal(t, 1, state.UnreadCount)
}

func TestMarkAllRead_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)

	appendMessage(t, s, "a")
	appendMessage(t, s, "b")

	for i := 0; i < 3; i++ {
		s.MarkAllRead()
		assert.Equal(t, 0, s.UnreadCount())
		requireUnreadInvariant(t, s)
	}
	for _, n := range s.Notifications() {
		assert.True(t, n.Read)
	}
}

func TestClearAll_AlwaysEmpties(t *testing.T) {
	s, _ := newTestStore(t)

	s.ClearAll()
	assert.Empty(t, s.Notifications())
	assert.Equal(t, 0, s.UnreadCount())

	appendMessage(t, s, "a")
	appendMessage(t, s, "b")
	s.MarkEntityRead("1")
	s.ClearAll()

	assert.Empty(t, s.Notifications())
	assert.Equal(t, 0, s.UnreadCount())
}

func TestMarkEntityRead_MessageReference(t *testing.T) {
	s, _ := newTestStore(t)

	appendMessage(t, s, "System maintenance tonight")
	target := appendMessage(t, s, "New comment on complaint #101")
	before := s.UnreadCount()

	marked := s.MarkEntityRead("101")

	assert.Equal(t, 1, marked)
	assert.Equal(t, before-1, s.UnreadCount())
	for _, n := range s.Notifications() {
		if n.ID == target.ID {
			assert.True(t, n.Read)
		} else {
			assert.False(t, n.Read)
		}
	}
	requireUnreadInvariant(t, s)
}

func TestMarkEntityRead_NoReferenceIsNoop(t *testing.T) {
	s, _ := newTestStore(t)

	appendMessage(t, s, "System maintenance tonight")

	assert.Equal(t, 0, s.MarkEntityRead("101"))
	assert.Equal(t, 1, s.UnreadCount())
	assert.False(t, s.Notifications()[0].Read)
}

func TestMarkEntityRead_PrefixDoesNotMatch(t *testing.T) {
	s, _ := newTestStore(t)

	appendMessage(t, s, "Complaint #70 was escalated")

	assert.Equal(t, 0, s.MarkEntityRead("7"))
	assert.Equal(t, 1, s.UnreadCount())
}

func TestMarkEntityRead_ExplicitEntityID(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Append(model.Notification{Message: "Your complaint was updated", EntityID: "55"})
	require.NoError(t, err)

	assert.Equal(t, 1, s.MarkEntityRead("55"))
	assert.Equal(t, 0, s.UnreadCount())
}

func TestMarkEntityRead_ToleratesOddInput(t *testing.T) {
	s, _ := newTestStore(t)

	appendMessage(t, s, "")
	appendMessage(t, s, "#abc")

	assert.NotPanics(t, func() {
		assert.Equal(t, 0, s.MarkEntityRead("abc"))
		assert.Equal(t, 0, s.MarkEntityRead(""))
		assert.Equal(t, 0, s.MarkEntityRead("-1"))
	})
	assert.Equal(t, 2, s.UnreadCount())
}

func TestMarkEntityRead_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)

	appendMessage(t, s, "#5 updated")
	appendMessage(t, s, "#5 commented")

	assert.Equal(t, 2, s.MarkEntityRead("5"))
	assert.Equal(t, 0, s.MarkEntityRead("5"))
	assert.Equal(t, 0, s.UnreadCount())
}

func TestUnreadInvariant_RandomOperations(t *testing.T) {
	s, _ := newTestStore(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		switch rng.Intn(6) {
		case 0, 1, 2:
			appendMessage(t, s, fmt.Sprintf("update on #%d", rng.Intn(20)))
		case 3:
			s.MarkEntityRead(fmt.Sprint(rng.Intn(20)))
		case 4:
			s.MarkAllRead()
		case 5:
			if rng.Intn(10) == 0 {
				s.ClearAll()
			}
		}
		requireUnreadInvariant(t, s)
	}
}

func TestReadNeverReverts(t *testing.T) {
	s, _ := newTestStore(t)

	appendMessage(t, s, "#1 a")
	s.MarkEntityRead("1")
	appendMessage(t, s, "#1 b")
	s.MarkEntityRead("2")

	got := s.Notifications()
	require.Len(t, got, 2)
	assert.False(t, got[0].Read)
	assert.True(t, got[1].Read)
}

func TestToast_ExpiresAfterTTL(t *testing.T) {
	s, clock := newTestStore(t)

	toast := s.AddToast("Hello")
	require.Len(t, s.Toasts(), 1)
	assert.Equal(t, "Hello", s.Toasts()[0].Message)

	clock.Advance(4 * time.Second)
	assert.Len(t, s.Toasts(), 1)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		for _, tt := range s.Toasts() {
			if tt.ID == toast.ID {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
}

func TestToast_AddAfterCloseIsDropped(t *testing.T) {
	s, clock := newTestStore(t)
	s.Close()

	s.AddToast("late")
	assert.Empty(t, s.Toasts())

	clock.Advance(time.Minute)
	assert.Empty(t, s.Toasts())
}

func TestToast_CustomTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(WithClock(clock), WithToastTTL(10*time.Second))
	t.Cleanup(s.Close)

	s.AddToast("slow")
	clock.Advance(5 * time.Second)
	assert.Len(t, s.Toasts(), 1)

	clock.Advance(5 * time.Second)
	assert.Eventually(t, func() bool {
		return len(s.Toasts()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestToast_RemoveEarlyAndAfterExpiry(t *testing.T) {
	s, clock := newTestStore(t)

	first := s.AddToast("first")
	second := s.AddToast("second")

	s.RemoveToast(first.ID)
	toasts := s.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, second.ID, toasts[0].ID)

	clock.Advance(DefaultToastTTL)
	assert.Eventually(t, func() bool {
		return len(s.Toasts()) == 0
	}, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		s.RemoveToast(first.ID)
		s.RemoveToast(second.ID)
		s.RemoveToast("unknown")
	})
}

func TestToast_IndependentOfReadState(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Receive("#3 updated", "")
	require.NoError(t, err)

	s.MarkAllRead()
	s.ClearAll()

	assert.Len(t, s.Toasts(), 1)
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	s, _ := newTestStore(t)

	changes, unsubscribe := s.Subscribe()
	defer unsubscribe()

	appendMessage(t, s, "a")
	select {
	case c := <-changes:
		assert.Equal(t, ChangeAppended, c.Kind)
	case <-time.After(time.Second):
		t.Fatal("no change signal after append")
	}

	s.MarkAllRead()
	s.ClearAll()
	select {
	case c := <-changes:
		assert.Equal(t, ChangeCleared, c.Kind, "latest change should win")
	case <-time.After(time.Second):
		t.Fatal("no change signal after clear")
	}
}

func TestSubscribe_NoSignalForNoop(t *testing.T) {
	s, _ := newTestStore(t)

	changes, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.MarkAllRead()
	s.MarkEntityRead("9")
	s.RemoveToast("missing")

	select {
	case c := <-changes:
		t.Fatalf("unexpected change %v", c.Kind)
	default:
	}
}

func TestSubscribe_UnsubscribeClosesChannel(t *testing.T) {
	s, _ := newTestStore(t)

	changes, unsubscribe := s.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-changes
	assert.False(t, ok)

	assert.NotPanics(t, func() { appendMessage(t, s, "a") })
}

func TestClose_ClosesSubscribersAndStopsTimers(t *testing.T) {
	s, clock := newTestStore(t)

	changes, unsubscribe := s.Subscribe()
	s.AddToast("pending")
	<-changes

	s.Close()
	s.Close()

	_, ok := <-changes
	assert.False(t, ok)
	assert.NotPanics(t, unsubscribe)

	clock.Advance(DefaultToastTTL)
	assert.Len(t, s.Toasts(), 1, "timers are cancelled on close")

	late, _ := s.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestStore_ConcurrentMutations(t *testing.T) {
	s := New()
	t.Cleanup(s.Close)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = s.Receive(fmt.Sprintf("#%d from %d", i%5, w), "")
				s.MarkEntityRead(fmt.Sprint(i % 5))
				_ = s.HasActivity("1")
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, s.Notifications(), 400)
	requireUnreadInvariant(t, s)
}
