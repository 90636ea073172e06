package notify

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/grievance-desk/internal/model"
)

// DefaultToastTTL is how long a toast stays visible unless removed earlier.
const DefaultToastTTL = 5 * time.Second

var (
	// ErrClosed is returned when appending to a store after Close.
	ErrClosed = errors.New("notification store closed")

	// ErrDuplicateID is returned when appending a notification whose ID is
	// already in the store.
	ErrDuplicateID = errors.New("duplicate notification id")
)

// ChangeKind identifies what kind of mutation triggered a Change.
type ChangeKind int

const (
	ChangeAppended ChangeKind = iota
	ChangeRead
	ChangeCleared
	ChangeToasts
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAppended:
		return "appended"
	case ChangeRead:
		return "read"
	case ChangeCleared:
		return "cleared"
	case ChangeToasts:
		return "toasts"
	default:
		return "unknown"
	}
}

// Change is sent to subscribers after a mutation. Signals coalesce: a
// subscriber that has not drained its channel sees only the latest kind,
// so consumers should re-read Snapshot rather than replay changes.
type Change struct {
	Kind ChangeKind
}

// State is a point-in-time copy of the store's read surface.
type State struct {
	// Notifications is ordered newest first.
	Notifications []model.Notification
	// Toasts is ordered newest first.
	Toasts      []model.Toast
	UnreadCount int
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps and toast expiry.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithToastTTL sets how long toasts live. Non-positive values are ignored.
func WithToastTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.toastTTL = d
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store owns the notification list, the toast set and the unread count
// for one session.
type Store struct {
	mu            sync.Mutex
	notifications []model.Notification
	unread        int
	toasts        []model.Toast
	timers        map[string]clockwork.Timer
	subscribers   map[int]chan Change
	nextSubID     int
	closed        bool

	clock    clockwork.Clock
	toastTTL time.Duration
	logger   *zap.Logger
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		timers:      make(map[string]clockwork.Timer),
		subscribers: make(map[int]chan Change),
		clock:       clockwork.NewRealClock(),
		toastTTL:    DefaultToastTTL,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newID returns a time-ordered unique identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Append inserts n at the head of the list. An empty ID or zero
// ReceivedAt is filled in.
func (s *Store) Append(n model.Notification) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.appendLocked(n)
	if err != nil {
		return model.Notification{}, err
	}
	s.broadcastLocked(ChangeAppended)
	return n, nil
}

// Receive records an inbound push event: one notification at the head of
// the list and one toast, both under a single lock acquisition.
func (s *Store) Receive(message, entityID string) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.appendLocked(model.Notification{
		Message:  message,
		EntityID: entityID,
	})
	if err != nil {
		return model.Notification{}, err
	}
	s.addToastLocked(message)
	s.broadcastLocked(ChangeAppended)
	return n, nil
}

func (s *Store) appendLocked(n model.Notification) (model.Notification, error) {
	if s.closed {
		return model.Notification{}, ErrClosed
	}

	if n.ID == "" {
		n.ID = newID()
	} else if slices.ContainsFunc(s.notifications, func(e model.Notification) bool {
		return e.ID == n.ID
	}) {
		return model.Notification{}, ErrDuplicateID
	}
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = s.clock.Now()
	}

	s.notifications = slices.Insert(s.notifications, 0, n)
	if !n.Read {
		s.unread++
	}
	return n, nil
}

// MarkAllRead marks every notification read. Calling it again is a no-op.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unread == 0 {
		return
	}
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.unread = 0
	s.broadcastLocked(ChangeRead)
}

// MarkEntityRead marks every notification matching entityID as read and
// returns how many were newly marked. The unread count is recomputed from
// the whole list. A miss is a silent no-op.
func (s *Store) MarkEntityRead(entityID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.Read || !Matches(*n, entityID) {
			continue
		}
		n.Read = true
		marked++
	}
	if marked == 0 {
		return 0
	}

	s.unread = countUnread(s.notifications)
	s.broadcastLocked(ChangeRead)
	return marked
}

// ClearAll removes every notification. It cannot be undone.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = nil
	s.unread = 0
	s.broadcastLocked(ChangeCleared)
}

// AddToast shows message as a toast that removes itself after the TTL.
func (s *Store) AddToast(message string) model.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.addToastLocked(message)
	if ok {
		s.broadcastLocked(ChangeToasts)
	}
	return t
}

// addToastLocked reports false once the store is closed, when no timer
// could remove the toast again.
func (s *Store) addToastLocked(message string) (model.Toast, bool) {
	t := model.Toast{
		ID:        newID(),
		Message:   message,
		CreatedAt: s.clock.Now(),
	}
	if s.closed {
		return t, false
	}
	s.toasts = slices.Insert(s.toasts, 0, t)

	id := t.ID
	s.timers[id] = s.clock.AfterFunc(s.toastTTL, func() {
		s.expireToast(id)
	})
	return t, true
}

// expireToast runs on the timer goroutine. The toast may already be gone.
func (s *Store) expireToast(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, id)
	if s.removeToastLocked(id) {
		s.broadcastLocked(ChangeToasts)
	}
}

// RemoveToast removes a toast before it expires and cancels its timer.
// Unknown or already expired ids are ignored.
func (s *Store) RemoveToast(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	if s.removeToastLocked(id) {
		s.broadcastLocked(ChangeToasts)
	}
}

func (s *Store) removeToastLocked(id string) bool {
	idx := slices.IndexFunc(s.toasts, func(t model.Toast) bool {
		return t.ID == id
	})
	if idx < 0 {
		return false
	}
	s.toasts = slices.Delete(s.toasts, idx, idx+1)
	return true
}

// Snapshot returns copies of the notifications, toasts and unread count.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Notifications: slices.Clone(s.notifications),
		Toasts:        slices.Clone(s.toasts),
		UnreadCount:   s.unread,
	}
}

// Notifications returns a copy of the notification list, newest first.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notifications)
}

// Toasts returns a copy of the live toasts, newest first.
func (s *Store) Toasts() []model.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.toasts)
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Subscribe registers for change signals. The returned function
// unsubscribes and closes the channel; it is safe to call more than once.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Change, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

// broadcastLocked signals every subscriber without blocking. A pending
// undelivered signal is replaced so the latest kind wins.
func (s *Store) broadcastLocked(kind ChangeKind) {
	c := Change{Kind: kind}
	for _, ch := range s.subscribers {
		select {
		case ch <- c:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

// Close cancels pending toast timers, closes subscriber channels and
// rejects further appends. The last state stays readable.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}

	s.logger.Debug("notification store closed",
		zap.Int("notifications", len(s.notifications)),
		zap.Int("unread", s.unread),
	)
}

func countUnread(ns []model.Notification) int {
	count := 0
	for _, n := range ns {
		if !n.Read {
			count++
		}
	}
	return count
}
