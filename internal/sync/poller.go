package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/grievance-desk/internal/api"
	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/store"
)

// RefreshState represents the current state of the complaint refresh.
type RefreshState int

const (
	RefreshIdle RefreshState = iota
	RefreshRunning
	RefreshError
)

// RefreshStatus holds the state of the last refresh.
type RefreshStatus struct {
	State    RefreshState
	LastSync time.Time
	Count    int
	Error    error
}

// RefreshResultMsg is a tea.Msg sent when a refresh completes.
type RefreshResultMsg struct {
	// Count is the number of complaints now cached.
	Count int

	// NewCount is how many complaints were not cached before. A refresh
	// into an empty cache reports zero.
	NewCount int

	// Changed lists complaints whose status differs from the cached copy.
	Changed []model.Complaint

	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when the API rejects the session.
type AuthErrorMsg struct {
	Message string
}

// Fetcher retrieves the complaints visible to the current session.
type Fetcher interface {
	FetchComplaints(ctx context.Context) ([]model.Complaint, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context) ([]model.Complaint, error)

// FetchComplaints calls f.
func (f FetchFunc) FetchComplaints(ctx context.Context) ([]model.Complaint, error) {
	return f(ctx)
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// Option configures a Poller.
type Option func(*Poller)

// WithClock sets the clock driving the refresh ticker.
func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithLogger sets the poller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// Poller refreshes the complaint cache in the background, on a fixed
// interval and on demand.
type Poller struct {
	store    store.Store
	fetcher  Fetcher
	interval time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger

	status    RefreshStatus
	resultCh  chan RefreshResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	stopped   bool
}

// New creates a Poller. A non-positive interval defaults to two minutes.
func New(s store.Store, f Fetcher, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	p := &Poller{
		store:     s,
		fetcher:   f,
		interval:  interval,
		clock:     clockwork.NewRealClock(),
		logger:    zap.NewNop(),
		resultCh:  make(chan RefreshResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results. The returned command waits on the result
// channel and returns RefreshResultMsg messages to the Bubble Tea runtime.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine. A stopped poller cannot be restarted.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	p.running = false
	close(p.stopCh)
}

// Refresh triggers an immediate refresh. A refresh already queued
// absorbs the request.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// Status returns the state of the last refresh.
func (p *Poller) Status() RefreshStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// loop runs the polling loop.
func (p *Poller) loop() {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	// Do an initial fetch immediately
	p.refresh()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.Chan():
			p.refresh()
		case <-p.triggerCh:
			p.refresh()
		}
	}
}

// refresh performs a single fetch, replaces the cache and sends a
// RefreshResultMsg on the result channel.
func (p *Poller) refresh() {
	p.setStatus(RefreshRunning, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	complaints, err := p.fetcher.FetchComplaints(ctx)
	if err != nil {
		p.setStatus(RefreshError, 0, err)
		p.logger.Warn("complaint refresh failed", zap.Error(err))

		// Detect auth errors and emit a specific message.
		if api.IsAuthError(err) {
			p.sendResult(RefreshResultMsg{
				Error: err,
				AuthError: &AuthErrorMsg{
					Message: "Session expired. Run `grievance-desk login` and restart.",
				},
			})
			return
		}

		p.sendResult(RefreshResultMsg{Error: err})
		return
	}

	// Compare against the cache to find new and changed complaints.
	existing, err := p.store.GetComplaints(ctx, store.ComplaintFilter{})
	if err != nil {
		p.logger.Warn("reading complaint cache", zap.Error(err))
	}
	cached := make(map[int64]model.Complaint, len(existing))
	for _, c := range existing {
		cached[c.ID] = c
	}

	var newCount int
	var changed []model.Complaint
	for _, c := range complaints {
		old, ok := cached[c.ID]
		switch {
		case !ok:
			newCount++
		case model.NormalizeStatus(old.Status) != model.NormalizeStatus(c.Status):
			changed = append(changed, c)
		}
	}

	if err := p.store.ReplaceComplaints(ctx, complaints); err != nil {
		p.setStatus(RefreshError, 0, err)
		p.sendResult(RefreshResultMsg{Error: err})
		return
	}

	// An empty cache means a fresh login; nothing is "new" yet.
	if len(existing) == 0 {
		newCount = 0
	}

	p.setStatus(RefreshIdle, len(complaints), nil)
	p.logger.Debug("complaints refreshed",
		zap.Int("count", len(complaints)),
		zap.Int("new", newCount),
		zap.Int("changed", len(changed)),
	)
	p.sendResult(RefreshResultMsg{
		Count:    len(complaints),
		NewCount: newCount,
		Changed:  changed,
	})
}

// setStatus updates the refresh status.
func (p *Poller) setStatus(state RefreshState, count int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == RefreshIdle && err == nil {
		p.status.LastSync = p.clock.Now()
		p.status.Count = count
	}
}

// sendResult sends a RefreshResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg RefreshResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after processing a RefreshResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
