package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	backoffv1 "gopkg.in/cenkalti/backoff.v1"

	"github.com/nhle/grievance-desk/internal/model"
)

var (
	// ErrAlreadyStarted is returned by Start on a running listener.
	ErrAlreadyStarted = errors.New("push listener already started")

	// ErrStopped is returned by Start after Stop. A listener serves one
	// session; create a new one after logout.
	ErrStopped = errors.New("push listener stopped")

	// errStreamClosed marks a clean end of stream, which still warrants a
	// reconnect.
	errStreamClosed = errors.New("push stream closed by server")
)

// stopTimeout bounds how long Stop waits for the subscription goroutine.
const stopTimeout = 5 * time.Second

// AuthError indicates the push endpoint rejected the session token. The
// listener does not retry after it.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("push channel rejected session (%d)", e.StatusCode)
}

// Receiver is the part of the notification store the listener feeds.
type Receiver interface {
	Receive(message, entityID string) (model.Notification, error)
}

// Config controls the subscription.
type Config struct {
	// URL is the server-sent event endpoint.
	URL string

	// Event is the event name carrying notifications. Empty accepts all.
	Event string

	// InitialRetryInterval is the first reconnect delay.
	InitialRetryInterval time.Duration

	// MaxRetryInterval caps the reconnect delay.
	MaxRetryInterval time.Duration

	// HTTPClient overrides the transport. It must not set a Timeout, which
	// would cut long-lived streams.
	HTTPClient *http.Client
}

// ConfigFromModel converts the file configuration.
func ConfigFromModel(cfg model.PushConfig) Config {
	return Config{
		URL:              cfg.URL,
		Event:            cfg.Event,
		MaxRetryInterval: time.Duration(cfg.MaxRetryIntervalSec) * time.Second,
	}
}

// Status is a snapshot of the listener for display.
type Status struct {
	Running   bool
	Connected bool
	Received  int
	LastError error
}

type listenerState int

const (
	stateIdle listenerState = iota
	stateRunning
	stateStopped
)

// Listener keeps one push subscription open for a session and turns each
// notification event into a store record.
type Listener struct {
	cfg    Config
	store  Receiver
	logger *zap.Logger

	mu        sync.Mutex
	state     listenerState
	connected bool
	received  int
	lastErr   error
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a listener that feeds store.
func New(cfg Config, store Receiver, logger *zap.Logger) *Listener {
	if cfg.InitialRetryInterval <= 0 {
		cfg.InitialRetryInterval = 500 * time.Millisecond
	}
	if cfg.MaxRetryInterval <= 0 {
		cfg.MaxRetryInterval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		cfg:    cfg,
		store:  store,
		logger: logger.With(zap.String("component", "push")),
	}
}

// Start opens the subscription in the background and returns at once.
// Connection failures are logged and retried; they never fail Start.
func (l *Listener) Start(ctx context.Context, sessionToken string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.state = stateRunning

	go l.run(ctx, l.newClient(sessionToken))
	return nil
}

// Stop tears the subscription down. Once Stop begins no further record is
// appended; events still in flight are dropped. Safe to call repeatedly.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.state != stateRunning {
		l.state = stateStopped
		l.mu.Unlock()
		return
	}
	l.state = stateStopped
	l.connected = false
	l.cancel()
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
		l.logger.Info("push listener stopped")
	case <-time.After(stopTimeout):
		l.logger.Warn("push listener did not exit in time", zap.Duration("timeout", stopTimeout))
	}
}

// Done is closed when the subscription goroutine exits, either after Stop
// or after the server rejected the session.
func (l *Listener) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return l.done
}

// Status returns the current connection state.
func (l *Listener) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Status{
		Running:   l.state == stateRunning,
		Connected: l.connected,
		Received:  l.received,
		LastError: l.lastErr,
	}
}

func (l *Listener) newClient(token string) *sse.Client {
	client := sse.NewClient(l.cfg.URL)
	if l.cfg.HTTPClient != nil {
		client.Connection = l.cfg.HTTPClient
	}
	if token != "" {
		client.Headers["Authorization"] = "Bearer " + token
	}
	// Reconnects are driven by run so that the loop honours cancellation
	// and resets after a healthy connection.
	client.ReconnectStrategy = &backoffv1.StopBackOff{}
	return client
}

// run owns the subscription until ctx is cancelled or the server rejects
// the session.
func (l *Listener) run(ctx context.Context, client *sse.Client) {
	defer close(l.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.InitialRetryInterval
	b.MaxInterval = l.cfg.MaxRetryInterval
	b.MaxElapsedTime = 0

	client.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			return &AuthError{StatusCode: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("push channel returned %s", resp.Status)
		}

		b.Reset()
		l.setConnected(true, nil)
		l.logger.Info("push channel connected", zap.String("url", l.cfg.URL))
		return nil
	}

	operation := func() error {
		err := client.SubscribeRawWithContext(ctx, l.handle)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errStreamClosed
		}

		var authErr *AuthError
		if errors.As(err, &authErr) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		l.setConnected(false, err)
		l.logger.Warn("push channel unavailable, retrying",
			zap.Error(err),
			zap.Duration("retry_in", next),
		)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	default:
		l.setConnected(false, err)
		l.logger.Error("push channel closed permanently", zap.Error(err))
	}
}

func (l *Listener) setConnected(connected bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != stateRunning {
		return
	}
	l.connected = connected
	if err != nil {
		l.lastErr = err
	}
}

// handle converts one event into a notification. It holds the listener
// lock while appending so Stop cannot complete between the state check
// and the append.
func (l *Listener) handle(msg *sse.Event) {
	if msg == nil {
		return
	}

	event := string(msg.Event)
	p := ParsePayload(msg.Data)
	if !l.accepts(event, p) {
		l.logger.Debug("ignoring push event", zap.String("event", event))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != stateRunning {
		return
	}

	n, err := l.store.Receive(p.Message, p.EntityID)
	if err != nil {
		l.logger.Warn("dropping push notification", zap.Error(err))
		return
	}
	l.received++
	l.logger.Debug("notification received",
		zap.String("id", n.ID),
		zap.String("entity_id", n.EntityID),
	)
}

// accepts reports whether an event carries notifications. Hub-framed
// payloads sent as unnamed events are matched on their target.
func (l *Listener) accepts(event string, p Payload) bool {
	if l.cfg.Event == "" || event == l.cfg.Event {
		return true
	}
	return (event == "" || event == "message") && p.Target == l.cfg.Event
}
