package teachify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teachify/teachify/internal/audit"
	"github.com/teachify/teachify/internal/flows"
	"github.com/teachify/teachify/route"
	"go.uber.org/zap"
)

// Client owns the session lifecycle of one browser tab: it resolves persisted
// credentials, mediates login, registration and logout, and decides every
// navigation.
//
// Client methods are safe for concurrent use. Build one with [Builder].
type Client struct {
	config    Config
	gateway   AuthGateway
	store     CredentialStore
	notifier  Notifier
	evaluator *route.Evaluator
	logger    *zap.Logger
	audit     *audit.Dispatcher
	metrics   *Metrics
	rules     flows.RegistrationRules
	deps      flows.Deps
	now       func() time.Time

	closers []func() error

	mu          sync.Mutex
	session     Session
	started     bool
	inflight    bool
	generation  uint64
	subscribers map[uint64]chan Session
	nextSubID   uint64
	closed      bool
	closeOnce   sync.Once
	closeErr    error
}

// Session returns the latest committed session snapshot.
func (c *Client) Session() Session {
	if c == nil {
		return Session{Status: StatusBootstrapping}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Loading reports whether an authentication operation is outstanding.
func (c *Client) Loading() bool {
	return c.Session().Loading
}

// Subscribe returns a feed of committed session snapshots, starting with the
// current one, and a cancel function. A slow subscriber only loses
// intermediate snapshots; the latest one is always delivered.
func (c *Client) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, c.config.Session.SubscriberBuffer)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Policy returns the route policy in effect.
func (c *Client) Policy() route.Policy {
	return c.evaluator.Policy()
}

// MetricsSnapshot returns a copy of the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events lost to backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close flushes pending audit events, closes every subscription and releases
// resources the Builder opened. It is safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		for id, ch := range c.subscribers {
			delete(c.subscribers, id)
			close(ch)
		}
		c.mu.Unlock()

		c.audit.Close()

		var errs []error
		for i := len(c.closers) - 1; i >= 0; i-- {
			if err := c.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func (c *Client) snapshotLocked() Session {
	s := c.session
	s.Profile = c.session.Profile.clone()
	return s
}

// commitLocked replaces the session and fans the snapshot out to
// subscribers without blocking.
func (c *Client) commitLocked(next Session) {
	if next.Status != StatusAuthenticated {
		next.Profile = nil
	}
	c.session = next
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Client) setLoading(loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Loading == loading {
		return
	}
	next := c.session
	next.Loading = loading
	c.commitLocked(next)
}

type opKind int

const (
	opBootstrap opKind = iota
	opLogin
	opRegister
)

// begin reserves the single outstanding-operation slot. It returns the
// session generation the operation must still match when it commits.
func (c *Client) begin(op opKind) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if op == opBootstrap {
		if c.started {
			return 0, ErrAlreadyBootstrapped
		}
		c.started = true
	} else if c.session.Status == StatusBootstrapping {
		if !c.started {
			return 0, ErrClientNotReady
		}
		c.metrics.Inc(MetricConcurrentRejected)
		return 0, ErrConcurrentOperation
	}

	if c.inflight {
		c.metrics.Inc(MetricConcurrentRejected)
		return 0, ErrConcurrentOperation
	}
	c.inflight = true
	return c.generation, nil
}

func (c *Client) end() {
	c.mu.Lock()
	c.inflight = false
	c.mu.Unlock()
}

// gatewayContext detaches ctx from caller cancellation so a result that
// arrives is always committed or rolled back, and bounds it by the gateway
// timeout.
func (c *Client) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), c.config.Gateway.Timeout)
}

func (c *Client) fetchProfile(ctx context.Context, token string) (flows.ProfileRecord, error) {
	start := time.Now()
	p, err := c.gateway.FetchCurrentProfile(ctx, token)
	c.metrics.Observe(MetricGatewayLatency, time.Since(start))
	if err != nil {
		return flows.ProfileRecord{}, err
	}
	return recordFromProfile(p), nil
}

func (c *Client) tokenExpired(raw string) bool {
	return tokenHintExpired(raw, c.now(), c.config.Session.ExpirySkew)
}

func (c *Client) emit(ctx context.Context, event AuditEvent) {
	if c.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}
	c.audit.Emit(ctx, event)
}

func newAttemptID() string {
	return uuid.NewString()
}

func recordFromProfile(p Profile) flows.ProfileRecord {
	return flows.ProfileRecord{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Username:  p.Username,
		Phone:     p.Phone,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func profileFromRecord(r flows.ProfileRecord) *Profile {
	return &Profile{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Username:  r.Username,
		Phone:     r.Phone,
		Role:      NormalizeRole(r.Role),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
