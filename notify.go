package teachify

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationKind is the severity of a user-facing message.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
	NotifyWarning NotificationKind = "warning"
)

// Notification is a transient user-facing message. A zero TTL keeps it until
// it is removed.
type Notification struct {
	ID        uuid.UUID
	Kind      NotificationKind
	Message   string
	TTL       time.Duration
	CreatedAt time.Time
}

// ExpiresAt returns the zero time for sticky notifications.
func (n Notification) ExpiresAt() time.Time {
	if n.TTL <= 0 {
		return time.Time{}
	}
	return n.CreatedAt.Add(n.TTL)
}

// Notifier receives notifications. Notify must not block the caller.
type Notifier interface {
	Notify(n Notification)
}

// NoOpNotifier discards notifications.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(Notification) {}

// ChannelNotifier delivers notifications on a buffered channel and drops them
// when the buffer is full.
type ChannelNotifier struct {
	ch      chan Notification
	dropped atomic.Uint64
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelNotifier{ch: make(chan Notification, buffer)}
}

func (c *ChannelNotifier) Notify(n Notification) {
	select {
	case c.ch <- n:
	default:
		c.dropped.Add(1)
	}
}

func (c *ChannelNotifier) Notifications() <-chan Notification {
	return c.ch
}

func (c *ChannelNotifier) Dropped() uint64 {
	return c.dropped.Load()
}

// NotificationLog keeps the notifications currently on display. Expired
// entries are pruned lazily on read.
type NotificationLog struct {
	mu    sync.Mutex
	items map[uuid.UUID]Notification
	now   func() time.Time
}

func NewNotificationLog() *NotificationLog {
	return &NotificationLog{
		items: make(map[uuid.UUID]Notification),
		now:   time.Now,
	}
}

func (l *NotificationLog) Notify(n Notification) {
	l.mu.Lock()
	l.items[n.ID] = n
	l.mu.Unlock()
}

// Remove dismisses the notification with id and reports whether it was shown.
func (l *NotificationLog) Remove(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.items[id]
	delete(l.items, id)
	return ok
}

// Active returns the notifications still on display, oldest first.
func (l *NotificationLog) Active() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	out := make([]Notification, 0, len(l.items))
	for id, n := range l.items {
		if exp := n.ExpiresAt(); !exp.IsZero() && !now.Before(exp) {
			delete(l.items, id)
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

func (l *LogNotifier) Notify(n Notification) {
	fields := []zap.Field{
		zap.String("id", n.ID.String()),
		zap.String("kind", string(n.Kind)),
		zap.Duration("ttl", n.TTL),
	}
	switch n.Kind {
	case NotifyError:
		l.logger.Error(n.Message, fields...)
	case NotifyWarning:
		l.logger.Warn(n.Message, fields...)
	default:
		l.logger.Info(n.Message, fields...)
	}
}

type multiNotifier []Notifier

func (m multiNotifier) Notify(n Notification) {
	for _, x := range m {
		x.Notify(n)
	}
}

// Notifiers fans every notification out to each non-nil notifier.
func Notifiers(ns ...Notifier) Notifier {
	out := make(multiNotifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (c *Client) notify(kind NotificationKind, message string) {
	var ttl time.Duration
	switch kind {
	case NotifySuccess:
		ttl = c.config.Notifications.SuccessTTL
	case NotifyError:
		ttl = c.config.Notifications.ErrorTTL
	case NotifyWarning:
		ttl = c.config.Notifications.WarningTTL
	default:
		ttl = c.config.Notifications.InfoTTL
	}
	c.notifier.Notify(Notification{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   message,
		TTL:       ttl,
		CreatedAt: c.now(),
	})
}
