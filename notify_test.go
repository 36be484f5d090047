package teachify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotificationLogExpiresEntries(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	log := NewNotificationLog()
	log.now = func() time.Time { return now }

	short := Notification{ID: uuid.New(), Kind: NotifySuccess, Message: "hi", TTL: time.Second, CreatedAt: now}
	sticky := Notification{ID: uuid.New(), Kind: NotifyError, Message: "stuck", CreatedAt: now.Add(time.Millisecond)}
	log.Notify(short)
	log.Notify(sticky)

	if got := log.Active(); len(got) != 2 || got[0].ID != short.ID {
		t.Fatalf("active = %+v", got)
	}

	now = now.Add(2 * time.Second)
	got := log.Active()
	if len(got) != 1 || got[0].ID != sticky.ID {
		t.Fatalf("active after expiry = %+v", got)
	}
	if !log.Remove(sticky.ID) || log.Remove(sticky.ID) {
		t.Fatal("Remove should report presence exactly once")
	}
}

func TestChannelNotifierDropsWhenFull(t *testing.T) {
	n := NewChannelNotifier(1)
	n.Notify(Notification{Message: "a"})
	n.Notify(Notification{Message: "b"})

	if got := (<-n.Notifications()).Message; got != "a" {
		t.Fatalf("first = %q", got)
	}
	if n.Dropped() != 1 {
		t.Fatalf("dropped = %d", n.Dropped())
	}
}

func TestLogNotifierLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := Notifiers(nil, NewLogNotifier(zap.New(core)))

	n.Notify(Notification{Kind: NotifyError, Message: "failed"})
	n.Notify(Notification{Kind: NotifyWarning, Message: "careful"})
	n.Notify(Notification{Kind: NotifySuccess, Message: "done"})

	want := []zapcore.Level{zapcore.ErrorLevel, zapcore.WarnLevel, zapcore.InfoLevel}
	entries := logs.All()
	if len(entries) != len(want) {
		t.Fatalf("entries = %d", len(entries))
	}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("entry %d level = %v, want %v", i, e.Level, want[i])
		}
	}
}

func TestClientNotificationTTLByKind(t *testing.T) {
	tc := bootstrapped(t, nil, nil)
	ch := NewChannelNotifier(4)
	tc.notifier = ch

	tc.notify(NotifyError, "x")
	tc.notify(NotifySuccess, "y")

	if n := <-ch.Notifications(); n.TTL != 6*time.Second || n.ID == uuid.Nil {
		t.Fatalf("error notification = %+v", n)
	}
	if n := <-ch.Notifications(); n.TTL != 4*time.Second {
		t.Fatalf("success notification = %+v", n)
	}
}
