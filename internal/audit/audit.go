package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is one session transition or navigation decision. Credentials never
// appear in an Event.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	AttemptID string            `json:"attempt_id,omitempty"`
	Username  string            `json:"username,omitempty"`
	Role      string            `json:"role,omitempty"`
	Path      string            `json:"path,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZapSink logs every event at info level, failures at warn.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Emit(_ context.Context, event Event) {
	fields := make([]zap.Field, 0, 7+len(event.Metadata))
	fields = append(fields,
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.Time("timestamp", event.Timestamp),
	)
	if event.AttemptID != "" {
		fields = append(fields, zap.String("attempt_id", event.AttemptID))
	}
	if event.Username != "" {
		fields = append(fields, zap.String("username", event.Username))
	}
	if event.Role != "" {
		fields = append(fields, zap.String("role", event.Role))
	}
	if event.Path != "" {
		fields = append(fields, zap.String("path", event.Path))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String(k, v))
	}
	if event.Error != "" {
		s.logger.Warn("audit", append(fields, zap.String("error", event.Error))...)
		return
	}
	s.logger.Info("audit", fields...)
}
