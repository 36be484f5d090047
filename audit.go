package teachify

import (
	"io"

	"github.com/teachify/teachify/internal/audit"
	"go.uber.org/zap"
)

// Audit event types emitted by the Client.
const (
	EventBootstrapAuthenticated = "bootstrap_authenticated"
	EventBootstrapAnonymous     = "bootstrap_anonymous"
	EventBootstrapExpired       = "bootstrap_expired"
	EventBootstrapRejected      = "bootstrap_rejected"
	EventLoginSuccess           = "login_success"
	EventLoginFailure           = "login_failure"
	EventRegisterSuccess        = "register_success"
	EventRegisterFailure        = "register_failure"
	EventLogout                 = "logout"
	EventSessionExpired         = "session_expired"
	EventRouteRedirect          = "route_redirect"
)

type (
	// AuditEvent is one session transition or navigation decision.
	AuditEvent = audit.Event
	// AuditSink receives audit events from the dispatcher goroutine.
	AuditSink = audit.Sink
	// NoOpSink drops audit events.
	NoOpSink = audit.NoOpSink
	// ChannelSink buffers audit events in a channel.
	ChannelSink = audit.ChannelSink
	// JSONWriterSink writes one JSON object per line.
	JSONWriterSink = audit.JSONWriterSink
	// ZapSink logs audit events.
	ZapSink = audit.ZapSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return audit.NewZapSink(logger)
}
