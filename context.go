package teachify

import "context"

type clientContextKey struct{}
type sessionContextKey struct{}

// WithClient attaches c to ctx so request handlers can reach the session
// owner.
func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}

// ClientFromContext returns the Client attached by WithClient.
func ClientFromContext(ctx context.Context) (*Client, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(clientContextKey{}).(*Client)
	return c, ok && c != nil
}

// WithSession attaches a session snapshot to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the snapshot attached by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	return s, ok
}
