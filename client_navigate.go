package teachify

import (
	"context"

	"github.com/teachify/teachify/route"
	"go.uber.org/zap"
)

// Navigate decides whether requested may be rendered for the latest committed
// session. Redirects are silent; the caller renders the target instead.
//
// While the session is bootstrapping every path is pending. For an
// authenticated role owning an area, navigation inside the area is
// remembered and the home path redirects back to it.
func (c *Client) Navigate(ctx context.Context, requested string) route.Verdict {
	if c == nil {
		return route.Verdict{Kind: route.Pending}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	view := c.routeView()
	v := c.evaluator.Evaluate(ctx, view, requested)

	switch v.Kind {
	case route.Allow:
		c.metrics.Inc(MetricRouteAllow)
	case route.Pending:
		c.metrics.Inc(MetricRoutePending)
	case route.Redirect:
		c.metrics.Inc(MetricRouteRedirect)
		c.logger.Debug("navigation redirected",
			zap.String("requested", requested),
			zap.String("target", v.Path),
			zap.Stringer("state", view.State),
		)
		c.emit(ctx, AuditEvent{
			EventType: EventRouteRedirect,
			Role:      view.Role,
			Path:      route.Normalize(requested),
			Success:   true,
			Metadata:  map[string]string{"target": v.Path},
		})
	}
	return v
}

func (c *Client) routeView() route.View {
	s := c.Session()
	switch s.Status {
	case StatusAuthenticated:
		return route.View{State: route.Authenticated, Role: string(s.Role())}
	case StatusAnonymous:
		return route.View{State: route.Anonymous}
	default:
		return route.View{State: route.Bootstrapping}
	}
}
