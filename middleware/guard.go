package middleware

import (
	"net/http"

	"github.com/teachify/teachify"
	"github.com/teachify/teachify/route"
)

// Guard runs every request path through Client.Navigate. Allowed requests
// reach next with the client and the session snapshot in their context.
// Redirects answer 302 to the verdict target. While the session is
// bootstrapping the guard answers 503 with Retry-After so no view is
// committed early.
func Guard(client *teachify.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}

			v := client.Navigate(r.Context(), r.URL.Path)
			switch v.Kind {
			case route.Allow:
				ctx := teachify.WithClient(r.Context(), client)
				ctx = teachify.WithSession(ctx, client.Session())
				next.ServeHTTP(w, r.WithContext(ctx))
			case route.Redirect:
				http.Redirect(w, r, v.Path, http.StatusFound)
			default:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session loading", http.StatusServiceUnavailable)
			}
		})
	}
}
