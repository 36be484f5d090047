package middleware

import (
	"net/http"

	"github.com/teachify/teachify"
)

// RequireSession rejects requests with 401 unless the client holds an
// authenticated session, and 503 while it is still bootstrapping. It is meant
// for JSON endpoints where a redirect makes no sense.
func RequireSession(client *teachify.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			s := client.Session()
			switch {
			case s.Status == teachify.StatusBootstrapping:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session loading", http.StatusServiceUnavailable)
				return
			case !s.Authenticated():
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := teachify.WithClient(r.Context(), client)
			ctx = teachify.WithSession(ctx, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
