package middleware

import (
	"net/http"

	"github.com/teachify/teachify"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// ExpireOnUnauthorized watches responses of next, typically a proxy to the
// Teachify API, and ends the client session when one answers 401.
func ExpireOnUnauthorized(client *teachify.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == http.StatusUnauthorized && client != nil {
				client.ExpireSession(r.Context(), "upstream answered 401 for "+r.URL.Path)
			}
		})
	}
}
