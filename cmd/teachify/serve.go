package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/teachify/teachify"
	"github.com/teachify/teachify/gateway/gatewaytest"
	"github.com/teachify/teachify/metrics/export/prometheus"
	"github.com/teachify/teachify/middleware"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the client pages behind the route guard",
	Long: `Serve the client pages behind the route guard. Usage:

	teachify serve --addr :3000
	teachify serve --demo

With --demo an in-process fake of the Teachify API is started and seeded
with ada (TEACHER) and sam (STUDENT), both with password "secret".
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveFlags struct {
	addr string
	demo bool
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":3000", "listen address")
	serveCmd.Flags().BoolVar(&serveFlags.demo, "demo", false, "run against an in-process fake API")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if serveFlags.demo {
		shutdown, err := startDemoAPI(cmd)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	notes := teachify.NewNotificationLog()
	a, err := openApp(cmd, appOptions{
		notifier: teachify.Notifiers(notes, newStderrNotifier(cmd.ErrOrStderr())),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         serveFlags.addr,
		Handler:      newRouter(a.client, notes, a.logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", serveFlags.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter mounts the guarded pages, the session actions and the metrics
// endpoint.
func newRouter(client *teachify.Client, notes *teachify.NotificationLog, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", prometheus.NewPrometheusExporter(client).Handler())

	r.Route("/actions", func(r chi.Router) {
		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			if err := client.Login(r.Context(), r.FormValue("username"), r.FormValue("password")); err != nil {
				logger.Debug("login action failed", zap.Error(err))
				http.Redirect(w, r, client.Policy().LoginPath, http.StatusSeeOther)
				return
			}
			http.Redirect(w, r, client.Policy().HomePath, http.StatusSeeOther)
		})
		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			client.Logout(r.Context())
			http.Redirect(w, r, client.Policy().LoginPath, http.StatusSeeOther)
		})
	})

	r.With(middleware.RequireSession(client)).Get("/api/session", func(w http.ResponseWriter, r *http.Request) {
		s, _ := teachify.SessionFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Profile)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(client))
		r.Use(middleware.ExpireOnUnauthorized(client))
		r.Get("/*", pageHandler(notes))
	})
	return r
}

func pageHandler(notes *teachify.NotificationLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := teachify.SessionFromContext(r.Context())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>%s</h1>\n", html.EscapeString(r.URL.Path))
		if s.Authenticated() {
			fmt.Fprintf(w, "<p>%s %s (%s)</p>\n",
				html.EscapeString(s.Profile.FirstName), html.EscapeString(s.Profile.LastName), s.Profile.Role)
			fmt.Fprint(w, `<form method="post" action="/actions/logout"><button>Log out</button></form>`+"\n")
		} else {
			fmt.Fprint(w, `<form method="post" action="/actions/login">`+
				`<input name="username"><input name="password" type="password"><button>Log in</button></form>`+"\n")
		}
		for _, n := range notes.Active() {
			fmt.Fprintf(w, "<p class=%q>%s</p>\n", n.Kind, html.EscapeString(n.Message))
		}
	}
}

// startDemoAPI serves a seeded gatewaytest API on a loopback port and points
// the api-url flag at it.
func startDemoAPI(cmd *cobra.Command) (func(), error) {
	api := gatewaytest.New()
	if err := api.Seed("ada", "secret", teachify.RoleTeacher); err != nil {
		return nil, err
	}
	if err := api.Seed("sam", "secret", teachify.RoleStudent); err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen demo api: %w", err)
	}
	srv := &http.Server{Handler: api, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	if err := cmd.Flags().Set("api-url", "http://"+ln.Addr().String()+gatewaytest.BasePath); err != nil {
		_ = srv.Close()
		return nil, err
	}
	return func() { _ = srv.Close() }, nil
}
