package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/teachify/teachify"
	"github.com/teachify/teachify/gateway/gatewaytest"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newFakeAPI(t *testing.T) (*gatewaytest.API, *HTTP) {
	t.Helper()
	api := gatewaytest.New()
	if err := api.Seed("ada", "secret", teachify.RoleTeacher); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	gw, err := New(teachify.GatewayConfig{BaseURL: srv.URL + gatewaytest.BasePath, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return api, gw
}

func TestNewRejectsRelativeURL(t *testing.T) {
	for _, raw := range []string{"", "/api/v1", "localhost:8080", "ftp://host/api"} {
		if _, err := New(teachify.GatewayConfig{BaseURL: raw}); err == nil {
			t.Fatalf("New(%q) should fail", raw)
		}
	}
}

func TestLoginAndFetchProfile(t *testing.T) {
	_, gw := newFakeAPI(t)
	ctx := context.Background()

	resp, err := gw.Login(ctx, "ada", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" || resp.Username != "ada" || resp.Role != teachify.RoleTeacher {
		t.Fatalf("resp = %+v", resp)
	}

	p, err := gw.FetchCurrentProfile(ctx, resp.Token)
	if err != nil {
		t.Fatalf("FetchCurrentProfile: %v", err)
	}
	if p.Username != "ada" || p.Role != teachify.RoleTeacher || p.ID == "" {
		t.Fatalf("profile = %+v", p)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	_, gw := newFakeAPI(t)
	if _, err := gw.Login(context.Background(), "ada", "nope"); !errors.Is(err, teachify.ErrInvalidCredentials) {
		t.Fatalf("Login = %v", err)
	}
}

func TestRegisterConflict(t *testing.T) {
	_, gw := newFakeAPI(t)
	req := teachify.RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		Phone:     "+441234567890",
		Role:      teachify.RoleTeacher,
		Password:  "secret",
	}
	if _, err := gw.Register(context.Background(), req); !errors.Is(err, teachify.ErrUsernameTaken) {
		t.Fatalf("Register = %v", err)
	}

	req.Username = "grace"
	resp, err := gw.Register(context.Background(), req)
	if err != nil || resp.Token == "" {
		t.Fatalf("Register = %+v, %v", resp, err)
	}
}

func TestProfileRejectsForeignToken(t *testing.T) {
	_, gw := newFakeAPI(t)
	if _, err := gw.FetchCurrentProfile(context.Background(), "not-a-token"); !errors.Is(err, teachify.ErrUnauthorized) {
		t.Fatalf("FetchCurrentProfile = %v", err)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		call   func(*HTTP) error
		want   error
	}{
		{"login 403", http.StatusForbidden, `{}`, loginCall, teachify.ErrInvalidCredentials},
		{"login 422", http.StatusUnprocessableEntity, `{"message":"bad"}`, loginCall, teachify.ErrValidation},
		{"login 500", http.StatusInternalServerError, ``, loginCall, teachify.ErrGatewayUnavailable},
		{"login empty token", http.StatusOK, `{"token":"","role":"TEACHER"}`, loginCall, teachify.ErrMalformedResponse},
		{"login garbage", http.StatusOK, `<html>`, loginCall, teachify.ErrMalformedResponse},
		{"register 409", http.StatusConflict, `{"message":"taken"}`, registerCall, teachify.ErrUsernameTaken},
		{"register 400", http.StatusBadRequest, `{}`, registerCall, teachify.ErrValidation},
		{"profile 401", http.StatusUnauthorized, `{}`, profileCall, teachify.ErrUnauthorized},
		{"profile 503", http.StatusServiceUnavailable, `{}`, profileCall, teachify.ErrGatewayUnavailable},
		{"profile without role", http.StatusOK, `{"id":"1","usernameField":"ada"}`, profileCall, teachify.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			gw, err := New(teachify.GatewayConfig{BaseURL: srv.URL, Timeout: time.Second})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := tt.call(gw); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func loginCall(gw *HTTP) error {
	_, err := gw.Login(context.Background(), "ada", "secret")
	return err
}

func registerCall(gw *HTTP) error {
	_, err := gw.Register(context.Background(), teachify.RegisterRequest{Username: "ada"})
	return err
}

func profileCall(gw *HTTP) error {
	_, err := gw.FetchCurrentProfile(context.Background(), "tok")
	return err
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw, err := New(teachify.GatewayConfig{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := gw.Login(context.Background(), "ada", "secret"); !errors.Is(err, teachify.ErrGatewayUnavailable) {
		t.Fatalf("Login = %v", err)
	}
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"id":"1","usernameField":"ada","role":"teacher"}`))
	}))
	defer srv.Close()

	gw, _ := New(teachify.GatewayConfig{BaseURL: srv.URL + "/api/v1/", Timeout: time.Second, UserAgent: "teachify-test"})
	p, err := gw.FetchCurrentProfile(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("FetchCurrentProfile: %v", err)
	}
	if p.Role != teachify.RoleTeacher {
		t.Fatalf("role = %q", p.Role)
	}
	if got.Get("Authorization") != "Bearer tok-1" || got.Get("User-Agent") != "teachify-test" {
		t.Fatalf("headers = %v", got)
	}
}

func TestSpansRecorded(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	api := gatewaytest.New()
	_ = api.Seed("ada", "secret", teachify.RoleTeacher)
	srv := httptest.NewServer(api)
	defer srv.Close()

	gw, err := New(teachify.GatewayConfig{BaseURL: srv.URL + gatewaytest.BasePath, Timeout: time.Second}, WithTracerProvider(tp))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, _ = gw.Login(context.Background(), "ada", "wrong")
	_, _ = gw.Login(context.Background(), "ada", "secret")

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d", len(spans))
	}
	if spans[0].Name() != "teachify.gateway.login" || spans[0].Status().Code != codes.Error {
		t.Fatalf("first span = %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Status().Code == codes.Error {
		t.Fatalf("second span status = %v", spans[1].Status())
	}
	for _, kv := range spans[1].Attributes() {
		if strings.Contains(kv.Value.Emit(), "secret") {
			t.Fatalf("span attribute %s leaks the password", kv.Key)
		}
	}
}

func TestProfileBodyShapes(t *testing.T) {
	updated := time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		name        string
		body        string
		wantID      string
		wantCreated time.Time
		wantUpdated *time.Time
	}{
		{
			name:        "rfc3339",
			body:        `{"id":"u-1","usernameField":"ada","role":"TEACHER","createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-06-02T08:30:00Z"}`,
			wantID:      "u-1",
			wantCreated: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			wantUpdated: &updated,
		},
		{
			name:        "numeric id and zoneless time",
			body:        `{"id":42,"usernameField":"ada","role":"TEACHER","createdAt":"2024-05-01T10:00:00.123","updatedAt":null}`,
			wantID:      "42",
			wantCreated: time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC),
		},
		{
			name:        "space separated time",
			body:        `{"id":7,"username":"ada","role":"TEACHER","createdAt":"2024-05-01 10:00:00"}`,
			wantID:      "7",
			wantCreated: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:        "array time",
			body:        `{"id":"u-2","usernameField":"ada","role":"TEACHER","createdAt":[2024,5,1,10,0,0],"updatedAt":[2024,6,2,8,30]}`,
			wantID:      "u-2",
			wantCreated: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			wantUpdated: &updated,
		},
		{
			name:        "epoch millis",
			body:        `{"id":"u-3","usernameField":"ada","role":"TEACHER","createdAt":1714557600000}`,
			wantID:      "u-3",
			wantCreated: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "unreadable time and missing id",
			body:   `{"usernameField":"ada","role":"TEACHER","createdAt":"yesterday","updatedAt":{"x":1}}`,
			wantID: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			gw, err := New(teachify.GatewayConfig{BaseURL: srv.URL, Timeout: time.Second})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			p, err := gw.FetchCurrentProfile(context.Background(), "tok")
			if err != nil {
				t.Fatalf("FetchCurrentProfile: %v", err)
			}
			if p.Username != "ada" || p.Role != teachify.RoleTeacher {
				t.Fatalf("profile = %+v", p)
			}
			if p.ID != tt.wantID {
				t.Fatalf("id = %q, want %q", p.ID, tt.wantID)
			}
			if !p.CreatedAt.Equal(tt.wantCreated) {
				t.Fatalf("createdAt = %v, want %v", p.CreatedAt, tt.wantCreated)
			}
			switch {
			case tt.wantUpdated == nil && p.UpdatedAt != nil:
				t.Fatalf("updatedAt = %v, want nil", *p.UpdatedAt)
			case tt.wantUpdated != nil && (p.UpdatedAt == nil || !p.UpdatedAt.Equal(*tt.wantUpdated)):
				t.Fatalf("updatedAt = %v, want %v", p.UpdatedAt, *tt.wantUpdated)
			}
		})
	}
}
