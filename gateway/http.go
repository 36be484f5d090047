package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teachify/teachify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName = "github.com/teachify/teachify/gateway"

	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathProfile  = "/users/me"

	maxBodyBytes = 1 << 20
)

// HTTP talks to the Teachify API over HTTP. It is safe for concurrent use.
type HTTP struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	tracer    trace.Tracer
	logger    *zap.Logger
}

// Option customizes an HTTP gateway.
type Option func(*HTTP)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTracerProvider replaces the global TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *HTTP) {
		if tp != nil {
			h.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithLogger sets the logger. The default is zap.NewNop.
func WithLogger(l *zap.Logger) Option {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

// New returns a gateway for cfg.BaseURL. cfg.Timeout bounds each request when
// no custom http.Client is supplied.
func New(cfg teachify.GatewayConfig, opts ...Option) (*HTTP, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("gateway base url %q must be an absolute http(s) URL", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	h := &HTTP{
		base:      base,
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		tracer:    otel.Tracer(tracerName),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

/*
====================================
WIRE TYPES
====================================
*/

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"usernameField"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

type authResponse struct {
	Token    string `json:"token"`
	Username string `json:"usernameField"`
	Role     string `json:"role"`
}

// profileResponse keeps id and timestamps raw. An id may be a string or a
// number; an unreadable timestamp leaves the zero value.
type profileResponse struct {
	ID            json.RawMessage `json:"id"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	UsernameField string          `json:"usernameField"`
	Username      string          `json:"username"`
	Phone         string          `json:"phone"`
	Role          string          `json:"role"`
	CreatedAt     json.RawMessage `json:"createdAt"`
	UpdatedAt     json.RawMessage `json:"updatedAt"`
}

// timeLayouts are tried in order. Layouts without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// rawScalar decodes a JSON string or number. ok is false for null, absent
// and any other shape.
func rawScalar(raw json.RawMessage) (s string, isNumber, ok bool) {
	if len(raw) == 0 {
		return "", false, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false, false
	}
	switch v := v.(type) {
	case string:
		return v, false, true
	case json.Number:
		return v.String(), true, true
	default:
		return "", false, false
	}
}

func decodeID(raw json.RawMessage) string {
	s, _, _ := rawScalar(raw)
	return s
}

// decodeTime accepts the layouts above, epoch seconds or milliseconds, and
// the [year, month, day, hour, minute, second, nanos] array form. Anything
// else yields the zero time.
func decodeTime(raw json.RawMessage) time.Time {
	if s, isNumber, ok := rawScalar(raw); ok {
		if isNumber {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return time.Time{}
			}
			if n > 1e12 {
				return time.UnixMilli(n).UTC()
			}
			return time.Unix(n, 0).UTC()
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t
			}
		}
		return time.Time{}
	}

	var parts []int
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 3 {
		return time.Time{}
	}
	for len(parts) < 7 {
		parts = append(parts, 0)
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.UTC)
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

/*
====================================
OPERATIONS
====================================
*/

// Login exchanges credentials for a token.
func (h *HTTP) Login(ctx context.Context, username, password string) (teachify.AuthResponse, error) {
	ctx, span := h.start(ctx, "teachify.gateway.login", attribute.String("teachify.username", username))
	defer span.End()

	var out authResponse
	status, err := h.do(ctx, http.MethodPost, pathLogin, "", loginRequest{Username: username, Password: password}, &out)
	if err != nil {
		err = mapStatus(status, err, teachify.ErrInvalidCredentials)
		recordError(span, err)
		return teachify.AuthResponse{}, err
	}
	resp, err := toAuthResponse(out)
	recordError(span, err)
	return resp, err
}

// Register creates an account and returns its token.
func (h *HTTP) Register(ctx context.Context, req teachify.RegisterRequest) (teachify.AuthResponse, error) {
	ctx, span := h.start(ctx, "teachify.gateway.register",
		attribute.String("teachify.username", req.Username),
		attribute.String("teachify.role", string(req.Role)),
	)
	defer span.End()

	body := registerRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Phone:     req.Phone,
		Role:      string(req.Role),
		Password:  req.Password,
	}
	var out authResponse
	status, err := h.do(ctx, http.MethodPost, pathRegister, "", body, &out)
	if err != nil {
		err = mapStatus(status, err, teachify.ErrUnauthorized)
		recordError(span, err)
		return teachify.AuthResponse{}, err
	}
	resp, err := toAuthResponse(out)
	recordError(span, err)
	return resp, err
}

// FetchCurrentProfile resolves token into the profile of its owner.
func (h *HTTP) FetchCurrentProfile(ctx context.Context, token string) (teachify.Profile, error) {
	ctx, span := h.start(ctx, "teachify.gateway.profile")
	defer span.End()

	var out profileResponse
	status, err := h.do(ctx, http.MethodGet, pathProfile, token, nil, &out)
	if err != nil {
		err = mapStatus(status, err, teachify.ErrUnauthorized)
		recordError(span, err)
		return teachify.Profile{}, err
	}

	username := out.UsernameField
	if username == "" {
		username = out.Username
	}
	if username == "" || strings.TrimSpace(out.Role) == "" {
		err := fmt.Errorf("%w: profile without username or role", teachify.ErrMalformedResponse)
		recordError(span, err)
		return teachify.Profile{}, err
	}
	span.SetAttributes(attribute.String("teachify.role", out.Role))
	profile := teachify.Profile{
		ID:        decodeID(out.ID),
		FirstName: out.FirstName,
		LastName:  out.LastName,
		Username:  username,
		Phone:     out.Phone,
		Role:      teachify.NormalizeRole(out.Role),
		CreatedAt: decodeTime(out.CreatedAt),
	}
	if updated := decodeTime(out.UpdatedAt); !updated.IsZero() {
		profile.UpdatedAt = &updated
	}
	return profile, nil
}

/*
====================================
TRANSPORT
====================================
*/

func (h *HTTP) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return h.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// statusError carries a non-2xx response.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("status %d", e.status)
	}
	return fmt.Sprintf("status %d: %s", e.status, e.message)
}

// do sends one request and decodes a 2xx body into out. The returned status
// is 0 for transport and decode failures.
func (h *HTTP) do(ctx context.Context, method, path, token string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(data)
	}

	endpoint := h.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", teachify.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Debug("gateway request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, fmt.Errorf("%w: %w", teachify.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	h.logger.Debug("gateway request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	limited := io.LimitReader(resp.Body, maxBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload errorResponse
		_ = json.NewDecoder(limited).Decode(&payload)
		msg := payload.Message
		if msg == "" {
			msg = payload.Error
		}
		return resp.StatusCode, &statusError{status: resp.StatusCode, message: msg}
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %w", teachify.ErrMalformedResponse, err)
	}
	return resp.StatusCode, nil
}

// mapStatus turns a failed exchange into a teachify sentinel. rejected is the
// sentinel for 401 and 403 on this endpoint.
func mapStatus(status int, err error, rejected error) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", rejected, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", teachify.ErrUsernameTaken, err)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", teachify.ErrValidation, err)
	default:
		return fmt.Errorf("%w: %w", teachify.ErrGatewayUnavailable, err)
	}
}

func toAuthResponse(in authResponse) (teachify.AuthResponse, error) {
	if strings.TrimSpace(in.Token) == "" {
		return teachify.AuthResponse{}, fmt.Errorf("%w: missing token", teachify.ErrMalformedResponse)
	}
	return teachify.AuthResponse{
		Token:    in.Token,
		Username: in.Username,
		Role:     teachify.NormalizeRole(in.Role),
	}, nil
}

func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

var _ teachify.AuthGateway = (*HTTP)(nil)
