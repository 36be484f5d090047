package teachify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teachify/teachify/internal/flows"
	"github.com/teachify/teachify/token"
	"go.uber.org/zap"
)

const (
	msgSessionExpired    = "Your session has expired. Please log in again."
	msgServerUnreachable = "Could not reach the server. Please log in again."
	msgLoggedOut         = "You have been logged out."
)

// Bootstrap resolves the persisted token into a session. It runs once per
// Client; later calls return ErrAlreadyBootstrapped.
//
// A persisted token that cannot be resolved, for any reason, is discarded and
// the session becomes anonymous with a warning notification. Bootstrap itself
// only fails for misuse.
func (c *Client) Bootstrap(ctx context.Context) error {
	if c == nil {
		return ErrClientNotReady
	}
	gen, err := c.begin(opBootstrap)
	if err != nil {
		return err
	}
	defer c.end()

	gctx, cancel := c.gatewayContext(ctx)
	defer cancel()

	res := flows.RunBootstrap(gctx, c.deps.Bootstrap)

	c.mu.Lock()
	if c.generation != gen {
		next := c.session
		next.Loading = false
		c.commitLocked(next)
		c.mu.Unlock()
		if res.Outcome == flows.BootstrapAuthenticated {
			if err := flows.RunLogout(gctx, c.deps.Logout); err != nil {
				c.logger.Warn("discarding superseded bootstrap failed", zap.Error(err))
			}
		}
		return nil
	}

	var profile *Profile
	if res.Outcome == flows.BootstrapAuthenticated {
		profile = profileFromRecord(res.Profile)
		c.commitLocked(Session{Status: StatusAuthenticated, Profile: profile})
	} else {
		c.commitLocked(Session{Status: StatusAnonymous})
	}
	c.mu.Unlock()

	if res.StoreErr != nil {
		c.logger.Warn("credential store error during bootstrap", zap.Error(res.StoreErr))
	}

	event := AuditEvent{Success: true}
	switch res.Outcome {
	case flows.BootstrapAuthenticated:
		c.metrics.Inc(MetricBootstrapAuthenticated)
		event.EventType = EventBootstrapAuthenticated
		event.Username = profile.Username
		event.Role = string(profile.Role)
		c.logger.Info("session restored", zap.String("username", profile.Username), zap.String("role", string(profile.Role)))

	case flows.BootstrapAnonymous:
		c.metrics.Inc(MetricBootstrapAnonymous)
		event.EventType = EventBootstrapAnonymous
		if res.StoreErr != nil {
			event.Error = res.StoreErr.Error()
		}

	case flows.BootstrapExpired:
		c.metrics.Inc(MetricBootstrapExpired)
		event.EventType = EventBootstrapExpired
		event.Success = false
		event.Error = "token expired"
		c.logger.Info("persisted token expired")
		c.notify(NotifyWarning, msgSessionExpired)

	case flows.BootstrapRejected:
		c.metrics.Inc(MetricBootstrapExpired)
		event.EventType = EventBootstrapRejected
		event.Success = false
		event.Error = res.Err.Error()
		c.logger.Warn("persisted token rejected", zap.Error(res.Err))
		if errors.Is(res.Err, ErrGatewayUnavailable) {
			c.notify(NotifyWarning, msgServerUnreachable)
		} else {
			c.notify(NotifyWarning, msgSessionExpired)
		}
	}
	c.emit(ctx, event)
	return nil
}

// Login exchanges username and password for a session.
//
// Empty credentials fail with ErrValidation before any I/O. While another
// operation is outstanding, including an unresolved bootstrap, Login fails
// with ErrConcurrentOperation. A failure after the token was persisted rolls
// the token back and returns an error matching ErrProfileUnavailable.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if c == nil {
		return ErrClientNotReady
	}
	username = strings.TrimSpace(username)
	if err := flows.ValidateLogin(username, password); err != nil {
		c.metrics.Inc(MetricValidationRejected)
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	exchange := func(ctx context.Context) (string, string, error) {
		start := time.Now()
		resp, err := c.gateway.Login(ctx, username, password)
		c.metrics.Observe(MetricGatewayLatency, time.Since(start))
		return exchangeResult(resp, err)
	}
	return c.authenticate(ctx, opLogin, username, exchange)
}

// Register creates a self-registered account and signs it in.
//
// Every field is required, the password must meet the configured minimum
// length and the phone the configured pattern. Only the configured
// self-registration role is accepted; any other role fails with an error
// matching both ErrValidation and ErrRoleNotSelfRegistrable.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if c == nil {
		return ErrClientNotReady
	}
	req = normalizeRegisterRequest(req)
	in := flows.RegistrationInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Phone:     req.Phone,
		Role:      string(req.Role),
		Password:  req.Password,
	}
	if err := flows.ValidateRegistration(in, c.rules); err != nil {
		c.metrics.Inc(MetricValidationRejected)
		if flows.RoleRejected(err) {
			return fmt.Errorf("%w: %w: %w", ErrValidation, ErrRoleNotSelfRegistrable, err)
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	exchange := func(ctx context.Context) (string, string, error) {
		start := time.Now()
		resp, err := c.gateway.Register(ctx, req)
		c.metrics.Observe(MetricGatewayLatency, time.Since(start))
		return exchangeResult(resp, err)
	}
	return c.authenticate(ctx, opRegister, req.Username, exchange)
}

func (c *Client) authenticate(ctx context.Context, op opKind, username string, exchange flows.ExchangeFunc) error {
	gen, err := c.begin(op)
	if err != nil {
		return err
	}
	defer c.end()

	attemptID := newAttemptID()
	okMetric, failMetric, rollbackMetric := MetricLoginSuccess, MetricLoginFailure, MetricLoginRolledBack
	okEvent, failEvent := EventLoginSuccess, EventLoginFailure
	if op == opRegister {
		okMetric, failMetric, rollbackMetric = MetricRegisterSuccess, MetricRegisterFailure, MetricRegisterRolledBack
		okEvent, failEvent = EventRegisterSuccess, EventRegisterFailure
	}
	log := c.logger.With(zap.String("attempt_id", attemptID), zap.String("username", username))

	c.setLoading(true)
	gctx, cancel := c.gatewayContext(ctx)
	defer cancel()

	res := flows.RunAuthenticate(gctx, exchange, c.deps.Authenticate)

	c.mu.Lock()
	if c.generation != gen {
		next := c.session
		next.Loading = false
		c.commitLocked(next)
		c.mu.Unlock()
		if res.Failure == flows.AuthenticateFailureNone {
			if err := flows.Rollback(gctx, c.deps.Logout.Store); err != nil {
				log.Warn("discarding superseded token failed", zap.Error(err))
			}
		}
		c.metrics.Inc(failMetric)
		c.emit(ctx, AuditEvent{EventType: failEvent, AttemptID: attemptID, Username: username, Error: "superseded by logout"})
		return fmt.Errorf("%w: superseded by logout", ErrConcurrentOperation)
	}

	switch res.Failure {
	case flows.AuthenticateFailureNone:
		profile := profileFromRecord(res.Profile)
		c.commitLocked(Session{Status: StatusAuthenticated, Profile: profile})
		c.mu.Unlock()

		if res.StoreErr != nil {
			log.Warn("last role not recorded", zap.Error(res.StoreErr))
		}
		c.metrics.Inc(okMetric)
		c.emit(ctx, AuditEvent{EventType: okEvent, AttemptID: attemptID, Username: profile.Username, Role: string(profile.Role), Success: true})
		log.Info("signed in", zap.String("role", string(profile.Role)))
		c.notify(NotifySuccess, welcomeMessage(op, profile))
		return nil

	case flows.AuthenticateFailureExchange:
		next := c.session
		next.Loading = false
		c.commitLocked(next)
		c.mu.Unlock()

		err := classifyGatewayError(res.Err)
		c.metrics.Inc(failMetric)
		c.emit(ctx, AuditEvent{EventType: failEvent, AttemptID: attemptID, Username: username, Error: err.Error()})
		log.Info("credential exchange rejected", zap.Error(err))
		c.notify(NotifyError, failureMessage(err))
		return err

	case flows.AuthenticateFailurePersist:
		c.commitLocked(Session{Status: StatusAnonymous})
		c.mu.Unlock()

		if res.RollbackErr != nil {
			log.Error("token rollback failed", zap.Error(res.RollbackErr))
		}
		c.metrics.Inc(failMetric)
		c.emit(ctx, AuditEvent{EventType: failEvent, AttemptID: attemptID, Username: username, Error: res.Err.Error()})
		log.Error("token not persisted", zap.Error(res.Err))
		c.notify(NotifyError, "Could not save your session. Please try again.")
		return fmt.Errorf("%w: %w", ErrCredentialStore, res.Err)

	default:
		c.commitLocked(Session{Status: StatusAnonymous})
		c.mu.Unlock()

		if res.RollbackErr != nil {
			log.Error("token rollback failed", zap.Error(res.RollbackErr))
		}
		c.metrics.Inc(rollbackMetric)
		c.emit(ctx, AuditEvent{
			EventType: failEvent,
			AttemptID: attemptID,
			Username:  username,
			Error:     res.Err.Error(),
			Metadata:  map[string]string{"stage": "profile", "rolled_back": "true"},
		})
		log.Warn("profile fetch failed, session rolled back", zap.Error(res.Err))
		c.notify(NotifyError, "Signed in, but your profile could not be loaded. Please try again.")
		return fmt.Errorf("%w: %w", ErrProfileUnavailable, res.Err)
	}
}

// Logout ends the session locally. It clears the token, the last known role
// and every remembered path, and always leaves the client anonymous. Storage
// failures are logged and audited, never returned.
//
// An attempt still outstanding when Logout runs is discarded when it
// completes.
func (c *Client) Logout(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	ended := c.session.Status == StatusAuthenticated
	var username, role string
	if ended {
		username, role = c.session.Profile.Username, string(c.session.Profile.Role)
	}
	c.generation++
	c.commitLocked(Session{Status: StatusAnonymous, Loading: c.inflight})
	c.mu.Unlock()

	event := AuditEvent{EventType: EventLogout, Username: username, Role: role, Success: true}
	if err := flows.RunLogout(context.WithoutCancel(ctx), c.deps.Logout); err != nil {
		c.logger.Error("credential store not cleared on logout", zap.Error(err))
		event.Success = false
		event.Error = err.Error()
	}

	c.metrics.Inc(MetricLogout)
	c.emit(ctx, event)
	if ended {
		c.logger.Info("signed out", zap.String("username", username))
		c.notify(NotifyInfo, msgLoggedOut)
	}
}

// ExpireSession ends an authenticated session the server no longer accepts,
// for example after a 401 on an API call. The token is discarded, remembered
// paths are kept and a warning notification is raised. It is a no-op unless
// the client is authenticated.
func (c *Client) ExpireSession(ctx context.Context, reason string) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.session.Status != StatusAuthenticated {
		c.mu.Unlock()
		return
	}
	username, role := c.session.Profile.Username, string(c.session.Profile.Role)
	c.generation++
	c.commitLocked(Session{Status: StatusAnonymous, Loading: c.inflight})
	c.mu.Unlock()

	event := AuditEvent{
		EventType: EventSessionExpired,
		Username:  username,
		Role:      role,
		Success:   true,
		Metadata:  map[string]string{"reason": reason},
	}
	if err := flows.RunExpire(context.WithoutCancel(ctx), c.deps.Logout); err != nil {
		c.logger.Error("token not cleared on expiry", zap.Error(err))
		event.Success = false
		event.Error = err.Error()
	}

	c.metrics.Inc(MetricSessionExpired)
	c.emit(ctx, event)
	c.logger.Info("session expired", zap.String("username", username), zap.String("reason", reason))
	c.notify(NotifyWarning, msgSessionExpired)
}

func exchangeResult(resp AuthResponse, err error) (string, string, error) {
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return "", "", fmt.Errorf("%w: empty token", ErrMalformedResponse)
	}
	return resp.Token, string(NormalizeRole(string(resp.Role))), nil
}

var gatewayErrors = []error{
	ErrInvalidCredentials,
	ErrUsernameTaken,
	ErrValidation,
	ErrUnauthorized,
	ErrMalformedResponse,
	ErrGatewayUnavailable,
}

// classifyGatewayError makes sure every exchange failure matches one of the
// gateway sentinels.
func classifyGatewayError(err error) error {
	for _, target := range gatewayErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return "Invalid username or password."
	case errors.Is(err, ErrUsernameTaken):
		return "That username is already taken."
	case errors.Is(err, ErrValidation):
		return "The server rejected the submitted details."
	case errors.Is(err, ErrMalformedResponse):
		return "Unexpected response from the server. Please try again."
	default:
		return "Could not reach the server. Please try again."
	}
}

func welcomeMessage(op opKind, p *Profile) string {
	name := p.FirstName
	if name == "" {
		name = p.Username
	}
	if op == opRegister {
		return "Account created. Welcome, " + name + "!"
	}
	return "Welcome back, " + name + "!"
}

func normalizeRegisterRequest(req RegisterRequest) RegisterRequest {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Username = strings.TrimSpace(req.Username)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Role = NormalizeRole(string(req.Role))
	return req
}

func tokenHintExpired(raw string, now time.Time, skew time.Duration) bool {
	h, err := token.Inspect(raw)
	if err != nil {
		return false
	}
	return h.ExpiredAt(now, skew)
}
