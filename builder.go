package teachify

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/teachify/teachify/credentials"
	"github.com/teachify/teachify/internal/audit"
	"github.com/teachify/teachify/internal/flows"
	"github.com/teachify/teachify/route"
	"go.uber.org/zap"
)

// Builder assembles a Client. A Builder is single use: Build may succeed only
// once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	gateway   AuthGateway
	store     CredentialStore
	notifier  Notifier
	policy    *route.Policy
	auditSink AuditSink
	logger    *zap.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithGateway sets the remote auth gateway. It is required.
func (b *Builder) WithGateway(g AuthGateway) *Builder {
	b.gateway = g
	return b
}

// WithCredentialStore sets the credential store and overrides
// Config.Credentials.
func (b *Builder) WithCredentialStore(s CredentialStore) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client used by the redis credential backend. Without
// it Build dials Config.Credentials.RedisAddr and closes that connection on
// Client.Close.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNotifier sets where user-facing notifications go. The default discards
// them.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithRoutePolicy overrides Config.Routes.Policy.
func (b *Builder) WithRoutePolicy(p route.Policy) *Builder {
	p = p.Clone()
	b.policy = &p
	return b
}

// WithAuditSink sets the audit sink. Events are only dispatched when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger. The default is zap.NewNop.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the gateway latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Client in the
// bootstrapping state. Call Client.Bootstrap before anything else.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.policy != nil {
		cfg.Routes.Policy = b.policy.Clone()
	}
	if len(cfg.Routes.Policy.Table) == 0 {
		cfg.Routes.Policy = route.DefaultPolicy()
	}
	if b.store != nil {
		cfg.Credentials.Backend = BackendMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.gateway == nil {
		return nil, errors.New("auth gateway required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	phone, err := regexp.Compile(cfg.Registration.PhonePattern)
	if err != nil {
		return nil, fmt.Errorf("Registration.PhonePattern: %w", err)
	}

	c := &Client{
		config:      cloneConfig(cfg),
		gateway:     b.gateway,
		notifier:    b.notifier,
		logger:      logger,
		metrics:     NewMetrics(cfg.Metrics),
		now:         time.Now,
		session:     Session{Status: StatusBootstrapping},
		subscribers: make(map[uint64]chan Session),
		rules: flows.RegistrationRules{
			SelfRegisterRole:  string(cfg.Registration.SelfRegisterRole),
			MinPasswordLength: cfg.Registration.MinPasswordLength,
			Phone:             phone,
		},
	}
	if c.notifier == nil {
		c.notifier = NoOpNotifier{}
	}

	// -------- CREDENTIAL STORE --------
	store := b.store
	if store == nil {
		store, err = b.openStore(c, cfg.Credentials)
		if err != nil {
			return nil, err
		}
	}
	c.store = store

	// -------- ROUTES --------
	var memory route.Memory
	if cfg.Routes.TrackLastVisited {
		memory = store
	}
	evaluator, err := route.NewEvaluator(cfg.Routes.Policy, memory, logger.Named("route"))
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.evaluator = evaluator

	// -------- FLOWS --------
	var expired func(string) bool
	if cfg.Session.PrecheckTokenExpiry {
		expired = c.tokenExpired
	}
	c.deps = flows.Deps{
		Bootstrap: flows.BootstrapDeps{
			Store:        store,
			FetchProfile: c.fetchProfile,
			TokenExpired: expired,
			OnResolving:  func() { c.setLoading(true) },
		},
		Authenticate: flows.AuthenticateDeps{
			Store:        store,
			FetchProfile: c.fetchProfile,
		},
		Logout: flows.LogoutDeps{Store: store},
	}

	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger.Named("audit"))

	b.built = true

	return c, nil
}

func (b *Builder) openStore(c *Client, cfg CredentialsConfig) (CredentialStore, error) {
	switch cfg.Backend {
	case BackendFile:
		return credentials.OpenFile(cfg.FilePath)
	case BackendRedis:
		client := b.redis
		if client == nil {
			owned := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			c.closers = append(c.closers, owned.Close)
			client = owned
		}
		return credentials.NewRedis(client, cfg.RedisPrefix, cfg.Device, cfg.RedisTTL), nil
	default:
		return credentials.NewMemory(), nil
	}
}

var (
	_ CredentialStore = (*credentials.Memory)(nil)
	_ CredentialStore = (*credentials.File)(nil)
	_ CredentialStore = (*credentials.Redis)(nil)
)
