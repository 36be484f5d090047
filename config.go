package teachify

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/teachify/teachify/route"
)

// Config groups every tunable of the client by concern.
//
// Config values are copied on Builder.WithConfig and on Build; mutating a
// Config after handing it over has no effect on a running Client.
type Config struct {
	Gateway       GatewayConfig
	Credentials   CredentialsConfig
	Routes        RoutesConfig
	Registration  RegistrationConfig
	Notifications NotificationsConfig
	Session       SessionConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
GATEWAY CONFIG
====================================
*/

// GatewayConfig describes the remote Teachify API.
type GatewayConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
CREDENTIALS CONFIG
====================================
*/

// CredentialBackend selects the credential store built when no store is
// passed to the Builder.
type CredentialBackend string

const (
	// BackendMemory keeps credentials for the lifetime of the process.
	BackendMemory CredentialBackend = "memory"
	// BackendFile persists credentials in a JSON document on disk.
	BackendFile CredentialBackend = "file"
	// BackendRedis persists credentials in a Redis hash.
	BackendRedis CredentialBackend = "redis"
)

// CredentialsConfig configures the built-in credential store backends.
type CredentialsConfig struct {
	Backend     CredentialBackend
	FilePath    string
	RedisAddr   string
	RedisPrefix string
	Device      string
	RedisTTL    time.Duration
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig holds the route policy. A zero Policy means
// route.DefaultPolicy.
type RoutesConfig struct {
	Policy           route.Policy
	TrackLastVisited bool
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

// RegistrationConfig holds the client-side registration rules.
type RegistrationConfig struct {
	SelfRegisterRole  Role
	MinPasswordLength int
	PhonePattern      string
}

/*
====================================
NOTIFICATIONS CONFIG
====================================
*/

// NotificationsConfig holds the display duration of each notification kind.
// A zero duration keeps the notification until it is removed.
type NotificationsConfig struct {
	SuccessTTL time.Duration
	ErrorTTL   time.Duration
	InfoTTL    time.Duration
	WarningTTL time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls bootstrap behaviour.
type SessionConfig struct {
	// PrecheckTokenExpiry skips the profile round-trip during bootstrap when
	// the persisted token carries an exp claim already in the past.
	PrecheckTokenExpiry bool
	ExpirySkew          time.Duration
	SubscriberBuffer    int
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

const defaultPhonePattern = `^\+?[0-9]{10,15}$`

// DefaultConfig returns the configuration used when Builder.WithConfig is
// never called.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseURL:   "http://localhost:8080/api/v1",
			Timeout:   10 * time.Second,
			UserAgent: "teachify-client",
		},
		Credentials: CredentialsConfig{
			Backend:     BackendMemory,
			FilePath:    "",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "tcred",
			Device:      "default",
			RedisTTL:    0,
		},
		Routes: RoutesConfig{
			Policy:           route.DefaultPolicy(),
			TrackLastVisited: true,
		},
		Registration: RegistrationConfig{
			SelfRegisterRole:  RoleTeacher,
			MinPasswordLength: 4,
			PhonePattern:      defaultPhonePattern,
		},
		Notifications: NotificationsConfig{
			SuccessTTL: 4 * time.Second,
			ErrorTTL:   6 * time.Second,
			InfoTTL:    4 * time.Second,
			WarningTTL: 6 * time.Second,
		},
		Session: SessionConfig{
			PrecheckTokenExpiry: true,
			ExpirySkew:          5 * time.Second,
			SubscriberBuffer:    8,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Routes.Policy = cfg.Routes.Policy.Clone()
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. It does not
// touch the network or the filesystem.
func (c *Config) Validate() error {
	// Gateway
	if strings.TrimSpace(c.Gateway.BaseURL) == "" {
		return errors.New("Gateway.BaseURL must be set")
	}
	u, err := url.Parse(c.Gateway.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("Gateway.BaseURL %q must be an absolute http(s) URL", c.Gateway.BaseURL)
	}
	if c.Gateway.Timeout <= 0 {
		return errors.New("Gateway.Timeout must be > 0")
	}

	// Credentials
	switch c.Credentials.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.Credentials.FilePath) == "" {
			return errors.New("Credentials.FilePath required for file backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Credentials.Device) == "" {
			return errors.New("Credentials.Device required for redis backend")
		}
		if c.Credentials.RedisTTL < 0 {
			return errors.New("Credentials.RedisTTL must be >= 0")
		}
	default:
		return fmt.Errorf("Credentials.Backend %q not supported", c.Credentials.Backend)
	}

	// Routes
	if err := c.routePolicy().Validate(); err != nil {
		return fmt.Errorf("Routes.Policy: %w", err)
	}

	// Registration
	if c.Registration.SelfRegisterRole == "" {
		return errors.New("Registration.SelfRegisterRole must be set")
	}
	if c.Registration.MinPasswordLength < 1 {
		return errors.New("Registration.MinPasswordLength must be >= 1")
	}
	if _, err := regexp.Compile(c.Registration.PhonePattern); err != nil {
		return fmt.Errorf("Registration.PhonePattern: %w", err)
	}

	// Notifications
	if c.Notifications.SuccessTTL < 0 || c.Notifications.ErrorTTL < 0 ||
		c.Notifications.InfoTTL < 0 || c.Notifications.WarningTTL < 0 {
		return errors.New("Notifications TTLs must be >= 0")
	}

	// Session
	if c.Session.ExpirySkew < 0 || c.Session.ExpirySkew > 5*time.Minute {
		return errors.New("Session.ExpirySkew must be between 0 and 5m")
	}
	if c.Session.SubscriberBuffer < 1 {
		return errors.New("Session.SubscriberBuffer must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func (c *Config) routePolicy() route.Policy {
	if len(c.Routes.Policy.Table) == 0 {
		return route.DefaultPolicy()
	}
	return c.Routes.Policy
}
