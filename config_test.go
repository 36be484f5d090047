package teachify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/teachify/teachify/route"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{"relative base url", func(c *Config) { c.Gateway.BaseURL = "/api/v1" }, false},
		{"ftp base url", func(c *Config) { c.Gateway.BaseURL = "ftp://example.com" }, false},
		{"https base url", func(c *Config) { c.Gateway.BaseURL = "https://api.teachify.dev/v1" }, true},
		{"zero timeout", func(c *Config) { c.Gateway.Timeout = 0 }, false},
		{"file backend without path", func(c *Config) { c.Credentials.Backend = BackendFile }, false},
		{"file backend", func(c *Config) {
			c.Credentials.Backend = BackendFile
			c.Credentials.FilePath = "/tmp/teachify.json"
		}, true},
		{"redis backend blank device", func(c *Config) {
			c.Credentials.Backend = BackendRedis
			c.Credentials.Device = " "
		}, false},
		{"redis negative ttl", func(c *Config) {
			c.Credentials.Backend = BackendRedis
			c.Credentials.RedisTTL = -time.Second
		}, false},
		{"unknown backend", func(c *Config) { c.Credentials.Backend = "etcd" }, false},
		{"empty policy falls back", func(c *Config) { c.Routes.Policy = route.Policy{} }, true},
		{"login path public", func(c *Config) { c.Routes.Policy.Table["/login"] = route.Rule{Audience: route.Public} }, false},
		{"zero password length", func(c *Config) { c.Registration.MinPasswordLength = 0 }, false},
		{"bad phone pattern", func(c *Config) { c.Registration.PhonePattern = "([0-9]" }, false},
		{"blank self register role", func(c *Config) { c.Registration.SelfRegisterRole = "" }, false},
		{"sticky notifications", func(c *Config) { c.Notifications.ErrorTTL = 0 }, true},
		{"negative notification ttl", func(c *Config) { c.Notifications.InfoTTL = -time.Second }, false},
		{"skew too large", func(c *Config) { c.Session.ExpirySkew = 10 * time.Minute }, false},
		{"zero subscriber buffer", func(c *Config) { c.Session.SubscriberBuffer = 0 }, false},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigCopiesPolicy(t *testing.T) {
	cfg := DefaultConfig()
	clone := cloneConfig(cfg)
	clone.Routes.Policy.Table["/extra"] = route.Rule{Audience: route.Public}

	if _, ok := cfg.Routes.Policy.Table["/extra"]; ok {
		t.Fatal("clone shares the route table")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TEACHIFY_API_URL", "https://api.teachify.dev/v1")
	t.Setenv("TEACHIFY_API_TIMEOUT", "3s")
	t.Setenv("TEACHIFY_CREDENTIALS", "file")
	t.Setenv("TEACHIFY_CREDENTIALS_FILE", "/var/lib/teachify/session.json")
	t.Setenv("TEACHIFY_SELF_REGISTER_ROLE", "teacher")
	t.Setenv("TEACHIFY_AUDIT", "true")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Gateway.BaseURL != "https://api.teachify.dev/v1" || cfg.Gateway.Timeout != 3*time.Second {
		t.Fatalf("gateway = %+v", cfg.Gateway)
	}
	if cfg.Credentials.Backend != BackendFile || cfg.Credentials.FilePath != "/var/lib/teachify/session.json" {
		t.Fatalf("credentials = %+v", cfg.Credentials)
	}
	if cfg.Registration.SelfRegisterRole != RoleTeacher || cfg.Registration.MinPasswordLength != 4 {
		t.Fatalf("registration = %+v", cfg.Registration)
	}
	if !cfg.Audit.Enabled || !cfg.Metrics.Enabled || !cfg.Routes.TrackLastVisited {
		t.Fatalf("toggles = audit %v metrics %v track %v", cfg.Audit.Enabled, cfg.Metrics.Enabled, cfg.Routes.TrackLastVisited)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}

func TestLoadConfigFromEnvIgnoresMissingDotenv(t *testing.T) {
	t.Setenv("TEACHIFY_API_TIMEOUT", "7s")
	cfg, err := LoadConfigFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Gateway.Timeout != 7*time.Second {
		t.Fatalf("timeout = %v", cfg.Gateway.Timeout)
	}
}
