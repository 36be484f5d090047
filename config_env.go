package teachify

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// envConfig is the environment surface of Config. Unset variables fall back
// to the defaults in the tags, which mirror defaultConfig.
type envConfig struct {
	GatewayBaseURL string        `env:"TEACHIFY_API_URL,default=http://localhost:8080/api/v1"`
	GatewayTimeout time.Duration `env:"TEACHIFY_API_TIMEOUT,default=10s"`

	CredentialBackend string        `env:"TEACHIFY_CREDENTIALS,default=memory"`
	CredentialFile    string        `env:"TEACHIFY_CREDENTIALS_FILE"`
	RedisAddr         string        `env:"TEACHIFY_REDIS_ADDR,default=localhost:6379"`
	RedisPrefix       string        `env:"TEACHIFY_REDIS_PREFIX,default=tcred"`
	Device            string        `env:"TEACHIFY_DEVICE,default=default"`
	RedisTTL          time.Duration `env:"TEACHIFY_REDIS_TTL,default=0s"`

	TrackLastVisited bool `env:"TEACHIFY_TRACK_LAST_VISITED,default=true"`

	MinPasswordLength int    `env:"TEACHIFY_MIN_PASSWORD_LENGTH,default=4"`
	SelfRegisterRole  string `env:"TEACHIFY_SELF_REGISTER_ROLE,default=TEACHER"`

	PrecheckTokenExpiry bool `env:"TEACHIFY_PRECHECK_TOKEN_EXPIRY,default=true"`

	AuditEnabled   bool `env:"TEACHIFY_AUDIT,default=false"`
	MetricsEnabled bool `env:"TEACHIFY_METRICS,default=true"`
}

// LoadConfigFromEnv returns DefaultConfig overlaid with TEACHIFY_* variables.
// When dotenvFiles are given they are loaded first; variables already present
// in the environment win over the files. A missing dotenv file is ignored.
func LoadConfigFromEnv(dotenvFiles ...string) (Config, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var env envConfig
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return defaultConfig(), nil
		}
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	cfg := defaultConfig()
	cfg.Gateway.BaseURL = env.GatewayBaseURL
	cfg.Gateway.Timeout = env.GatewayTimeout

	cfg.Credentials.Backend = CredentialBackend(env.CredentialBackend)
	cfg.Credentials.FilePath = env.CredentialFile
	cfg.Credentials.RedisAddr = env.RedisAddr
	cfg.Credentials.RedisPrefix = env.RedisPrefix
	cfg.Credentials.Device = env.Device
	cfg.Credentials.RedisTTL = env.RedisTTL

	cfg.Routes.TrackLastVisited = env.TrackLastVisited

	cfg.Registration.MinPasswordLength = env.MinPasswordLength
	cfg.Registration.SelfRegisterRole = NormalizeRole(env.SelfRegisterRole)

	cfg.Session.PrecheckTokenExpiry = env.PrecheckTokenExpiry

	cfg.Audit.Enabled = env.AuditEnabled
	cfg.Metrics.Enabled = env.MetricsEnabled

	return cfg, nil
}
