package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

// Config configures an Issuer.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	config Config
	now    func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", minSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret
	return &Issuer{config: cfg, now: time.Now}, nil
}

// WithClock returns a copy of the issuer reading time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	out := *i
	out.now = now
	return &out
}

// Issue returns a signed token for subject with the given role.
func (i *Issuer) Issue(subject, role string) (string, error) {
	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Secret)
}

// Verify checks the signature and registered claims of raw.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return i.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
