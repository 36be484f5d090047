package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte(strings.Repeat("k", 32))

func newTestIssuer(t *testing.T, now time.Time) *Issuer {
	t.Helper()
	iss, err := NewIssuer(Config{Secret: testSecret, TTL: time.Hour, Issuer: "teachify"})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss.WithClock(func() time.Time { return now })
}

func TestNewIssuerRejectsWeakConfig(t *testing.T) {
	if _, err := NewIssuer(Config{Secret: []byte("short"), TTL: time.Hour}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := NewIssuer(Config{Secret: testSecret}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
	if _, err := NewIssuer(Config{Secret: testSecret, TTL: time.Hour, Leeway: time.Hour}); err == nil {
		t.Fatal("expected large leeway to be rejected")
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, now)

	raw, err := iss.Issue("user-1", "TEACHER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := iss.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "TEACHER" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, now)
	raw, err := iss.Issue("user-1", "TEACHER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	later := iss.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	if _, err := later.Verify(raw); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expired err = %v", err)
	}

	other, err := NewIssuer(Config{Secret: []byte(strings.Repeat("z", 32)), TTL: time.Hour, Issuer: "teachify"})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	if _, err := other.Verify(raw); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestInspectReadsClaimsWithoutKey(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	iss := newTestIssuer(t, now)
	raw, err := iss.Issue("user-7", "teacher")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	h, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if h.Subject != "user-7" || h.Role != "TEACHER" {
		t.Fatalf("hint = %+v", h)
	}
	if !h.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v, want %v", h.ExpiresAt, now.Add(time.Hour))
	}
	if h.ExpiredAt(now, 0) {
		t.Fatal("fresh token reported expired")
	}
	if !h.ExpiredAt(now.Add(2*time.Hour), 5*time.Second) {
		t.Fatal("old token not reported expired")
	}
	if h.ExpiredAt(now.Add(time.Hour+time.Second), 5*time.Second) {
		t.Fatal("skew not applied")
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	for _, raw := range []string{"", "opaque-session-token", "a.b", "not.a.jwt"} {
		h, err := Inspect(raw)
		if !errors.Is(err, ErrNotJWT) {
			t.Fatalf("Inspect(%q) err = %v, want ErrNotJWT", raw, err)
		}
		if h.HasExpiry() || h.ExpiredAt(time.Now(), 0) {
			t.Fatalf("Inspect(%q) produced an expiry", raw)
		}
	}
}
