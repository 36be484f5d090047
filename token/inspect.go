package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect when the token is not a decodable JWT.
// Opaque tokens are legal; callers treat this as "no hint available".
var ErrNotJWT = errors.New("token is not a JWT")

// Claims is the claim set carried by Teachify tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Hint is what can be read from a token without its signing key.
type Hint struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// HasExpiry reports whether the token carried an exp claim.
func (h Hint) HasExpiry() bool {
	return !h.ExpiresAt.IsZero()
}

// ExpiredAt reports whether the token is past its exp claim at now, allowing
// skew. Tokens without exp never expire client-side.
func (h Hint) ExpiredAt(now time.Time, skew time.Duration) bool {
	if !h.HasExpiry() {
		return false
	}
	return now.After(h.ExpiresAt.Add(skew))
}

// Inspect decodes raw without verifying its signature.
func Inspect(raw string) (Hint, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return Hint{}, ErrNotJWT
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Hint{}, errors.Join(ErrNotJWT, err)
	}

	h := Hint{
		Subject: claims.Subject,
		Role:    strings.ToUpper(strings.TrimSpace(claims.Role)),
	}
	if claims.ExpiresAt != nil {
		h.ExpiresAt = claims.ExpiresAt.Time
	}
	return h, nil
}
