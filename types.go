package teachify

import (
	"context"
	"strings"
	"time"
)

// Status is the lifecycle state of the client session.
type Status uint8

const (
	// StatusBootstrapping is the initial state. Persisted credentials have not
	// been resolved yet and no view may be committed.
	StatusBootstrapping Status = iota
	// StatusAnonymous means no authenticated session exists.
	StatusAnonymous
	// StatusAuthenticated means a token is persisted and its profile resolved.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusBootstrapping:
		return "bootstrapping"
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Role is an account role as reported by the Teachify API.
type Role string

const (
	// RoleStudent is assigned to students added by a teacher.
	RoleStudent Role = "STUDENT"
	// RoleTeacher is the only role allowed to self-register by default and
	// the only role with a multi-view dashboard.
	RoleTeacher Role = "TEACHER"
	// RoleAdmin is reserved for platform administrators.
	RoleAdmin Role = "ADMIN"
)

// NormalizeRole upper-cases and trims a role received from the wire.
func NormalizeRole(r string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(r)))
}

// Profile is the user record returned by the profile endpoint.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	Phone     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		out.UpdatedAt = &t
	}
	return &out
}

// Session is an immutable snapshot of the client session. Profile is non-nil
// if and only if Status is StatusAuthenticated.
type Session struct {
	Status  Status
	Profile *Profile
	Loading bool
}

// Authenticated reports whether the snapshot carries a resolved profile.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Profile != nil
}

// Role returns the profile role or "" when anonymous.
func (s Session) Role() Role {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

// AuthResponse is returned by the gateway for login and registration.
type AuthResponse struct {
	Token    string
	Username string
	Role     Role
}

// RegisterRequest carries the self-registration form.
type RegisterRequest struct {
	FirstName string
	LastName  string
	Username  string
	Phone     string
	Role      Role
	Password  string
}

// AuthGateway is the remote authentication and profile service.
//
// Implementations return errors matching ErrInvalidCredentials,
// ErrUsernameTaken, ErrValidation, ErrUnauthorized, ErrMalformedResponse or
// ErrGatewayUnavailable through errors.Is.
type AuthGateway interface {
	Login(ctx context.Context, username, password string) (AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
	FetchCurrentProfile(ctx context.Context, token string) (Profile, error)
}

// CredentialStore is durable key/value storage for the session token, the
// last known role and the per-role last visited path. An empty string means
// the value is absent. Implementations must observe their own writes
// immediately and Clear must remove every field atomically with respect to
// readers in the same process.
//
// Implementations live in the credentials package.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error

	LastRole(ctx context.Context) (string, error)
	SetLastRole(ctx context.Context, role string) error

	LastVisitedPath(ctx context.Context, role string) (string, error)
	SetLastVisitedPath(ctx context.Context, role, path string) error
	ClearAllLastVisitedPaths(ctx context.Context) error

	Clear(ctx context.Context) error
}
