package flows

import (
	"context"
	"time"
)

// CredentialStore is the slice of the credential store the flows write.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	SetLastRole(ctx context.Context, role string) error
	Clear(ctx context.Context) error
}

// ProfileRecord is the flow-local profile model.
type ProfileRecord struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	Phone     string
	Role      string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// FetchProfileFunc resolves the profile owning token.
type FetchProfileFunc func(ctx context.Context, token string) (ProfileRecord, error)

// Deps groups flow dependency sets. The Client builds this once and delegates
// each operation to the matching flow.
type Deps struct {
	Bootstrap    BootstrapDeps
	Authenticate AuthenticateDeps
	Logout       LogoutDeps
}
