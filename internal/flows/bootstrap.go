package flows

import (
	"context"
	"errors"
)

// BootstrapOutcome classifies how a persisted session was resolved.
type BootstrapOutcome int

const (
	// BootstrapAnonymous means no token was persisted.
	BootstrapAnonymous BootstrapOutcome = iota
	// BootstrapAuthenticated means the token resolved to a profile.
	BootstrapAuthenticated
	// BootstrapExpired means the token was discarded without a network call
	// because its exp claim is in the past.
	BootstrapExpired
	// BootstrapRejected means the profile fetch failed and the token was
	// discarded.
	BootstrapRejected
)

func (o BootstrapOutcome) String() string {
	switch o {
	case BootstrapAnonymous:
		return "anonymous"
	case BootstrapAuthenticated:
		return "authenticated"
	case BootstrapExpired:
		return "expired"
	case BootstrapRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// BootstrapDeps captures bootstrap flow dependencies.
type BootstrapDeps struct {
	Store        CredentialStore
	FetchProfile FetchProfileFunc
	// TokenExpired may be nil; it is consulted before the network call.
	TokenExpired func(token string) bool
	// OnResolving is called once a token was found and before it is checked,
	// so the host can expose a loading state.
	OnResolving func()
}

// BootstrapResult is the classified bootstrap outcome. Err carries the cause
// for BootstrapRejected; StoreErr collects credential store failures that did
// not change the outcome.
type BootstrapResult struct {
	Outcome  BootstrapOutcome
	Profile  ProfileRecord
	Err      error
	StoreErr error
}

// RunBootstrap resolves the persisted token exactly once. Any failure to
// resolve it discards the token; it is never retried.
func RunBootstrap(ctx context.Context, deps BootstrapDeps) BootstrapResult {
	token, err := deps.Store.Token(ctx)
	if err != nil {
		// An unreadable token is discarded like any other unresolvable one.
		return BootstrapResult{
			Outcome:  BootstrapAnonymous,
			StoreErr: errors.Join(err, deps.Store.ClearToken(ctx)),
		}
	}
	if token == "" {
		return BootstrapResult{Outcome: BootstrapAnonymous}
	}

	if deps.OnResolving != nil {
		deps.OnResolving()
	}

	if deps.TokenExpired != nil && deps.TokenExpired(token) {
		return BootstrapResult{
			Outcome:  BootstrapExpired,
			StoreErr: deps.Store.ClearToken(ctx),
		}
	}

	profile, err := deps.FetchProfile(ctx, token)
	if err != nil {
		return BootstrapResult{
			Outcome:  BootstrapRejected,
			Err:      err,
			StoreErr: deps.Store.ClearToken(ctx),
		}
	}

	return BootstrapResult{
		Outcome:  BootstrapAuthenticated,
		Profile:  profile,
		StoreErr: setLastRole(ctx, deps.Store, profile.Role),
	}
}

func setLastRole(ctx context.Context, store CredentialStore, role string) error {
	if role == "" {
		return nil
	}
	if err := store.SetLastRole(ctx, role); err != nil {
		return errors.Join(errors.New("record last role"), err)
	}
	return nil
}
