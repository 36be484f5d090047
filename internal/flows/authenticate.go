package flows

import (
	"context"
)

// ExchangeFunc performs the credential exchange (login or registration) and
// returns the issued token and the role reported alongside it.
type ExchangeFunc func(ctx context.Context) (token, role string, err error)

// AuthenticateFailure classifies the stage at which an attempt failed.
type AuthenticateFailure int

const (
	AuthenticateFailureNone AuthenticateFailure = iota
	// AuthenticateFailureExchange means the gateway rejected the exchange;
	// nothing was persisted.
	AuthenticateFailureExchange
	// AuthenticateFailurePersist means the token could not be written.
	AuthenticateFailurePersist
	// AuthenticateFailureProfile means the token was persisted but its profile
	// could not be fetched; the token has been rolled back.
	AuthenticateFailureProfile
)

// AuthenticateDeps captures dependencies shared by login and registration.
type AuthenticateDeps struct {
	Store        CredentialStore
	FetchProfile FetchProfileFunc
}

// AuthenticateResult is the classified outcome of one attempt. RollbackErr is
// set when clearing a partially persisted token also failed.
type AuthenticateResult struct {
	Failure     AuthenticateFailure
	Err         error
	RollbackErr error
	Profile     ProfileRecord
	StoreErr    error
}

// RunAuthenticate exchanges credentials, persists the token and resolves the
// profile. A failure after the token is persisted clears it again so the
// store never holds a token without a resolved session.
func RunAuthenticate(ctx context.Context, exchange ExchangeFunc, deps AuthenticateDeps) AuthenticateResult {
	token, role, err := exchange(ctx)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureExchange, Err: err}
	}

	if err := deps.Store.SetToken(ctx, token); err != nil {
		return AuthenticateResult{
			Failure:     AuthenticateFailurePersist,
			Err:         err,
			RollbackErr: deps.Store.ClearToken(ctx),
		}
	}
	storeErr := setLastRole(ctx, deps.Store, role)

	profile, err := deps.FetchProfile(ctx, token)
	if err != nil {
		return AuthenticateResult{
			Failure:     AuthenticateFailureProfile,
			Err:         err,
			RollbackErr: deps.Store.ClearToken(ctx),
			StoreErr:    storeErr,
		}
	}

	if profile.Role != "" && profile.Role != role {
		if err := setLastRole(ctx, deps.Store, profile.Role); err != nil {
			storeErr = err
		}
	}

	return AuthenticateResult{Profile: profile, StoreErr: storeErr}
}

// Rollback clears a token persisted by an attempt whose result is discarded.
func Rollback(ctx context.Context, store CredentialStore) error {
	return store.ClearToken(ctx)
}
