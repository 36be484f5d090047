package flows

import "context"

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store CredentialStore
}

// RunLogout removes the token, the last known role and every remembered path.
// The returned error is informational; logout always completes locally.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	return deps.Store.Clear(ctx)
}

// RunExpire discards the token of a session the server no longer accepts.
// Remembered paths survive so the next login restores them.
func RunExpire(ctx context.Context, deps LogoutDeps) error {
	return deps.Store.ClearToken(ctx)
}
