package teachify

import "errors"

var (
	// ErrValidation is returned when caller input is malformed. It is raised
	// before any network call is made.
	ErrValidation = errors.New("validation failed")
	// ErrRoleNotSelfRegistrable is returned when a registration asks for a role
	// other than the configured self-registration role. It wraps ErrValidation.
	ErrRoleNotSelfRegistrable = errors.New("role cannot self-register")
	// ErrInvalidCredentials is returned by the gateway when login is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned by the gateway when registration collides
	// with an existing account.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUnauthorized is returned by the gateway when a token is rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConcurrentOperation is returned when an authentication attempt is
	// started while another one is still outstanding.
	ErrConcurrentOperation = errors.New("authentication already in progress")
	// ErrProfileUnavailable is returned when the profile fetch that follows a
	// successful login or registration fails and the session is rolled back.
	ErrProfileUnavailable = errors.New("profile could not be resolved")
	// ErrGatewayUnavailable is returned for transport failures and unexpected
	// gateway responses.
	ErrGatewayUnavailable = errors.New("auth gateway unavailable")
	// ErrMalformedResponse is returned when the gateway answers with a body
	// that cannot be decoded or misses required fields.
	ErrMalformedResponse = errors.New("malformed gateway response")
	// ErrAlreadyBootstrapped is returned by a second Bootstrap call.
	ErrAlreadyBootstrapped = errors.New("session already bootstrapped")
	// ErrClientNotReady is returned when an operation needs a resolved session
	// but Bootstrap has not been called, or the client is nil.
	ErrClientNotReady = errors.New("client not ready")
	// ErrCredentialStore is returned when the credential store fails a write
	// that an authentication transition depends on.
	ErrCredentialStore = errors.New("credential store failure")
)
