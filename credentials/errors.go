package credentials

import "errors"

var (
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("credential store unavailable")
	// ErrCorrupt is returned when a persisted document cannot be decoded.
	ErrCorrupt = errors.New("credential store corrupt")
)
