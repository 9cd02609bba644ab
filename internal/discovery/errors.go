package discovery

import (
	"errors"
	"fmt"

	"mcast/internal/socket"
)

var (
	ErrAlreadyStarted = errors.New("discovery thread already started")
	ErrNilListener    = errors.New("listener is nil")
)

// DiscoveryError wraps an I/O failure of a running loop that was not caused
// by Stop.
type DiscoveryError struct {
	Endpoint socket.Endpoint
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery on %s: %v", e.Endpoint, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }
