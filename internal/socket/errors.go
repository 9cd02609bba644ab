package socket

import (
	"errors"
	"fmt"
	"net"
)

var ErrNotUDP = errors.New("listener is not a UDP connection")

// AddressError reports an address that could not be resolved.
type AddressError struct {
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Address, e.Err)
}

func (e *AddressError) Unwrap() error { return e.Err }

// BindError reports a socket that could not be created, bound or joined to
// its group.
type BindError struct {
	Op      string
	Address string
	Err     error
}

func (e *BindError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Address, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// IsClosed reports whether err is the result of using a closed socket.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
