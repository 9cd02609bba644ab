package transmitter

import (
	"fmt"

	"mcast/internal/socket"
)

// Kind classifies a TransmitError.
type Kind int

const (
	KindUnknownHost Kind = iota + 1
	KindSocket
	KindIO
	KindEncode
)

func (k Kind) String() string {
	switch k {
	case KindUnknownHost:
		return "unknown host"
	case KindSocket:
		return "can't create socket"
	case KindIO:
		return "i/o error during send"
	case KindEncode:
		return "can't encode intent"
	default:
		return "unknown"
	}
}

// TransmitError wraps any failure of a Transmitter send.
type TransmitError struct {
	Kind     Kind
	Endpoint socket.Endpoint
	Err      error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit to %s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *TransmitError) Unwrap() error { return e.Err }
