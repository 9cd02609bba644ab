package socket

import (
	"net"
	"strconv"
)

const (
	// DefaultMulticastAddress is the group used when none is configured.
	DefaultMulticastAddress = "225.4.5.6"
	DefaultPort             = 5775

	// BroadcastAddress is accepted in place of a group: the socket is bound
	// but no membership is requested.
	BroadcastAddress = "255.255.255.255"

	// MaxPacketBytes is the receive buffer ceiling. Larger datagrams are
	// truncated by the OS.
	MaxPacketBytes = 102400
)

// Endpoint identifies where datagrams are sent to and received from.
type Endpoint struct {
	Address string
	Port    uint16
}

func NewEndpoint(address string, port uint16) Endpoint {
	return Endpoint{Address: address, Port: port}
}

func DefaultEndpoint() Endpoint {
	return Endpoint{Address: DefaultMulticastAddress, Port: DefaultPort}
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(int(e.Port)))
}

// Resolve returns the UDP address of the endpoint.
func Resolve(e Endpoint) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", e.String())
	if err != nil {
		return nil, &AddressError{Address: e.Address, Err: err}
	}
	return addr, nil
}
