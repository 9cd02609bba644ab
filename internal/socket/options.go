package socket

import "net"

type options struct {
	iface      string
	readBuffer int
	ttl        int
	loopback   bool
}

// Option configures a socket opened by OpenForReceive or OpenForSend.
type Option func(*options)

// WithInterface selects the network interface used to join the group or
// send multicast traffic. Empty means the system default.
func WithInterface(name string) Option {
	return func(o *options) { o.iface = name }
}

func WithReadBuffer(size int) Option {
	return func(o *options) { o.readBuffer = size }
}

func WithTTL(ttl int) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithLoopback controls whether multicast datagrams sent by this host are
// delivered back to local listeners.
func WithLoopback(enabled bool) Option {
	return func(o *options) { o.loopback = enabled }
}

func newOptions(opts []Option) *options {
	o := &options{
		ttl:      1,
		loopback: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) netInterface() (*net.Interface, error) {
	if o.iface == "" {
		return nil, nil
	}
	return net.InterfaceByName(o.iface)
}
