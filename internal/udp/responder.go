package udp

import (
	"log/slog"
	"net"

	"mcast/internal/discovery"
	"mcast/internal/intent"
	"mcast/internal/socket"
	"mcast/internal/transmitter"
)

// ReplyMetricsLabel is the transmit metrics label shared by all replies of
// a Responder unless the caller sets its own.
const ReplyMetricsLabel = "reply"

// ReplyFunc builds the reply for a received datagram. Returning nil sends
// nothing.
type ReplyFunc func(addr *net.UDPAddr, data []byte, in *intent.Intent) []byte

// Responder is a discovery listener that answers each datagram by sending a
// reply straight back to its sender.
type Responder struct {
	discovery.Adapter

	reply ReplyFunc
	opts  []transmitter.Option
}

// NewResponder builds a Responder. Replies go to ephemeral sender ports, so
// they are counted under one metrics label instead of one per sender.
func NewResponder(reply ReplyFunc, log *slog.Logger, opts ...transmitter.Option) *Responder {
	defaults := []transmitter.Option{transmitter.WithMetricsLabel(ReplyMetricsLabel)}
	if log != nil {
		defaults = append(defaults, transmitter.WithLogger(log))
	}
	opts = append(defaults, opts...)
	return &Responder{
		Adapter: discovery.Adapter{Log: log},
		reply:   reply,
		opts:    opts,
	}
}

// StaticReply answers every request with the same payload.
func StaticReply(payload []byte) ReplyFunc {
	return func(*net.UDPAddr, []byte, *intent.Intent) []byte {
		return payload
	}
}

// Echo answers every request with its own payload.
func Echo() ReplyFunc {
	return func(_ *net.UDPAddr, data []byte, _ *intent.Intent) []byte {
		return data
	}
}

func (r *Responder) OnMessage(addr *net.UDPAddr, data []byte, in *intent.Intent) {
	reply := r.reply(addr, data, in)
	if reply == nil {
		return
	}

	dst := socket.NewEndpoint(addr.IP.String(), uint16(addr.Port))
	// errors are logged by the transmitter
	_ = transmitter.New(dst, r.opts...).Transmit(reply)
}
