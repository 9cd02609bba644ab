package udp

import (
	"log/slog"
	"time"

	"mcast/internal/socket"
	"mcast/internal/util/logger/handlers/slogdiscard"
)

// DefaultGracePeriod is how long a request waits after sending before it
// starts reading, to give responders time to react.
const DefaultGracePeriod = 200 * time.Millisecond

type options struct {
	grace     time.Duration
	maxPacket int
	sockOpts  []socket.Option
	log       *slog.Logger
}

type Option func(*options)

func WithGracePeriod(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}

func WithMaxPacketBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPacket = n
		}
	}
}

func WithSocketOptions(opts ...socket.Option) Option {
	return func(o *options) { o.sockOpts = append(o.sockOpts, opts...) }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

func newOptions(opts []Option) *options {
	o := &options{
		grace:     DefaultGracePeriod,
		maxPacket: socket.MaxPacketBytes,
		log:       slogdiscard.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
