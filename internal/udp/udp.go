// Package udp contains one-shot helpers on top of the socket, transmitter
// and discovery packages: plain send, broadcast receive and synchronous
// request/response exchanges that do not involve a discovery session.
package udp

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"mcast/internal/discovery"
	"mcast/internal/socket"
	"mcast/internal/transmitter"
	"mcast/internal/util/logger/sl"
)

var ErrTimeoutRequired = errors.New("collecting replies requires a positive timeout")

// Send transmits data as a single datagram to address:port.
func Send(address string, port uint16, data []byte, opts ...transmitter.Option) error {
	return transmitter.New(socket.NewEndpoint(address, port), opts...).Transmit(data)
}

// Receive starts a discovery session for broadcast datagrams on port.
// The caller disables the returned Discovery when done.
func Receive(port uint16, listener discovery.Listener, opts ...discovery.Option) (*discovery.Discovery, error) {
	d := discovery.New(socket.NewEndpoint(socket.BroadcastAddress, port), opts...)
	if err := d.Enable(listener); err != nil {
		return nil, err
	}
	return d, nil
}

// SendAndReceive sends payload and waits for a single reply. A timeout of
// zero waits forever. Any failure, including the timeout, yields nil; use
// Exchange to learn the cause.
func SendAndReceive(endpoint socket.Endpoint, payload []byte, timeout time.Duration, opts ...Option) []byte {
	reply, err := Exchange(context.Background(), endpoint, payload, timeout, opts...)
	if err != nil {
		newOptions(opts).log.Debug("no reply", slog.String("endpoint", endpoint.String()), sl.Err(err))
		return nil
	}
	return reply
}

// SendAndReceiveMany sends payload and collects every reply that arrives
// within timeout. It returns an empty result when nothing arrived or the
// request could not be sent.
func SendAndReceiveMany(endpoint socket.Endpoint, payload []byte, timeout time.Duration, opts ...Option) [][]byte {
	replies, err := Collect(context.Background(), endpoint, payload, timeout, opts...)
	if err != nil {
		newOptions(opts).log.Debug("collect interrupted",
			slog.String("endpoint", endpoint.String()),
			slog.Int("replies", len(replies)),
			sl.Err(err),
		)
	}
	return replies
}

// Exchange is SendAndReceive with the failure reported. A timeout surfaces
// as an error matching os.ErrDeadlineExceeded.
func Exchange(ctx context.Context, endpoint socket.Endpoint, payload []byte, timeout time.Duration, opts ...Option) ([]byte, error) {
	o := newOptions(opts)

	conn, err := o.request(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, o.maxPacket)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	reply := make([]byte, n)
	copy(reply, buf[:n])
	return reply, nil
}

// Collect is SendAndReceiveMany with the failure reported. Replies received
// before a failure are returned along with it. Reaching the deadline is not
// a failure.
func Collect(ctx context.Context, endpoint socket.Endpoint, payload []byte, timeout time.Duration, opts ...Option) ([][]byte, error) {
	if timeout <= 0 {
		return nil, ErrTimeoutRequired
	}
	o := newOptions(opts)

	conn, err := o.request(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	deadline := time.Now().Add(timeout)
	buf := make([]byte, o.maxPacket)
	replies := [][]byte{}

	for time.Now().Before(deadline) {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return replies, err
		}
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return replies, ctx.Err()
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return replies, err
		}

		reply := make([]byte, n)
		copy(reply, buf[:n])
		replies = append(replies, reply)
	}

	return replies, nil
}

// request opens a socket, sends payload and waits out the grace period.
// The caller owns the returned socket.
func (o *options) request(ctx context.Context, endpoint socket.Endpoint, payload []byte) (*socket.Conn, error) {
	addr, err := socket.Resolve(endpoint)
	if err != nil {
		return nil, err
	}

	conn, err := socket.OpenForSend(o.sockOpts...)
	if err != nil {
		return nil, err
	}

	if _, err := conn.WriteTo(payload, addr); err != nil {
		conn.Close()
		return nil, err
	}

	if o.grace > 0 {
		timer := time.NewTimer(o.grace)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		}
	}

	return conn, nil
}
