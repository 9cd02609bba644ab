// Package transmitter sends single datagrams to a fixed multicast endpoint.
package transmitter

import (
	"log/slog"

	"mcast/internal/intent"
	"mcast/internal/metrics"
	"mcast/internal/socket"
	"mcast/internal/util/logger/handlers/slogdiscard"
	"mcast/internal/util/logger/sl"
)

// Transmitter sends intents or raw payloads to one endpoint. It keeps no
// socket between calls and is safe for concurrent use.
type Transmitter struct {
	endpoint socket.Endpoint
	codec    intent.Codec
	sockOpts []socket.Option
	log      *slog.Logger
	label    string
}

type Option func(*Transmitter)

func WithCodec(codec intent.Codec) Option {
	return func(t *Transmitter) { t.codec = codec }
}

func WithSocketOptions(opts ...socket.Option) Option {
	return func(t *Transmitter) { t.sockOpts = append(t.sockOpts, opts...) }
}

func WithLogger(log *slog.Logger) Option {
	return func(t *Transmitter) { t.log = log }
}

// WithMetricsLabel sets the endpoint label of the transmit metrics. It
// defaults to the destination endpoint.
func WithMetricsLabel(label string) Option {
	return func(t *Transmitter) { t.label = label }
}

func New(endpoint socket.Endpoint, opts ...Option) *Transmitter {
	metrics.Init()

	t := &Transmitter{
		endpoint: endpoint,
		codec:    intent.DefaultCodec(),
		log:      slogdiscard.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.label == "" {
		t.label = endpoint.String()
	}
	t.log = t.log.With(slog.String("endpoint", endpoint.String()))

	return t
}

func (t *Transmitter) Endpoint() socket.Endpoint {
	return t.endpoint
}

// Transmit sends data as one datagram. A nil data is a no-op and returns
// nil, while an empty non-nil slice sends an empty datagram.
func (t *Transmitter) Transmit(data []byte) error {
	return t.Send(data, nil)
}

// TransmitIntent encodes in with the configured codec and sends it.
func (t *Transmitter) TransmitIntent(in *intent.Intent) error {
	return t.Send(nil, in)
}

// Send transmits data, or the encoded intent when data is nil. Raw data
// always wins over the intent. Nothing is sent when both are nil.
func (t *Transmitter) Send(data []byte, in *intent.Intent) error {
	const op = "transmitter.Send"
	log := t.log.With(slog.String("op", op))

	err := t.send(data, in)
	if err != nil {
		metrics.TransmitErrors.WithLabelValues(t.label).Inc()
		log.Error("transmit failed", sl.Err(err))
	}
	return err
}

func (t *Transmitter) send(data []byte, in *intent.Intent) error {
	if data == nil {
		if in == nil {
			return nil
		}
		encoded, err := t.codec.Marshal(in)
		if err != nil {
			return &TransmitError{Kind: KindEncode, Endpoint: t.endpoint, Err: err}
		}
		data = encoded
	}

	addr, err := socket.Resolve(t.endpoint)
	if err != nil {
		return &TransmitError{Kind: KindUnknownHost, Endpoint: t.endpoint, Err: err}
	}

	conn, err := socket.OpenForSend(t.sockOpts...)
	if err != nil {
		return &TransmitError{Kind: KindSocket, Endpoint: t.endpoint, Err: err}
	}
	defer conn.Close()

	if _, err := conn.WriteTo(data, addr); err != nil {
		return &TransmitError{Kind: KindIO, Endpoint: t.endpoint, Err: err}
	}

	metrics.PacketsSent.WithLabelValues(t.label).Inc()
	t.log.Debug("datagram sent", slog.Int("bytes", len(data)))

	return nil
}
