package discovery

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/looplab/fsm"

	"mcast/internal/intent"
	"mcast/internal/metrics"
	"mcast/internal/socket"
	"mcast/internal/util/logger/handlers/slogdiscard"
	"mcast/internal/util/logger/sl"
)

type config struct {
	codec     intent.Codec
	log       *slog.Logger
	sockOpts  []socket.Option
	maxPacket int
}

type Option func(*config)

// WithCodec sets the decoder applied to every datagram.
func WithCodec(codec intent.Codec) Option {
	return func(c *config) { c.codec = codec }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *config) { c.log = log }
}

func WithSocketOptions(opts ...socket.Option) Option {
	return func(c *config) { c.sockOpts = append(c.sockOpts, opts...) }
}

// WithMaxPacketBytes sets the receive buffer size. Longer datagrams are
// truncated.
func WithMaxPacketBytes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPacket = n
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		codec:     intent.DefaultCodec(),
		log:       slogdiscard.NewDiscardLogger(),
		maxPacket: socket.MaxPacketBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Thread is one discovery session: a goroutine that owns a receive socket
// and feeds decoded datagrams to a Listener. A Thread runs at most once.
type Thread struct {
	endpoint socket.Endpoint
	listener Listener
	cfg      *config
	log      *slog.Logger
	label    string

	// running is cleared by Stop before the socket is closed, so the worker
	// can tell a requested shutdown from a failure.
	running atomic.Bool

	mu   sync.Mutex
	conn *socket.Conn

	fsm  *fsm.FSM
	done chan struct{}
}

// NewThread создает сессию обнаружения. Сокет открывается только в Start.
func NewThread(endpoint socket.Endpoint, listener Listener, opts ...Option) *Thread {
	metrics.Init()

	cfg := newConfig(opts)
	return &Thread{
		endpoint: endpoint,
		listener: listener,
		cfg:      cfg,
		log:      cfg.log.With(slog.String("endpoint", endpoint.String())),
		label:    endpoint.String(),
		fsm:      newStateMachine(),
		done:     make(chan struct{}),
	}
}

func (t *Thread) Endpoint() socket.Endpoint {
	return t.endpoint
}

func (t *Thread) State() State {
	return State(t.fsm.Current())
}

// Done is closed after OnStopped has returned.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the session has stopped.
func (t *Thread) Wait() {
	<-t.done
}

// LocalAddr returns the bound address while the socket is open.
func (t *Thread) LocalAddr() *net.UDPAddr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// Start запускает горутину обнаружения
func (t *Thread) Start() error {
	if t.listener == nil {
		return ErrNilListener
	}

	t.mu.Lock()
	if err := t.fsm.Event(context.Background(), eventStart); err != nil {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.running.Store(true)
	t.mu.Unlock()

	go t.run()

	return nil
}

// Stop requests the session to end and unblocks a pending receive by
// closing the socket. It may be called any number of times.
func (t *Thread) Stop() {
	t.mu.Lock()
	conn := t.conn
	if t.running.Swap(false) {
		t.transition(eventStop)
	}
	t.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			t.log.Warn("close socket", sl.Err(err))
		}
	}
}

func (t *Thread) run() {
	const op = "discovery.Thread.run"
	log := t.log.With(slog.String("op", op))

	metrics.ActiveDiscoveries.Inc()
	defer metrics.ActiveDiscoveries.Dec()

	t.listener.OnStarted()

	err := t.serve()
	if err != nil && t.running.Load() {
		metrics.LoopErrors.WithLabelValues(t.label).Inc()
		log.Error("discovery failed", sl.Err(err))
		t.listener.OnError(err)
	}

	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.running.Store(false)
	t.transition(eventFinish)
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	log.Info("discovery stopped")
	t.listener.OnStopped()
	close(t.done)
}

func (t *Thread) serve() error {
	conn, err := socket.OpenForReceive(t.endpoint, t.cfg.sockOpts...)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if !t.running.Load() {
		// Stop came in while the socket was being opened
		t.mu.Unlock()
		conn.Close()
		return nil
	}
	t.conn = conn
	t.transition(eventOpen)
	t.mu.Unlock()

	t.log.Info("discovery started", slog.String("local_addr", conn.LocalAddr().String()))

	return t.receive(conn)
}

func (t *Thread) receive(conn *socket.Conn) error {
	buf := make([]byte, t.cfg.maxPacket)

	for t.running.Load() {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			return &DiscoveryError{Endpoint: t.endpoint, Err: err}
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		metrics.PacketsReceived.WithLabelValues(t.label).Inc()
		metrics.BytesReceived.WithLabelValues(t.label).Add(float64(n))

		in, err := t.cfg.codec.Unmarshal(data)
		if err != nil {
			metrics.PacketsDropped.WithLabelValues(t.label).Inc()
			t.log.Debug("received packet that could not be parsed as intent",
				slog.String("from", src.String()),
				sl.Err(err),
			)
			continue
		}

		t.listener.OnMessage(src, data, in)
	}

	return nil
}

// transition must be called with mu held.
func (t *Thread) transition(event string) {
	if err := t.fsm.Event(context.Background(), event); err != nil {
		t.log.Debug("state transition skipped",
			slog.String("event", event),
			slog.String("state", t.fsm.Current()),
			sl.Err(err),
		)
	}
}
