// Package discovery receives intents sent to a multicast endpoint on a
// background goroutine and hands them to a Listener.
package discovery

import (
	"log/slog"
	"sync"

	"mcast/internal/socket"
	"mcast/internal/util/logger/handlers/slogdiscard"
)

// Discovery управляет не более чем одной активной сессией на заданном
// адресе. Повторный Enable без Disable допустим: прежняя сессия продолжает
// работать, но больше не управляется.
type Discovery struct {
	endpoint socket.Endpoint
	opts     []Option
	log      *slog.Logger

	mu     sync.Mutex
	thread *Thread
}

func New(endpoint socket.Endpoint, opts ...Option) *Discovery {
	log := newConfig(opts).log
	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}

	return &Discovery{
		endpoint: endpoint,
		opts:     opts,
		log:      log.With(slog.String("endpoint", endpoint.String())),
	}
}

func (d *Discovery) Endpoint() socket.Endpoint {
	return d.endpoint
}

// Enable starts a new session that reports to listener.
func (d *Discovery) Enable(listener Listener) error {
	const op = "discovery.Enable"
	log := d.log.With(slog.String("op", op))

	if listener == nil {
		return ErrNilListener
	}

	thread := NewThread(d.endpoint, listener, d.opts...)

	d.mu.Lock()
	if d.thread != nil {
		log.Warn("discovery already enabled, previous session is left running")
	}
	d.thread = thread
	d.mu.Unlock()

	return thread.Start()
}

// Disable stops the current session, if any. It does not wait for the
// session goroutine to exit.
func (d *Discovery) Disable() {
	d.mu.Lock()
	thread := d.thread
	d.thread = nil
	d.mu.Unlock()

	if thread != nil {
		thread.Stop()
	}
}

func (d *Discovery) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.thread != nil
}

// Thread returns the current session or nil.
func (d *Discovery) Thread() *Thread {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.thread
}
